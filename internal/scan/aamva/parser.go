// Package aamva parses the AAMVA DL/ID barcode subset that door scanners
// emit: newline-separated data elements, each a three-letter element ID
// followed by its value. Only the elements the admission pipeline needs are
// read; everything else is ignored.
package aamva

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"headcount/internal/scan"
)

// Element IDs from the AAMVA DL/ID card design standard.
const (
	elemIDNumber   = "DAQ"
	elemLastName   = "DCS"
	elemFirstName  = "DAC"
	elemBirthDate  = "DBB"
	elemExpiry     = "DBA"
	elemRegion     = "DAJ"
	elemGender     = "DBC"
	elemPostalCode = "DAK"
)

var errEmptyPayload = errors.New("empty payload")

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse extracts the admission-relevant elements. IDNumber, IssuingRegion,
// and DateOfBirth are required; a payload missing any of them cannot be
// admitted or banned and fails the parse.
func (p *Parser) Parse(raw string) (*scan.Document, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errEmptyPayload
	}

	elements := map[string]string{}
	for _, line := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == '\r'
	}) {
		line = strings.TrimSpace(line)
		// The DL subfile designator prefixes the first element on the wire.
		if len(line) > 5 && strings.HasPrefix(line, "DL") && line[2:5] == elemIDNumber {
			line = line[2:]
		}
		if len(line) < 3 {
			continue
		}
		elemID := line[:3]
		switch elemID {
		case elemIDNumber, elemLastName, elemFirstName, elemBirthDate,
			elemExpiry, elemRegion, elemGender, elemPostalCode:
			elements[elemID] = strings.TrimSpace(line[3:])
		}
	}

	doc := &scan.Document{
		FirstName:     elements[elemFirstName],
		LastName:      elements[elemLastName],
		IDNumber:      elements[elemIDNumber],
		IssuingRegion: elements[elemRegion],
		Gender:        gender(elements[elemGender]),
		PostalCode:    elements[elemPostalCode],
	}

	if doc.IDNumber == "" || doc.IssuingRegion == "" || elements[elemBirthDate] == "" {
		return nil, errors.New("missing required elements")
	}

	var err error
	doc.DateOfBirth, err = parseDate(elements[elemBirthDate])
	if err != nil {
		return nil, fmt.Errorf("birth date: %w", err)
	}
	if v := elements[elemExpiry]; v != "" {
		doc.ExpirationDate, err = parseDate(v)
		if err != nil {
			return nil, fmt.Errorf("expiration date: %w", err)
		}
	}

	return doc, nil
}

// parseDate accepts both AAMVA date encodings: MMDDCCYY (US jurisdictions)
// and CCYYMMDD (Canadian, and pre-2000 cards).
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("01022006", v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("20060102", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

func gender(code string) string {
	switch code {
	case "1":
		return "M"
	case "2":
		return "F"
	default:
		return "U"
	}
}
