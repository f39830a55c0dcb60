package identity

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Summary is the minimal analytics record kept per identity: region, birth
// year, and initials only. Deliberately too coarse to identify a person on
// its own.
type Summary struct {
	Token      Token
	Region     string
	BirthYear  int
	Initials   string
	FirstSeen  time.Time
	LastSeen   time.Time
}

// NewSummary builds a summary from parsed document fields.
func NewSummary(token Token, region string, dateOfBirth time.Time, firstName, lastName string, seenAt time.Time) Summary {
	return Summary{
		Token:     token,
		Region:    strings.ToUpper(strings.TrimSpace(region)),
		BirthYear: dateOfBirth.Year(),
		Initials:  initials(firstName, lastName),
		FirstSeen: seenAt,
		LastSeen:  seenAt,
	}
}

func initials(firstName, lastName string) string {
	var b strings.Builder
	for _, name := range []string{firstName, lastName} {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		// First rune, not first byte; names are not always ASCII.
		r, _ := utf8.DecodeRuneInString(name)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
