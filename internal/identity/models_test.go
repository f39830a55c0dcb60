package identity

import (
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestInitials(t *testing.T) {
	cases := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"plain", "Jane", "Doe", "JD"},
		{"lowercased input", "jane", "doe", "JD"},
		{"missing first name", "", "Doe", "D"},
		{"whitespace only", "  ", "Doe", "D"},
		{"multi-byte first letter", "Åsa", "Öberg", "ÅÖ"},
		{"non-latin script", "李", "王", "李王"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := initials(tc.first, tc.last)
			assert.Equal(t, tc.want, got)
			assert.True(t, utf8.ValidString(got), "initials must stay valid UTF-8")
		})
	}
}

func TestNewSummary(t *testing.T) {
	seen := time.Date(2026, 6, 15, 22, 0, 0, 0, time.UTC)
	dob := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	sum := NewSummary("tok", " tx ", dob, "Jane", "Doe", seen)

	assert.Equal(t, "TX", sum.Region)
	assert.Equal(t, 2000, sum.BirthYear)
	assert.Equal(t, "JD", sum.Initials)
	assert.Equal(t, seen, sum.FirstSeen)
	assert.Equal(t, seen, sum.LastSeen)
}
