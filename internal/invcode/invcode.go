// Package invcode builds and parses location-derived inventory codes of the
// form ORG-ROO-0001: up to three upper-cased runes of the organization name,
// up to three of the room name and a zero-padded ordinal.
package invcode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/domain"
)

const (
	prefixLen   = 3
	ordinalSize = 4
	separator   = "-"
)

// Code parsed inventory code
type Code struct {
	OrgPrefix  string
	RoomPrefix string
	Ordinal    int
}

func (c Code) String() string {
	return c.OrgPrefix + separator + c.RoomPrefix + separator + fmt.Sprintf("%0*d", ordinalSize, c.Ordinal)
}

// Prefix first three runes of name, upper-cased. Shorter names are used whole.
// The separator is replaced with '_' so every generated code parses.
func Prefix(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > prefixLen {
		name = string([]rune(name)[:prefixLen])
	}
	return strings.ToUpper(strings.ReplaceAll(name, separator, "_"))
}

// Generate returns the code for an item at the given ordinal of a room.
// It does not check uniqueness; callers do that against the store.
func Generate(orgName, roomName string, ordinal int) (string, error) {
	org := Prefix(orgName)
	room := Prefix(roomName)
	if org == "" {
		return "", fmt.Errorf("%w: organization name is required", domain.ErrValidation)
	}
	if room == "" {
		return "", fmt.Errorf("%w: room name is required", domain.ErrValidation)
	}
	if ordinal < 1 {
		return "", fmt.Errorf("%w: ordinal must be >= 1, got %d", domain.ErrValidation, ordinal)
	}
	return Code{OrgPrefix: org, RoomPrefix: room, Ordinal: ordinal}.String(), nil
}

// Parse splits a code into its parts. Prefixes hold 1..3 runes and no separator,
// the ordinal is at least four digits.
func Parse(code string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(code), separator)
	if len(parts) != 3 {
		return Code{}, fmt.Errorf("%w: malformed inventory code %q", domain.ErrValidation, code)
	}
	for _, p := range parts[:2] {
		n := utf8.RuneCountInString(p)
		if n == 0 || n > prefixLen || p != strings.ToUpper(p) {
			return Code{}, fmt.Errorf("%w: malformed inventory code %q", domain.ErrValidation, code)
		}
	}
	digits := parts[2]
	if len(digits) < ordinalSize {
		return Code{}, fmt.Errorf("%w: malformed inventory code %q", domain.ErrValidation, code)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Code{}, fmt.Errorf("%w: malformed inventory code %q", domain.ErrValidation, code)
		}
	}
	ordinal, err := strconv.Atoi(digits)
	if err != nil || ordinal < 1 {
		return Code{}, fmt.Errorf("%w: malformed inventory code %q", domain.ErrValidation, code)
	}
	return Code{OrgPrefix: parts[0], RoomPrefix: parts[1], Ordinal: ordinal}, nil
}

// Matches reports whether code is well formed and was derived from the given location.
func Matches(code, orgName, roomName string) bool {
	c, err := Parse(code)
	if err != nil {
		return false
	}
	return c.OrgPrefix == Prefix(orgName) && c.RoomPrefix == Prefix(roomName)
}
