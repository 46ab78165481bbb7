package registry

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrNameTooShort  = errors.New("name must be at least 2 characters")
	ErrNameTooLong   = errors.New("name must be at most 20 characters")
	ErrNameInvalid   = errors.New("name contains invalid characters")
	ErrNameForbidden = errors.New("pick a different name")
)

// forbiddenWords is checked as a substring match on the lowercased name.
// Deliberately short; the display layer applies its own moderation.
var forbiddenWords = []string{
	"admin", "moderator", "system", "server",
	"fuck", "shit", "bitch", "cunt", "nigg", "fag",
}

// sanitizeName trims, validates length and character classes, and applies
// the forbidden-word list. Returns the cleaned name.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.Join(strings.Fields(name), " ") // collapse inner runs of whitespace

	runes := []rune(name)
	if len(runes) < 2 {
		return "", ErrNameTooShort
	}
	if len(runes) > 20 {
		return "", ErrNameTooLong
	}
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", ErrNameInvalid
	}
	lower := strings.ToLower(name)
	for _, w := range forbiddenWords {
		if strings.Contains(lower, w) {
			return "", ErrNameForbidden
		}
	}
	return name, nil
}
