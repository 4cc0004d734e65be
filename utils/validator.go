// utils/validator.go - Input validation
package utils

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	orcidRegex = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)
	doiRegex   = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidateORCID checks the 0000-0000-0000-000X layout and the ISO 7064 11,2 check digit.
func ValidateORCID(orcid string) bool {
	if !orcidRegex.MatchString(orcid) {
		return false
	}
	digits := strings.ReplaceAll(orcid, "-", "")

	total := 0
	for _, r := range digits[:15] {
		total = (total + int(r-'0')) * 2
	}
	check := (12 - total%11) % 11

	want := byte('0' + check)
	if check == 10 {
		want = 'X'
	}
	return digits[15] == want
}

// ValidateDOI checks the 10.<registrant>/<suffix> form.
func ValidateDOI(doi string) bool {
	return doiRegex.MatchString(doi)
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}

// NormalizeKeywords trims keywords and drops empty and case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	keywords := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = strings.Join(strings.Fields(SanitizeInput(kw)), " ")
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keywords = append(keywords, kw)
	}
	return keywords
}

// SanitizeFileName strips directories and control characters from an upload name.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(SanitizeInput(name), `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
