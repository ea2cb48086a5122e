// Package validator provides input validation and sanitization functions
// for the contact intake pipeline.
package validator

import (
	"errors"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Validation errors
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrInvalidDomain    = errors.New("invalid domain format")
	ErrInvalidLocalPart = errors.New("invalid local part format")
	ErrInputTooLong     = errors.New("input exceeds maximum length")
	ErrEmptyInput       = errors.New("input cannot be empty")
)

// Regex patterns for validation
var (
	// Domain regex: allows lowercase alphanumeric, hyphens, and dots
	// Must start and end with alphanumeric, labels max 63 chars
	domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)
)

// strictPolicy strips every tag and escapes what is left
var strictPolicy = bluemonday.StrictPolicy()

// ValidateEmail validates email address format according to RFC 5322.
// The address must be bare (no display name) and its domain must be a
// dotted DNS name.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)

	if email == "" {
		return ErrEmptyInput
	}

	// RFC 5321 specifies max email length of 254 characters
	if utf8.RuneCountInString(email) > 254 {
		return ErrInputTooLong
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" || addr.Address != email {
		return ErrInvalidEmail
	}

	at := strings.LastIndex(email, "@")
	if at < 1 {
		return ErrInvalidEmail
	}

	// RFC 5321 specifies max local part length of 64 characters
	if len(email[:at]) > 64 {
		return ErrInvalidLocalPart
	}

	domain := strings.ToLower(email[at+1:])
	if err := ValidateDomain(domain); err != nil {
		return err
	}
	if !strings.Contains(domain, ".") {
		return ErrInvalidDomain
	}

	return nil
}

// ValidateDomain validates domain name format against DNS standards.
func ValidateDomain(domain string) error {
	domain = strings.TrimSpace(strings.ToLower(domain))

	if domain == "" {
		return ErrEmptyInput
	}

	// RFC 1035 specifies max domain length of 253 characters
	if len(domain) > 253 {
		return ErrInputTooLong
	}

	if !domainRegex.MatchString(domain) {
		return ErrInvalidDomain
	}

	return nil
}

// NormalizeEmail reduces an address to its canonical form: surrounding
// whitespace trimmed, every character outside the address alphabet removed
// and the domain part lower-cased.
func NormalizeEmail(email string) string {
	email = strings.Map(func(r rune) rune {
		if isEmailRune(r) {
			return r
		}
		return -1
	}, strings.TrimSpace(email))

	if at := strings.LastIndex(email, "@"); at >= 0 {
		email = email[:at+1] + strings.ToLower(email[at+1:])
	}
	return email
}

func isEmailRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("!#$%&'*+-=?^_`{|}~@.[]", r)
}

// maxStripPasses bounds how often decoded entities are re-checked for markup
const maxStripPasses = 4

// SanitizeLine prepares a single-line field (name, subject): markup is
// stripped, entities decoded to plain text, line breaks folded into spaces
// and control characters removed.
func SanitizeLine(input string, maxLength int) string {
	input = stripMarkup(strings.Map(lineRune, input))
	input = strings.TrimSpace(strings.Map(lineRune, input))
	return truncateRunes(input, maxLength)
}

// SanitizeText prepares a multi-line field (message): like SanitizeLine but
// newlines and tabs are kept.
func SanitizeText(input string, maxLength int) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = stripMarkup(strings.Map(textRune, input))
	input = strings.TrimSpace(strings.Map(textRune, input))
	return truncateRunes(input, maxLength)
}

// stripMarkup removes tags and returns plain text. Decoded entities are fed
// back through the policy until nothing changes, so encoded tags cannot
// survive; input that never settles is returned escaped.
func stripMarkup(input string) string {
	for i := 0; i < maxStripPasses; i++ {
		out := html.UnescapeString(strictPolicy.Sanitize(input))
		if out == input {
			return out
		}
		input = out
	}
	return strictPolicy.Sanitize(input)
}

func lineRune(r rune) rune {
	switch {
	case r == '\r', r == '\n', r == '\t':
		return ' '
	case r < 32 || r == 127:
		return -1
	}
	return r
}

func textRune(r rune) rune {
	switch {
	case r == '\n', r == '\t':
		return r
	case r < 32 || r == 127:
		return -1
	}
	return r
}

// SanitizeString removes potentially dangerous characters and enforces length limits.
// Removes control characters and trims whitespace.
func SanitizeString(input string, maxLength int) string {
	// Remove control characters (ASCII 0-31 and 127)
	input = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, input)

	// Trim whitespace
	input = strings.TrimSpace(input)

	return truncateRunes(input, maxLength)
}

// ContainsMarkup reports whether the input carries tag delimiters
func ContainsMarkup(input string) bool {
	return strings.ContainsAny(input, "<>")
}

// Truncate shortens input to at most maxLength runes, ending it with "..."
// when something was cut.
func Truncate(input string, maxLength int) string {
	if maxLength <= 0 || utf8.RuneCountInString(input) <= maxLength {
		return input
	}
	if maxLength <= 3 {
		return truncateRunes(input, maxLength)
	}
	return truncateRunes(input, maxLength-3) + "..."
}

func truncateRunes(input string, maxLength int) string {
	if maxLength > 0 && utf8.RuneCountInString(input) > maxLength {
		runes := []rune(input)
		input = string(runes[:maxLength])
	}
	return input
}

// Pagination constants
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ValidatePagination validates and sanitizes pagination parameters.
// Returns sanitized limit and offset values.
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
