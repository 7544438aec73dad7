package service

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	contactPattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

const maxEmailLen = 191

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// validEmailFormat checks the address syntax and length only.
func validEmailFormat(email string) bool {
	if len(email) > maxEmailLen || !emailPattern.MatchString(email) {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// allowedDomain reports whether the address belongs to one of domains.
func allowedDomain(email string, domains []string) bool {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, d := range domains {
		if d == domain {
			return true
		}
	}
	return false
}

// otpFormat matches exactly digits numeric characters.
func otpFormat(digits int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, digits))
}

// fieldErrors collects per-field validation messages in input order.
type fieldErrors []string

func (f *fieldErrors) add(field, msg string) { *f = append(*f, field+": "+msg) }

func (f fieldErrors) String() string { return strings.Join(f, "; ") }
