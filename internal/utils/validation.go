package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"
)

// rxSubdomain accepts RFC-1123 labels: lowercase alphanumerics and interior
// hyphens, 1 to 63 characters.
var rxSubdomain = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// reservedSubdomains can never be claimed by a tenant because they collide
// with platform surfaces.
var reservedSubdomains = map[string]bool{
	"www":   true,
	"api":   true,
	"admin": true,
	"mail":  true,
}

func ValidateSubdomain(subdomain string) error {
	if subdomain == "" {
		return fmt.Errorf("subdomain cannot be empty")
	}
	if len(subdomain) > 63 {
		return fmt.Errorf("subdomain cannot be longer than 63 characters")
	}
	if !rxSubdomain.MatchString(subdomain) {
		return fmt.Errorf("subdomain must contain only lowercase letters, digits, and interior hyphens")
	}
	if reservedSubdomains[subdomain] {
		return fmt.Errorf("subdomain %q is reserved", subdomain)
	}
	return nil
}

func ValidateURL(link string) error {
	if link == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if !govalidator.IsURL(link) {
		return fmt.Errorf("the provided URL is not valid")
	}
	return nil
}

func ValidateDNSName(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if !govalidator.IsDNSName(domain) {
		return fmt.Errorf("the provided domain is not valid")
	}
	return nil
}

// RxEmail is a regex used to validate e-mail addresses, according with the reference https://www.alexedwards.net/blog/validation-snippets-for-go#email-validation.
// It's free to use under the [MIT Licence](https://opensource.org/licenses/MIT)
var rxEmail = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if !rxEmail.MatchString(email) {
		return fmt.Errorf("the provided email is not valid")
	}
	return nil
}

// TrimAndLower normalizes user-supplied identifiers before validation.
func TrimAndLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
