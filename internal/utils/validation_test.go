package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValidateSubdomain(t *testing.T) {
	testCases := []struct {
		subdomain   string
		expectedErr string
	}{
		{subdomain: "acme"},
		{subdomain: "acme-properties"},
		{subdomain: "a"},
		{subdomain: "tenant42"},
		{subdomain: strings.Repeat("a", 63)},
		{subdomain: "", expectedErr: "subdomain cannot be empty"},
		{subdomain: strings.Repeat("a", 64), expectedErr: "subdomain cannot be longer than 63 characters"},
		{subdomain: "-acme", expectedErr: "subdomain must contain only lowercase letters, digits, and interior hyphens"},
		{subdomain: "acme-", expectedErr: "subdomain must contain only lowercase letters, digits, and interior hyphens"},
		{subdomain: "Acme", expectedErr: "subdomain must contain only lowercase letters, digits, and interior hyphens"},
		{subdomain: "ac me", expectedErr: "subdomain must contain only lowercase letters, digits, and interior hyphens"},
		{subdomain: "ac.me", expectedErr: "subdomain must contain only lowercase letters, digits, and interior hyphens"},
		{subdomain: "www", expectedErr: `subdomain "www" is reserved`},
		{subdomain: "admin", expectedErr: `subdomain "admin" is reserved`},
	}

	for _, tc := range testCases {
		t.Run(tc.subdomain, func(t *testing.T) {
			err := ValidateSubdomain(tc.subdomain)
			if tc.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.expectedErr)
			}
		})
	}
}

func Test_ValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("owner@acme.com"))
	assert.EqualError(t, ValidateEmail(""), "email cannot be empty")
	assert.EqualError(t, ValidateEmail("not-an-email"), "the provided email is not valid")
}

func Test_ValidateDNSName(t *testing.T) {
	assert.NoError(t, ValidateDNSName("acme.propsuite.com"))
	assert.EqualError(t, ValidateDNSName(""), "domain cannot be empty")
	assert.Error(t, ValidateDNSName("not a domain"))
}

func Test_TrimAndLower(t *testing.T) {
	assert.Equal(t, "acme", TrimAndLower("  Acme "))
}
