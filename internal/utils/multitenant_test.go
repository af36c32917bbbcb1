package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ExtractSubdomainFromHost(t *testing.T) {
	testCases := []struct {
		name              string
		host              string
		rootDomain        string
		expectedSubdomain string
		expectedErr       error
	}{
		{
			name:              "🎉 subdomain under root domain",
			host:              "acme.propsuite.com",
			rootDomain:        "propsuite.com",
			expectedSubdomain: "acme",
		},
		{
			name:              "🎉 subdomain with port",
			host:              "acme.propsuite.com:8000",
			rootDomain:        "propsuite.com",
			expectedSubdomain: "acme",
		},
		{
			name:        "root domain itself carries no tenant",
			host:        "propsuite.com",
			rootDomain:  "propsuite.com",
			expectedErr: ErrTenantSubdomainNotFound,
		},
		{
			name:        "www alias carries no tenant",
			host:        "www.propsuite.com",
			rootDomain:  "propsuite.com",
			expectedErr: ErrTenantSubdomainNotFound,
		},
		{
			name:        "unrelated host is rejected",
			host:        "acme.elsewhere.io",
			rootDomain:  "propsuite.com",
			expectedErr: ErrTenantSubdomainNotFound,
		},
		{
			name:        "nested subdomain is rejected",
			host:        "a.b.propsuite.com",
			rootDomain:  "propsuite.com",
			expectedErr: ErrTenantSubdomainNotFound,
		},
		{
			name:              "🎉 no root domain falls back to first label",
			host:              "acme.propsuite.com",
			expectedSubdomain: "acme",
		},
		{
			name:        "no root domain and bare domain",
			host:        "propsuite.com",
			expectedErr: ErrTenantSubdomainNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			subdomain, err := ExtractSubdomainFromHost(tc.host, tc.rootDomain)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedSubdomain, subdomain)
			}
		})
	}
}
