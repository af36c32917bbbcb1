package utils

import (
	"errors"
	"strings"
)

var ErrTenantSubdomainNotFound = errors.New("tenant subdomain not found")

// ExtractSubdomainFromHost pulls the tenant subdomain out of a request host.
// Requests addressed to the root domain itself (or its www alias) carry no
// tenant. When rootDomain is empty the first hostname label is treated as the
// subdomain, as long as the hostname has more than two labels.
func ExtractSubdomainFromHost(host, rootDomain string) (string, error) {
	// Remove port number if present (e.g. acme.propsuite.com:8000 -> acme.propsuite.com)
	host = strings.Split(host, ":")[0]

	if rootDomain != "" {
		if host == rootDomain || host == "www."+rootDomain {
			return "", ErrTenantSubdomainNotFound
		}
		subdomain, found := strings.CutSuffix(host, "."+rootDomain)
		if !found || subdomain == "" || strings.Contains(subdomain, ".") {
			return "", ErrTenantSubdomainNotFound
		}
		return subdomain, nil
	}

	// Split by dots (e.g. acme.propsuite.com -> [acme, propsuite, com])
	parts := strings.Split(host, ".")
	// If there's more than 2 parts, it means there's a subdomain
	if len(parts) > 2 && parts[0] != "www" {
		return parts[0], nil
	}
	return "", ErrTenantSubdomainNotFound
}
