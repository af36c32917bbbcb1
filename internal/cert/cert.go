// Package cert abstracts TLS certificate issuance for tenant subdomains.
package cert

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned when the provider is missing credentials or a
// contact email. Callers treat it as non-fatal and continue provisioning.
var ErrNotConfigured = errors.New("certificate provider is not configured")

// Status describes the current state of a domain's certificate.
type Status string

const (
	StatusNotIssued    Status = "not_issued"
	StatusValid        Status = "valid"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// ExpiringSoonWindow is how far before expiry a certificate is reported as
// expiring_soon, matching the renewal window of the ACME tooling.
const ExpiringSoonWindow = 30 * 24 * time.Hour

// Info is the inspection result for a domain's certificate.
type Info struct {
	Domain    string     `json:"domain"`
	Status    Status     `json:"status"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
	NotBefore *time.Time `json:"not_before,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
}

// Provider issues and inspects TLS certificates for tenant domains. Issue is
// idempotent: re-invoking it for a domain that already holds a valid
// certificate is a no-op at the ACME tooling level.
type Provider interface {
	Issue(ctx context.Context, domain string) error
	IssueWildcard(ctx context.Context, baseDomain string) error
	Renew(ctx context.Context, domain string) error
	Revoke(ctx context.Context, domain string) error
	GetStatus(ctx context.Context, domain string) (*Info, error)
	IsConfigured() bool
}

// ProviderError wraps a real issuance failure, keeping the tooling output for
// diagnosis.
type ProviderError struct {
	Domain    string
	Operation string
	Output    string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("certificate %s for %q failed: %v", e.Operation, e.Domain, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
