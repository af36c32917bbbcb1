// Package dns abstracts the external DNS API used to point tenant subdomains
// at the platform's ingress address.
package dns

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the provider has no credentials. It is a
// configuration condition, not a provider failure, and callers treat it as
// always non-fatal.
var ErrNotConfigured = errors.New("dns provider is not configured")

// Record is a single name -> address record at the provider.
type Record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// Provider manages tenant subdomain records at an external DNS API. Ensure is
// idempotent and safe to re-invoke to heal a previously failed provisioning.
type Provider interface {
	// Ensure makes sure a record name -> target exists: it is a no-op when
	// the record already matches, an update on drift, and a create when the
	// record is absent.
	Ensure(ctx context.Context, subdomain, target string) (*Record, error)
	Get(ctx context.Context, subdomain string) (*Record, error)
	Delete(ctx context.Context, recordID string) error
	IsConfigured() bool
}

// ProviderError wraps a real provider failure with enough context for the
// caller to retry later by re-invoking Ensure.
type ProviderError struct {
	Subdomain  string
	Operation  string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("dns %s for %q failed with status %d: %v", e.Operation, e.Subdomain, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("dns %s for %q failed: %v", e.Operation, e.Subdomain, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
