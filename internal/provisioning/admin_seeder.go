package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/httpclient"
	"github.com/propsuite/property-management-backend/internal/utils"
)

// AdminSeeder creates the initial administrator account inside a freshly
// provisioned tenant.
type AdminSeeder interface {
	SeedAdmin(ctx context.Context, subdomain, apiURL string) error
	IsConfigured() bool
}

// HTTPAdminSeeder calls the tenant application's internal seeding endpoint.
// The endpoint is idempotent on the tenant side, so re-seeding an already
// seeded tenant succeeds without creating a second account.
type HTTPAdminSeeder struct {
	adminEmail    string
	adminPassword string
	serviceToken  string
	httpClient    httpclient.HTTPClientInterface
}

type HTTPAdminSeederOptions struct {
	AdminEmail    string
	AdminPassword string
	ServiceToken  string
	HTTPClient    httpclient.HTTPClientInterface
}

func NewHTTPAdminSeeder(opts HTTPAdminSeederOptions) *HTTPAdminSeeder {
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpclient.DefaultClient()
	}
	return &HTTPAdminSeeder{
		adminEmail:    opts.AdminEmail,
		adminPassword: opts.AdminPassword,
		serviceToken:  opts.ServiceToken,
		httpClient:    opts.HTTPClient,
	}
}

func (s *HTTPAdminSeeder) IsConfigured() bool {
	return s.adminEmail != "" && s.adminPassword != ""
}

func (s *HTTPAdminSeeder) SeedAdmin(ctx context.Context, subdomain, apiURL string) error {
	if !s.IsConfigured() {
		return ErrSeederNotConfigured
	}
	if err := utils.ValidateURL(apiURL); err != nil {
		return fmt.Errorf("validating tenant API URL %q: %w", apiURL, err)
	}

	payload, err := json.Marshal(map[string]string{
		"subdomain": subdomain,
		"email":     s.adminEmail,
		"password":  s.adminPassword,
	})
	if err != nil {
		return fmt.Errorf("marshaling admin seed payload: %w", err)
	}

	endpoint := strings.TrimSuffix(apiURL, "/") + "/internal/seed-admin"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating admin seed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Service", s.serviceToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling admin seed endpoint for %q: %w", subdomain, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("admin seed endpoint for %q returned HTTP %d: %s", subdomain, resp.StatusCode, body)
	}

	log.WithContext(ctx).WithField("subdomain", subdomain).Info("admin account seeded")
	return nil
}

var _ AdminSeeder = (*HTTPAdminSeeder)(nil)
