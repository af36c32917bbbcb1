package provisioning

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSeederHTTPClient struct {
	lastReq    *http.Request
	statusCode int
	body       string
}

func (c *stubSeederHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.lastReq = req
	return &http.Response{
		StatusCode: c.statusCode,
		Body:       io.NopCloser(strings.NewReader(c.body)),
	}, nil
}

func (c *stubSeederHTTPClient) Get(string) (*http.Response, error) { return nil, nil }

func (c *stubSeederHTTPClient) PostForm(string, url.Values) (*http.Response, error) {
	return nil, nil
}

func Test_HTTPAdminSeeder_SeedAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		seeder := NewHTTPAdminSeeder(HTTPAdminSeederOptions{})
		err := seeder.SeedAdmin(ctx, "acme", "https://acme.propsuite.com")
		assert.ErrorIs(t, err, ErrSeederNotConfigured)
	})

	t.Run("rejects an invalid tenant API URL", func(t *testing.T) {
		client := &stubSeederHTTPClient{statusCode: http.StatusOK}
		seeder := NewHTTPAdminSeeder(HTTPAdminSeederOptions{
			AdminEmail:    "owner@acme.com",
			AdminPassword: "s3cr3t",
			HTTPClient:    client,
		})

		err := seeder.SeedAdmin(ctx, "acme", "not a url")
		assert.ErrorContains(t, err, "validating tenant API URL")
		assert.Nil(t, client.lastReq)
	})

	t.Run("posts the seed payload to the tenant endpoint", func(t *testing.T) {
		client := &stubSeederHTTPClient{statusCode: http.StatusCreated, body: `{}`}
		seeder := NewHTTPAdminSeeder(HTTPAdminSeederOptions{
			AdminEmail:    "owner@acme.com",
			AdminPassword: "s3cr3t",
			ServiceToken:  "svc-token",
			HTTPClient:    client,
		})

		err := seeder.SeedAdmin(ctx, "acme", "https://acme.propsuite.com/")
		require.NoError(t, err)
		require.NotNil(t, client.lastReq)
		assert.Equal(t, "https://acme.propsuite.com/internal/seed-admin", client.lastReq.URL.String())
		assert.Equal(t, "svc-token", client.lastReq.Header.Get("X-Internal-Service"))
	})

	t.Run("surfaces an error response", func(t *testing.T) {
		client := &stubSeederHTTPClient{statusCode: http.StatusBadGateway, body: "upstream down"}
		seeder := NewHTTPAdminSeeder(HTTPAdminSeederOptions{
			AdminEmail:    "owner@acme.com",
			AdminPassword: "s3cr3t",
			HTTPClient:    client,
		})

		err := seeder.SeedAdmin(ctx, "acme", "https://acme.propsuite.com")
		assert.ErrorContains(t, err, "HTTP 502")
	})
}
