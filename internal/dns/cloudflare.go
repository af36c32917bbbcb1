package dns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	retry "github.com/avast/retry-go/v4"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/httpclient"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4"

	// recordTTLSeconds keeps propagation fast for freshly provisioned tenants.
	recordTTLSeconds = 300

	maxAttempts = 3
)

// CloudflareProvider manages A records for tenant subdomains through the
// Cloudflare v4 API.
type CloudflareProvider struct {
	apiToken   string
	zoneID     string
	baseURL    string
	httpClient httpclient.HTTPClientInterface
}

type CloudflareOptions struct {
	APIToken   string
	ZoneID     string
	BaseURL    string
	HTTPClient httpclient.HTTPClientInterface
}

func NewCloudflareProvider(opts CloudflareOptions) *CloudflareProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = httpclient.DefaultClient()
	}
	return &CloudflareProvider{
		apiToken:   opts.APIToken,
		zoneID:     opts.ZoneID,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
	}
}

func (p *CloudflareProvider) IsConfigured() bool {
	return p.apiToken != "" && p.zoneID != ""
}

// cloudflareEnvelope is the common response wrapper of the Cloudflare v4 API.
type cloudflareEnvelope struct {
	Success bool              `json:"success"`
	Errors  []cloudflareError `json:"errors"`
	Result  json.RawMessage   `json:"result"`
}

type cloudflareError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Ensure fetches the current record for the subdomain and creates it when
// absent, updates it on drift, or leaves it alone when it already matches.
func (p *CloudflareProvider) Ensure(ctx context.Context, subdomain, target string) (*Record, error) {
	if !p.IsConfigured() {
		return nil, ErrNotConfigured
	}

	existing, err := p.Get(ctx, subdomain)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return p.create(ctx, subdomain, target)
	}

	if existing.Content == target {
		log.WithContext(ctx).WithField("subdomain", subdomain).Debug("DNS record already up to date")
		return existing, nil
	}

	return p.update(ctx, existing.ID, subdomain, target)
}

func (p *CloudflareProvider) Get(ctx context.Context, subdomain string) (*Record, error) {
	if !p.IsConfigured() {
		return nil, ErrNotConfigured
	}

	query := url.Values{"name": {subdomain}, "type": {"A"}}
	endpoint := fmt.Sprintf("%s/zones/%s/dns_records?%s", p.baseURL, p.zoneID, query.Encode())

	var records []Record
	if err := p.doJSON(ctx, http.MethodGet, endpoint, nil, &records); err != nil {
		return nil, &ProviderError{Subdomain: subdomain, Operation: "get", Err: err}
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (p *CloudflareProvider) Delete(ctx context.Context, recordID string) error {
	if !p.IsConfigured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s", p.baseURL, p.zoneID, recordID)
	if err := p.doJSON(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		return &ProviderError{Subdomain: recordID, Operation: "delete", Err: err}
	}
	return nil
}

func (p *CloudflareProvider) create(ctx context.Context, subdomain, target string) (*Record, error) {
	endpoint := fmt.Sprintf("%s/zones/%s/dns_records", p.baseURL, p.zoneID)
	payload := Record{
		Type:    "A",
		Name:    subdomain,
		Content: target,
		TTL:     recordTTLSeconds,
		Proxied: true,
	}

	var created Record
	if err := p.doJSON(ctx, http.MethodPost, endpoint, payload, &created); err != nil {
		return nil, &ProviderError{Subdomain: subdomain, Operation: "create", Err: err}
	}

	log.WithContext(ctx).WithFields(log.Fields{"subdomain": subdomain, "record_id": created.ID}).Info("DNS record created")
	return &created, nil
}

func (p *CloudflareProvider) update(ctx context.Context, recordID, subdomain, target string) (*Record, error) {
	endpoint := fmt.Sprintf("%s/zones/%s/dns_records/%s", p.baseURL, p.zoneID, recordID)
	payload := Record{
		Type:    "A",
		Name:    subdomain,
		Content: target,
		TTL:     recordTTLSeconds,
		Proxied: true,
	}

	var updated Record
	if err := p.doJSON(ctx, http.MethodPut, endpoint, payload, &updated); err != nil {
		return nil, &ProviderError{Subdomain: subdomain, Operation: "update", Err: err}
	}

	log.WithContext(ctx).WithField("subdomain", subdomain).Info("DNS record updated")
	return &updated, nil
}

// doJSON performs an authenticated request against the Cloudflare API,
// retrying transient failures, and unmarshals the envelope's result into out.
func (p *CloudflareProvider) doJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request payload: %w", err)
		}
	}

	return retry.Do(
		func() error {
			var reqBody io.Reader
			if bodyBytes != nil {
				reqBody = bytes.NewReader(bodyBytes)
			}

			req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("creating request: %w", err))
			}
			req.Header.Set("Authorization", "Bearer "+p.apiToken)
			req.Header.Set("Content-Type", "application/json")

			resp, err := p.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("calling %s %s: %w", method, endpoint, err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("reading response body: %w", err)
			}

			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
			}

			var envelope cloudflareEnvelope
			if err = json.Unmarshal(respBody, &envelope); err != nil {
				return retry.Unrecoverable(fmt.Errorf("unmarshaling response (HTTP %d): %w", resp.StatusCode, err))
			}
			if !envelope.Success {
				return retry.Unrecoverable(fmt.Errorf("HTTP %d: %s", resp.StatusCode, formatCloudflareErrors(envelope.Errors)))
			}

			if out != nil && len(envelope.Result) > 0 {
				if err = json.Unmarshal(envelope.Result, out); err != nil {
					return retry.Unrecoverable(fmt.Errorf("unmarshaling result: %w", err))
				}
			}
			return nil
		},
		retry.Attempts(maxAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
	)
}

func formatCloudflareErrors(errs []cloudflareError) string {
	if len(errs) == 0 {
		return "unknown API error"
	}
	msg := ""
	for i, e := range errs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}
	return msg
}

var _ Provider = (*CloudflareProvider)(nil)
