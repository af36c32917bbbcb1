package dns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloudflare is a minimal in-memory stand-in for the Cloudflare v4 DNS
// records API, tracking how many create/update calls it served.
type fakeCloudflare struct {
	mu      sync.Mutex
	records map[string]Record
	nextID  int

	creates int
	updates int
	deletes int
}

func newFakeCloudflare() *fakeCloudflare {
	return &fakeCloudflare{records: map[string]Record{}, nextID: 1}
}

func (f *fakeCloudflare) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/zones/zone-123/dns_records", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			name := r.URL.Query().Get("name")
			matches := []Record{}
			for _, rec := range f.records {
				if rec.Name == name {
					matches = append(matches, rec)
				}
			}
			writeEnvelope(w, matches)
		case http.MethodPost:
			var rec Record
			_ = json.NewDecoder(r.Body).Decode(&rec)
			rec.ID = fmt.Sprintf("rec-%d", f.nextID)
			f.nextID++
			f.records[rec.ID] = rec
			f.creates++
			writeEnvelope(w, rec)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/zones/zone-123/dns_records/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		id := r.URL.Path[len("/zones/zone-123/dns_records/"):]
		switch r.Method {
		case http.MethodPut:
			var rec Record
			_ = json.NewDecoder(r.Body).Decode(&rec)
			rec.ID = id
			f.records[id] = rec
			f.updates++
			writeEnvelope(w, rec)
		case http.MethodDelete:
			delete(f.records, id)
			f.deletes++
			writeEnvelope(w, map[string]string{"id": id})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func writeEnvelope(w http.ResponseWriter, result any) {
	raw, _ := json.Marshal(result)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"errors":  []any{},
		"result":  json.RawMessage(raw),
	})
}

func newTestProvider(t *testing.T, fake *fakeCloudflare) *CloudflareProvider {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewCloudflareProvider(CloudflareOptions{
		APIToken: "test-token",
		ZoneID:   "zone-123",
		BaseURL:  srv.URL,
	})
}

func Test_CloudflareProvider_IsConfigured(t *testing.T) {
	p := NewCloudflareProvider(CloudflareOptions{})
	assert.False(t, p.IsConfigured())

	p = NewCloudflareProvider(CloudflareOptions{APIToken: "token"})
	assert.False(t, p.IsConfigured())

	p = NewCloudflareProvider(CloudflareOptions{APIToken: "token", ZoneID: "zone"})
	assert.True(t, p.IsConfigured())
}

func Test_CloudflareProvider_Ensure_notConfigured(t *testing.T) {
	p := NewCloudflareProvider(CloudflareOptions{})
	rec, err := p.Ensure(context.Background(), "acme.example.com", "203.0.113.10")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func Test_CloudflareProvider_Ensure_createsWhenAbsent(t *testing.T) {
	fake := newFakeCloudflare()
	p := newTestProvider(t, fake)

	rec, err := p.Ensure(context.Background(), "acme.example.com", "203.0.113.10")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "acme.example.com", rec.Name)
	assert.Equal(t, "203.0.113.10", rec.Content)
	assert.Equal(t, recordTTLSeconds, rec.TTL)
	assert.True(t, rec.Proxied)
	assert.Equal(t, 1, fake.creates)
}

func Test_CloudflareProvider_Ensure_isIdempotent(t *testing.T) {
	fake := newFakeCloudflare()
	p := newTestProvider(t, fake)
	ctx := context.Background()

	first, err := p.Ensure(ctx, "acme.example.com", "203.0.113.10")
	require.NoError(t, err)
	second, err := p.Ensure(ctx, "acme.example.com", "203.0.113.10")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 0, fake.updates)
}

func Test_CloudflareProvider_Ensure_updatesOnDrift(t *testing.T) {
	fake := newFakeCloudflare()
	p := newTestProvider(t, fake)
	ctx := context.Background()

	first, err := p.Ensure(ctx, "acme.example.com", "203.0.113.10")
	require.NoError(t, err)

	second, err := p.Ensure(ctx, "acme.example.com", "198.51.100.7")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "198.51.100.7", second.Content)
	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, 1, fake.updates)
}

func Test_CloudflareProvider_Delete(t *testing.T) {
	fake := newFakeCloudflare()
	p := newTestProvider(t, fake)
	ctx := context.Background()

	rec, err := p.Ensure(ctx, "acme.example.com", "203.0.113.10")
	require.NoError(t, err)

	err = p.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.deletes)

	got, err := p.Get(ctx, "acme.example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func Test_CloudflareProvider_Ensure_apiError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"errors":  []map[string]any{{"code": 9109, "message": "Invalid access token"}},
		})
	}))
	defer srv.Close()

	p := NewCloudflareProvider(CloudflareOptions{APIToken: "bad", ZoneID: "zone-123", BaseURL: srv.URL})
	rec, err := p.Ensure(context.Background(), "acme.example.com", "203.0.113.10")
	assert.Nil(t, rec)
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, "get", provErr.Operation)
	assert.Contains(t, err.Error(), "Invalid access token")
}
