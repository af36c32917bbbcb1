// Package resolver maps incoming HTTP requests to the tenant they belong to.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/utils"
)

// Request headers that identify the tenant explicitly when the Host header
// carries no subdomain.
const (
	HeaderClientSiteID   = "X-Client-Site-ID"
	HeaderClientSiteUUID = "X-Client-Site-UUID"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 30 * time.Second
)

var (
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrTenantInactive    = errors.New("tenant is not active")
	ErrNoTenantInRequest = errors.New("no tenant identifier in request")
)

// TenantResolver resolves tenants from request headers or the Host subdomain,
// with a short-lived in-process cache in front of the registry. Lifecycle
// transitions must call Invalidate so a suspension takes effect immediately.
type TenantResolver struct {
	tenants    data.TenantRegistry
	cache      *expirable.LRU[string, *data.Tenant]
	mainDomain string
}

type Options struct {
	Tenants    data.TenantRegistry
	MainDomain string
	CacheSize  int
	CacheTTL   time.Duration
}

func NewTenantResolver(opts Options) (*TenantResolver, error) {
	if opts.Tenants == nil {
		return nil, fmt.Errorf("tenant registry cannot be nil")
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	return &TenantResolver{
		tenants:    opts.Tenants,
		cache:      expirable.NewLRU[string, *data.Tenant](opts.CacheSize, nil, opts.CacheTTL),
		mainDomain: opts.MainDomain,
	}, nil
}

// ResolveFromRequest finds the tenant a request is addressed to. Resolution
// order: the Host subdomain, then the X-Client-Site-UUID and X-Client-Site-ID
// headers, then the subdomain query parameter. Tenants that exist but are not
// active resolve with ErrTenantInactive so callers can distinguish a 403 from
// a 404.
func (r *TenantResolver) ResolveFromRequest(req *http.Request) (*data.Tenant, error) {
	ctx := req.Context()

	if subdomain, err := utils.ExtractSubdomainFromHost(req.Host, r.mainDomain); err == nil {
		return r.ResolveSubdomain(ctx, subdomain)
	}

	if id := req.Header.Get(HeaderClientSiteUUID); id != "" {
		return r.resolve(ctx, "id:"+id, func() (*data.Tenant, error) {
			return r.tenants.GetByID(ctx, id)
		})
	}

	if subdomain := req.Header.Get(HeaderClientSiteID); subdomain != "" {
		return r.ResolveSubdomain(ctx, subdomain)
	}

	if subdomain := req.URL.Query().Get("subdomain"); subdomain != "" {
		return r.ResolveSubdomain(ctx, subdomain)
	}

	return nil, ErrNoTenantInRequest
}

// SubdomainFromRequest extracts the tenant subdomain a request claims,
// without consulting the registry: the Host subdomain, then the
// X-Client-Site-ID header, then the subdomain query parameter. Heartbeats use
// it so an unseen subdomain can register lazily.
func (r *TenantResolver) SubdomainFromRequest(req *http.Request) (string, error) {
	if subdomain, err := utils.ExtractSubdomainFromHost(req.Host, r.mainDomain); err == nil {
		return subdomain, nil
	}
	if subdomain := req.Header.Get(HeaderClientSiteID); subdomain != "" {
		return subdomain, nil
	}
	if subdomain := req.URL.Query().Get("subdomain"); subdomain != "" {
		return subdomain, nil
	}
	return "", ErrNoTenantInRequest
}

// ResolveSubdomain finds the tenant owning the given subdomain.
func (r *TenantResolver) ResolveSubdomain(ctx context.Context, subdomain string) (*data.Tenant, error) {
	return r.resolve(ctx, "sub:"+subdomain, func() (*data.Tenant, error) {
		return r.tenants.GetBySubdomain(ctx, subdomain)
	})
}

func (r *TenantResolver) resolve(ctx context.Context, cacheKey string, fetch func() (*data.Tenant, error)) (*data.Tenant, error) {
	tnt, cached := r.cache.Get(cacheKey)
	if !cached {
		var err error
		tnt, err = fetch()
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("fetching tenant for %s: %w", cacheKey, err)
		}
		r.cache.Add(cacheKey, tnt)
	}

	if tnt.Status != data.ActiveTenantStatus {
		return tnt, ErrTenantInactive
	}
	return tnt, nil
}

// Invalidate drops a tenant from the cache so the next resolution hits the
// registry.
func (r *TenantResolver) Invalidate(tnt *data.Tenant) {
	if tnt == nil {
		return
	}
	r.cache.Remove("id:" + tnt.ID)
	r.cache.Remove("sub:" + tnt.Subdomain)
}
