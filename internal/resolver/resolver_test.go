package resolver

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/propsuite/property-management-backend/internal/data"
)

func newTestResolver(t *testing.T) (*TenantResolver, *data.TenantRegistryMock) {
	t.Helper()

	tenantsMock := &data.TenantRegistryMock{}
	r, err := NewTenantResolver(Options{
		Tenants:    tenantsMock,
		MainDomain: "propsuite.com",
		CacheTTL:   time.Minute,
	})
	require.NoError(t, err)
	return r, tenantsMock
}

func Test_TenantResolver_resolvesFromHostSubdomain(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	activeTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.ActiveTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(activeTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"

	tnt, err := r.ResolveFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, activeTenant, tnt)
	tenantsMock.AssertExpectations(t)
}

func Test_TenantResolver_hostTakesPrecedenceOverHeader(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	hostTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.ActiveTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(hostTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"
	req.Header.Set(HeaderClientSiteID, "beta")

	tnt, err := r.ResolveFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "acme", tnt.Subdomain)
	tenantsMock.AssertNotCalled(t, "GetBySubdomain", mock.Anything, "beta")
}

func Test_TenantResolver_queryParamFallback(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	paramTenant := &data.Tenant{ID: "tnt-3", Subdomain: "gamma", Status: data.ActiveTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "gamma").Return(paramTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties?subdomain=gamma", nil)
	req.Host = "propsuite.com"

	tnt, err := r.ResolveFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "gamma", tnt.Subdomain)
}

func Test_TenantResolver_uuidHeaderResolvesByID(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	activeTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.ActiveTenantStatus}
	tenantsMock.On("GetByID", mock.Anything, "tnt-1").Return(activeTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Header.Set(HeaderClientSiteUUID, "tnt-1")

	tnt, err := r.ResolveFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, activeTenant, tnt)
}

func Test_TenantResolver_cachesResolutions(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	activeTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.ActiveTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(activeTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"

	for i := 0; i < 3; i++ {
		tnt, err := r.ResolveFromRequest(req)
		require.NoError(t, err)
		assert.Equal(t, activeTenant, tnt)
	}
	tenantsMock.AssertNumberOfCalls(t, "GetBySubdomain", 1)
}

func Test_TenantResolver_invalidateForcesRefetch(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	activeTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.ActiveTenantStatus}
	suspendedTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.SuspendedTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(activeTenant, nil).Once()
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(suspendedTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"

	_, err := r.ResolveFromRequest(req)
	require.NoError(t, err)

	r.Invalidate(activeTenant)

	_, err = r.ResolveFromRequest(req)
	assert.ErrorIs(t, err, ErrTenantInactive)
	tenantsMock.AssertExpectations(t)
}

func Test_TenantResolver_inactiveTenant(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	suspendedTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.SuspendedTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(suspendedTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"

	tnt, err := r.ResolveFromRequest(req)
	assert.ErrorIs(t, err, ErrTenantInactive)
	assert.NotNil(t, tnt)
}

func Test_TenantResolver_unknownTenant(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	tenantsMock.On("GetBySubdomain", mock.Anything, "ghost").Return(nil, data.ErrRecordNotFound).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "ghost.propsuite.com"

	_, err := r.ResolveFromRequest(req)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func Test_TenantResolver_noTenantIdentifier(t *testing.T) {
	r, _ := newTestResolver(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.Host = "propsuite.com"

	_, err := r.ResolveFromRequest(req)
	assert.ErrorIs(t, err, ErrNoTenantInRequest)
}

func Test_TenantResolver_pendingTenantIsInactive(t *testing.T) {
	r, tenantsMock := newTestResolver(t)

	pendingTenant := &data.Tenant{ID: "tnt-1", Subdomain: "acme", Status: data.PendingTenantStatus}
	tenantsMock.On("GetBySubdomain", mock.Anything, "acme").Return(pendingTenant, nil).Once()

	req := httptest.NewRequest("GET", "/properties", nil)
	req.Host = "acme.propsuite.com"

	_, err := r.ResolveFromRequest(req)
	assert.ErrorIs(t, err, ErrTenantInactive)
}
