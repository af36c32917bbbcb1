package serve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/propsuite/property-management-backend/db"
	"github.com/propsuite/property-management-backend/internal/auth"
	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/resolver"
)

type mockHTTPServer struct {
	mock.Mock
}

func (m *mockHTTPServer) Run(conf Config) {
	m.Called(conf)
}

// pingStubPool satisfies db.DBConnectionPool for the health endpoint; only
// Ping is ever called.
type pingStubPool struct {
	db.DBConnectionPool
}

func (p pingStubPool) Ping(ctx context.Context) error { return nil }

func serveOptionsForTest(t *testing.T) ServeOptions {
	t.Helper()

	registry := &data.TenantRegistryMock{}
	tenantResolver, err := resolver.NewTenantResolver(resolver.Options{
		Tenants:    registry,
		MainDomain: "propsuite.com",
	})
	require.NoError(t, err)

	mockMonitorService := &monitor.MockMonitorService{}
	mockMonitorService.On("MonitorHttpRequestDuration", mock.Anything, mock.Anything).Return(nil).Maybe()

	return ServeOptions{
		Environment:      "test",
		GitCommit:        "1234567890abcdef",
		Port:             8000,
		Version:          "x.y.z",
		MainDomain:       "propsuite.com",
		AdminAccount:     "admin_account",
		AdminAPIKey:      "admin_api_key",
		MonitorService:   mockMonitorService,
		dbConnectionPool: pingStubPool{},
		models:           &data.Models{},
		jwtManager:       auth.NewJWTManager("jwt_secret_1234567890"),
		tenantResolver:   tenantResolver,
		tracker:          monitor.NewPerformanceTracker(),
	}
}

func Test_ServeOptions_SetupDependencies_invalidCertbotEmail(t *testing.T) {
	opts := ServeOptions{CertbotEmail: "not-an-email"}
	err := opts.SetupDependencies()
	assert.ErrorContains(t, err, "validating certbot email")
}

func Test_handleHTTP_registersExpectedRoutes(t *testing.T) {
	mux := handleHTTP(serveOptionsForTest(t))

	routes := map[string]bool{}
	err := chi.Walk(mux, func(method, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		routes[fmt.Sprintf("%s %s", method, route)] = true
		return nil
	})
	require.NoError(t, err)

	wantRoutes := []string{
		"GET /health",
		"POST /tenants/",
		"GET /tenants/",
		"GET /tenants/{arg}",
		"GET /tenants/{arg}/status",
		"GET /tenants/{arg}/events",
		"POST /tenants/{arg}/suspend",
		"POST /tenants/{arg}/activate",
		"PATCH /tenants/{arg}",
		"DELETE /tenants/{arg}",
		"POST /certificates/wildcard",
		"GET /certificates/{subdomain}",
		"POST /certificates/{subdomain}",
		"POST /certificates/{subdomain}/renew",
		"GET /monitoring/provisioning",
		"GET /monitoring/api",
		"GET /monitoring/alerts",
		"GET /monitoring/health",
		"PUT /heartbeat",
		"GET /heartbeat",
		"GET /me",
	}
	for _, want := range wantRoutes {
		assert.Truef(t, routes[want], "route %q is not registered", want)
	}
}

func Test_handleHTTP_healthEndpoint(t *testing.T) {
	mux := handleHTTP(serveOptionsForTest(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status": "pass"`)
	assert.Contains(t, rr.Body.String(), `"version": "x.y.z"`)
}

func Test_handleHTTP_adminRoutesRequireBasicAuth(t *testing.T) {
	mux := handleHTTP(serveOptionsForTest(t))

	req := httptest.NewRequest(http.MethodGet, "/monitoring/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/monitoring/health", nil)
	req.SetBasicAuth("admin_account", "admin_api_key")
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_handleHTTP_tenantScopedRoutesRequireATenant(t *testing.T) {
	mux := handleHTTP(serveOptionsForTest(t))

	// No tenant header and a bare host: the resolver finds nothing and the
	// ensure middleware rejects the request.
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Host = "propsuite.com"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func Test_handleHTTP_heartbeatRequiresATenantIdentifier(t *testing.T) {
	mux := handleHTTP(serveOptionsForTest(t))

	req := httptest.NewRequest(http.MethodPut, "/heartbeat", nil)
	req.Host = "propsuite.com"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func Test_MetricsServe(t *testing.T) {
	mockMonitorService := &monitor.MockMonitorService{}
	mockMonitorService.On("GetMetricHttpHandler").Return(http.NotFoundHandler(), nil).Once()

	mHTTPServer := mockHTTPServer{}
	mHTTPServer.On("Run", mock.AnythingOfType("serve.Config")).Run(func(args mock.Arguments) {
		conf, ok := args.Get(0).(Config)
		require.True(t, ok)
		assert.Equal(t, ":8002", conf.ListenAddr)
		assert.NotNil(t, conf.Handler)
	}).Once()

	err := MetricsServe(MetricsServeOptions{
		Port:           8002,
		Environment:    "test",
		MonitorService: mockMonitorService,
		MetricType:     monitor.MetricTypePrometheus,
	}, &mHTTPServer)
	require.NoError(t, err)

	mHTTPServer.AssertExpectations(t)
	mockMonitorService.AssertExpectations(t)
}
