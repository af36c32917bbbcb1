package httphandler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/resolver"
)

func heartbeatResolverForTest(t *testing.T, registry *data.TenantRegistryMock) *resolver.TenantResolver {
	t.Helper()
	r, err := resolver.NewTenantResolver(resolver.Options{
		Tenants:    registry,
		MainDomain: "propsuite.com",
	})
	require.NoError(t, err)
	return r
}

func heartbeatRequest(method, target, host, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Host = host
	return req
}

func Test_HeartbeatHandler_Touch(t *testing.T) {
	t.Run("records the heartbeat and returns aliveness", func(t *testing.T) {
		now := time.Now()
		updated := &data.Tenant{ID: "tenant-id", Subdomain: "bluedoor", Status: data.ActiveTenantStatus, LastSeen: &now}

		registry := &data.TenantRegistryMock{}
		registry.On("TouchHeartbeat", mock.Anything, "bluedoor", "").Return(updated, nil).Once()
		events := &data.TenantEventRegistryMock{}
		events.
			On("Insert", mock.Anything, "tenant-id", data.HeartbeatEvent, "heartbeat received", mock.Anything).
			Return(&data.TenantEvent{}, nil).
			Once()

		handler := HeartbeatHandler{Tenants: registry, TenantEvents: events, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, heartbeatRequest(http.MethodPut, "/heartbeat", "bluedoor.propsuite.com", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"alive": true`)
		registry.AssertExpectations(t)
		events.AssertExpectations(t)
	})

	t.Run("lazily registers an unseen subdomain", func(t *testing.T) {
		now := time.Now()
		created := &data.Tenant{ID: "new-id", Subdomain: "newcomer", Status: data.PendingTenantStatus, LastSeen: &now}

		registry := &data.TenantRegistryMock{}
		registry.On("TouchHeartbeat", mock.Anything, "newcomer", "").Return(created, nil).Once()
		events := &data.TenantEventRegistryMock{}
		events.On("Insert", mock.Anything, "new-id", data.HeartbeatEvent, mock.Anything, mock.Anything).Return(&data.TenantEvent{}, nil).Once()

		handler := HeartbeatHandler{Tenants: registry, TenantEvents: events, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, heartbeatRequest(http.MethodPut, "/heartbeat", "newcomer.propsuite.com", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"subdomain": "newcomer"`)
		registry.AssertExpectations(t)
	})

	t.Run("passes the reported api_url through", func(t *testing.T) {
		now := time.Now()
		updated := &data.Tenant{ID: "tenant-id", Subdomain: "bluedoor", LastSeen: &now}

		registry := &data.TenantRegistryMock{}
		registry.On("TouchHeartbeat", mock.Anything, "bluedoor", "https://bluedoor.propsuite.com").Return(updated, nil).Once()
		events := &data.TenantEventRegistryMock{}
		events.On("Insert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&data.TenantEvent{}, nil).Once()

		handler := HeartbeatHandler{Tenants: registry, TenantEvents: events, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		req := heartbeatRequest(http.MethodPut, "/heartbeat", "bluedoor.propsuite.com", `{"api_url": "https://bluedoor.propsuite.com"}`)
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		registry.AssertExpectations(t)
	})

	t.Run("returns 400 for an invalid api_url", func(t *testing.T) {
		registry := &data.TenantRegistryMock{}
		handler := HeartbeatHandler{Tenants: registry, TenantEvents: &data.TenantEventRegistryMock{}, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		req := heartbeatRequest(http.MethodPut, "/heartbeat", "bluedoor.propsuite.com", `{"api_url": "not a url"}`)
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "api_url")
		registry.AssertNotCalled(t, "TouchHeartbeat", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("returns 400 when the request carries no tenant identifier", func(t *testing.T) {
		registry := &data.TenantRegistryMock{}
		handler := HeartbeatHandler{Tenants: registry, TenantEvents: &data.TenantEventRegistryMock{}, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, heartbeatRequest(http.MethodPut, "/heartbeat", "propsuite.com", ""))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("returns 400 for a malformed subdomain", func(t *testing.T) {
		registry := &data.TenantRegistryMock{}
		handler := HeartbeatHandler{Tenants: registry, TenantEvents: &data.TenantEventRegistryMock{}, Resolver: heartbeatResolverForTest(t, registry)}

		req := heartbeatRequest(http.MethodPut, "/heartbeat", "propsuite.com", "")
		req.Header.Set(resolver.HeaderClientSiteID, "not_a_subdomain!")
		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.Touch).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func Test_HeartbeatHandler_GetStatus(t *testing.T) {
	t.Run("reports alive within the aliveness window", func(t *testing.T) {
		lastSeen := time.Now().Add(-time.Minute)
		fresh := &data.Tenant{ID: "tenant-id", Subdomain: "bluedoor", LastSeen: &lastSeen}

		registry := &data.TenantRegistryMock{}
		registry.On("GetBySubdomain", mock.Anything, "bluedoor").Return(fresh, nil).Once()

		handler := HeartbeatHandler{Tenants: registry, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetStatus).ServeHTTP(rr, heartbeatRequest(http.MethodGet, "/heartbeat", "bluedoor.propsuite.com", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"alive": true`)
	})

	t.Run("reports not alive when the heartbeat is stale", func(t *testing.T) {
		lastSeen := time.Now().Add(-data.AlivenessWindow - time.Minute)
		fresh := &data.Tenant{ID: "tenant-id", Subdomain: "bluedoor", LastSeen: &lastSeen}

		registry := &data.TenantRegistryMock{}
		registry.On("GetBySubdomain", mock.Anything, "bluedoor").Return(fresh, nil).Once()

		handler := HeartbeatHandler{Tenants: registry, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetStatus).ServeHTTP(rr, heartbeatRequest(http.MethodGet, "/heartbeat", "bluedoor.propsuite.com", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"alive": false`)
	})

	t.Run("reports not alive when the tenant never heartbeated", func(t *testing.T) {
		fresh := &data.Tenant{ID: "tenant-id", Subdomain: "bluedoor"}

		registry := &data.TenantRegistryMock{}
		registry.On("GetBySubdomain", mock.Anything, "bluedoor").Return(fresh, nil).Once()

		handler := HeartbeatHandler{Tenants: registry, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetStatus).ServeHTTP(rr, heartbeatRequest(http.MethodGet, "/heartbeat", "bluedoor.propsuite.com", ""))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"alive": false`)
	})

	t.Run("returns 404 for an unknown subdomain", func(t *testing.T) {
		registry := &data.TenantRegistryMock{}
		registry.On("GetBySubdomain", mock.Anything, "ghost").Return(nil, data.ErrRecordNotFound).Once()

		handler := HeartbeatHandler{Tenants: registry, Resolver: heartbeatResolverForTest(t, registry)}

		rr := httptest.NewRecorder()
		http.HandlerFunc(handler.GetStatus).ServeHTTP(rr, heartbeatRequest(http.MethodGet, "/heartbeat", "ghost.propsuite.com", ""))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
