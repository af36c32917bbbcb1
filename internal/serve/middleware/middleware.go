package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/internal/auth"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/resolver"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/tenantcontext"
	"github.com/propsuite/property-management-backend/internal/utils"
)

// RecoverHandler is a middleware that recovers from panics and logs the error.
func RecoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", r)
			}

			// No need to recover when the client has disconnected:
			if errors.Is(err, http.ErrAbortHandler) {
				panic(err)
			}

			ctx := req.Context()
			log.WithContext(ctx).Error(err)
			httperror.InternalError(ctx, "", err, nil).Render(rw)
		}()

		next.ServeHTTP(rw, req)
	})
}

// MetricsRequestHandler is a middleware that monitors http requests, and export the data
// to the metrics server
func MetricsRequestHandler(monitorService monitor.MonitorServiceInterface) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			duration := time.Since(then)

			labels := monitor.HTTPRequestLabels{
				Status: fmt.Sprintf("%d", mw.Status()),
				Route:  utils.GetRoutePattern(req),
				Method: req.Method,
			}

			err := monitorService.MonitorHttpRequestDuration(duration, labels)
			if err != nil {
				log.WithContext(req.Context()).Errorf("Error trying to monitor request time: %s", err)
			}
		})
	}
}

// TrackerRequestHandler feeds request timings into the in-memory performance
// tracker that backs the monitoring endpoints.
func TrackerRequestHandler(tracker *monitor.PerformanceTracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)
			then := time.Now()
			next.ServeHTTP(mw, req)

			tracker.TrackAPIRequest(utils.GetRoutePattern(req), time.Since(then), mw.Status())
		})
	}
}

// LoggingMiddleware is a middleware that logs requests to the logger.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		mw := chimiddleware.NewWrapResponseWriter(rw, req.ProtoMajor)

		ctx := req.Context()
		l := log.WithContext(ctx).WithFields(log.Fields{
			"method": req.Method,
			"path":   req.URL.String(),
			"req":    chimiddleware.GetReqID(ctx),
		})
		if tnt, err := tenantcontext.GetTenantFromContext(ctx); err == nil {
			l = l.WithFields(log.Fields{"tenant_subdomain": tnt.Subdomain, "tenant_id": tnt.ID})
		}

		l.WithFields(log.Fields{
			"ip":        req.RemoteAddr,
			"host":      req.Host,
			"useragent": req.Header.Get("User-Agent"),
		}).Info("starting request")

		started := time.Now()
		next.ServeHTTP(mw, req)

		l.WithFields(log.Fields{
			"status":   mw.Status(),
			"bytes":    mw.BytesWritten(),
			"duration": time.Since(started),
			"route":    chi.RouteContext(req.Context()).RoutePattern(),
		}).Info("finished request")
	})
}

func CorsMiddleware(corsAllowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		cors := cors.New(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedHeaders: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		})

		return cors.Handler(next)
	}
}

// ResolveTenantMiddleware is a middleware that resolves the tenant from the
// request and injects it into the context. Unknown tenants get a 404 and
// inactive tenants a 403; requests without any tenant identifier pass
// through so tenant-unaware endpoints keep working.
func ResolveTenantMiddleware(tenantResolver *resolver.TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			tnt, err := tenantResolver.ResolveFromRequest(req)
			switch {
			case err == nil:
				ctx = tenantcontext.SetTenantInContext(ctx, tnt)
				next.ServeHTTP(rw, req.WithContext(ctx))
			case errors.Is(err, resolver.ErrNoTenantInRequest):
				next.ServeHTTP(rw, req)
			case errors.Is(err, resolver.ErrTenantInactive):
				httperror.Forbidden("Tenant is not active", err, nil).Render(rw)
			case errors.Is(err, resolver.ErrTenantNotFound):
				httperror.NotFound("Tenant not found", err, nil).Render(rw)
			default:
				httperror.InternalError(ctx, "", err, nil).Render(rw)
			}
		})
	}
}

// EnsureTenantMiddleware is a middleware that ensures the tenant is in the request context.
func EnsureTenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		if _, err := tenantcontext.GetTenantFromContext(ctx); err != nil {
			httperror.BadRequest("Tenant not found in context", err, nil).Render(rw)
			return
		}

		next.ServeHTTP(rw, req)
	})
}

// AuthenticateMiddleware is a middleware that validates the Authorization header for
// authenticated endpoints.
func AuthenticateMiddleware(jwtManager auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			authHeader := req.Header.Get("Authorization")
			if authHeader == "" {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			authHeaderParts := strings.Split(authHeader, " ")
			if len(authHeaderParts) != 2 {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx := req.Context()
			token := authHeaderParts[1]
			valid, err := jwtManager.ValidateToken(ctx, token)
			if err != nil {
				log.WithContext(ctx).Errorf("error validating auth token: %v", err)
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}
			if !valid {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			user, err := jwtManager.GetUserFromToken(ctx, token)
			if err != nil || user == nil {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			ctx = tenantcontext.SetTokenInContext(ctx, token)
			ctx = tenantcontext.SetUserIDInContext(ctx, user.ID)

			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// TenantIsolationMiddleware rejects authenticated requests whose token is
// bound to a different tenant than the one the request resolved to. It must
// run after both ResolveTenantMiddleware and AuthenticateMiddleware.
func TenantIsolationMiddleware(jwtManager auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			tnt, err := tenantcontext.GetTenantFromContext(ctx)
			if err != nil {
				httperror.BadRequest("Tenant not found in context", err, nil).Render(rw)
				return
			}

			token, err := tenantcontext.GetTokenFromContext(ctx)
			if err != nil {
				httperror.Unauthorized("", err, nil).Render(rw)
				return
			}

			tokenTenantID, err := jwtManager.GetTenantIDFromToken(ctx, token)
			if err != nil {
				httperror.Unauthorized("", err, nil).Render(rw)
				return
			}

			if tokenTenantID != tnt.ID && tokenTenantID != tnt.Subdomain {
				log.WithContext(ctx).WithFields(log.Fields{
					"token_tenant":      tokenTenantID,
					"request_tenant":    tnt.ID,
					"request_subdomain": tnt.Subdomain,
				}).Warn("cross-tenant access attempt blocked")
				httperror.Forbidden("Token is not valid for this tenant", nil, nil).Render(rw)
				return
			}

			next.ServeHTTP(rw, req)
		})
	}
}

func BasicAuthMiddleware(adminAccount, adminApiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			if adminAccount == "" || adminApiKey == "" {
				httperror.InternalError(ctx, "Admin account and API key are not set", nil, nil).Render(rw)
				return
			}

			accountUserName, apiKey, ok := req.BasicAuth()
			if !ok {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			// Using constant time comparison to avoid timing attacks
			if accountUserName != adminAccount || subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminApiKey)) != 1 {
				httperror.Unauthorized("", nil, nil).Render(rw)
				return
			}

			log.WithContext(ctx).Infof("[AdminAuth] - Admin authenticated with account %s", adminAccount)
			next.ServeHTTP(rw, req)
		})
	}
}
