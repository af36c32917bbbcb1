package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	"github.com/propsuite/property-management-backend/db"
	"github.com/propsuite/property-management-backend/internal/auth"
	"github.com/propsuite/property-management-backend/internal/cert"
	"github.com/propsuite/property-management-backend/internal/crashtracker"
	"github.com/propsuite/property-management-backend/internal/data"
	"github.com/propsuite/property-management-backend/internal/dns"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/provisioning"
	"github.com/propsuite/property-management-backend/internal/resolver"
	"github.com/propsuite/property-management-backend/internal/serve/httperror"
	"github.com/propsuite/property-management-backend/internal/serve/httphandler"
	"github.com/propsuite/property-management-backend/internal/serve/middleware"
	"github.com/propsuite/property-management-backend/internal/utils"
)

const ServiceID = "pms-api"

// Config carries everything Run needs to drive an HTTP listener with graceful
// shutdown.
type Config struct {
	ListenAddr          string
	Handler             http.Handler
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	IdleTimeout         time.Duration
	ShutdownGracePeriod time.Duration
	OnStarting          func()
	OnStopping          func()
}

type HTTPServerInterface interface {
	Run(conf Config)
}

type HTTPServer struct{}

// Run serves conf.Handler until SIGINT or SIGTERM, then drains in-flight
// requests within the shutdown grace period.
func (h *HTTPServer) Run(conf Config) {
	if conf.OnStarting != nil {
		conf.OnStarting()
	}

	server := &http.Server{
		Addr:         conf.ListenAddr,
		Handler:      conf.Handler,
		ReadTimeout:  conf.ReadTimeout,
		WriteTimeout: conf.WriteTimeout,
		IdleTimeout:  conf.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("error running HTTP server: %v", err)
		}
	case <-shutdown:
		gracePeriod := conf.ShutdownGracePeriod
		if gracePeriod == 0 {
			gracePeriod = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), gracePeriod)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Errorf("error shutting down HTTP server: %v", err)
		}
	}

	if conf.OnStopping != nil {
		conf.OnStopping()
	}
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	DatabaseDSN        string
	MainDomain         string
	ServerIP           string
	JWTSecret          string
	AdminAccount       string
	AdminAPIKey        string
	CorsAllowedOrigins []string
	RateLimitPerMinute int

	CloudflareAPIToken string
	CloudflareZoneID   string
	CertbotBinary      string
	CertbotEmail       string
	SeedAdminEmail     string
	SeedAdminPassword  string
	SeedServiceToken   string

	MonitorService     monitor.MonitorServiceInterface
	CrashTrackerClient crashtracker.CrashTrackerClient

	dbConnectionPool    db.DBConnectionPool
	models              *data.Models
	jwtManager          auth.JWTManager
	tenantResolver      *resolver.TenantResolver
	provisioningManager *provisioning.Manager
	certProvider        cert.Provider
	tracker             *monitor.PerformanceTracker
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	if opts.CertbotEmail != "" {
		if err := utils.ValidateEmail(opts.CertbotEmail); err != nil {
			return fmt.Errorf("validating certbot email: %w", err)
		}
	}

	// Set crash tracker LogAndReportErrors as DefaultReportErrorFunc
	httperror.SetDefaultReportErrorFunc(opts.CrashTrackerClient.LogAndReportErrors)

	dbConnectionPool, err := db.OpenDBConnectionPool(opts.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connecting to the database: %w", err)
	}
	opts.dbConnectionPool = dbConnectionPool

	opts.models, err = data.NewModels(dbConnectionPool)
	if err != nil {
		return fmt.Errorf("creating models for Serve: %w", err)
	}

	if opts.JWTSecret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}
	opts.jwtManager = auth.NewJWTManager(opts.JWTSecret)

	opts.tenantResolver, err = resolver.NewTenantResolver(resolver.Options{
		Tenants:    opts.models.Tenants,
		MainDomain: opts.MainDomain,
	})
	if err != nil {
		return fmt.Errorf("creating tenant resolver: %w", err)
	}

	dnsProvider := dns.NewCloudflareProvider(dns.CloudflareOptions{
		APIToken: opts.CloudflareAPIToken,
		ZoneID:   opts.CloudflareZoneID,
	})
	if !dnsProvider.IsConfigured() {
		log.Warn("Cloudflare DNS provider is not configured, DNS provisioning steps will be skipped")
	}

	opts.certProvider = cert.NewCertbotProvider(cert.CertbotOptions{
		Binary:             opts.CertbotBinary,
		Email:              opts.CertbotEmail,
		CloudflareAPIToken: opts.CloudflareAPIToken,
	})

	opts.tracker = monitor.NewPerformanceTracker()

	opts.provisioningManager, err = provisioning.NewManager(provisioning.ManagerOptions{
		Tenants:           opts.models.Tenants,
		ProvisioningLogs:  opts.models.ProvisioningLogs,
		TenantEvents:      opts.models.TenantEvents,
		SchemaProvisioner: provisioning.NewPostgresSchemaProvisioner(dbConnectionPool),
		DNSProvider:       dnsProvider,
		CertProvider:      opts.certProvider,
		AdminSeeder: provisioning.NewHTTPAdminSeeder(provisioning.HTTPAdminSeederOptions{
			AdminEmail:    opts.SeedAdminEmail,
			AdminPassword: opts.SeedAdminPassword,
			ServiceToken:  opts.SeedServiceToken,
		}),
		Tracker:            opts.tracker,
		CrashTrackerClient: opts.CrashTrackerClient,
		MainDomain:         opts.MainDomain,
		ServerIP:           opts.ServerIP,
	})
	if err != nil {
		return fmt.Errorf("creating provisioning manager: %w", err)
	}

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Property Management API Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			log.Info("Closing the database connection...")
			if closeErr := opts.dbConnectionPool.Close(); closeErr != nil {
				log.Errorf("error closing database connection: %s", closeErr.Error())
			}

			log.Info("Stopping Property Management API Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))
	mux.Use(middleware.TrackerRequestHandler(o.tracker))

	rateLimit := o.RateLimitPerMinute
	if rateLimit <= 0 {
		rateLimit = 120
	}
	mux.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	mux.Get("/health", httphandler.HealthHandler{
		Version:          o.Version,
		ServiceID:        ServiceID,
		ReleaseID:        o.GitCommit,
		DBConnectionPool: o.dbConnectionPool,
		Tracker:          o.tracker,
	}.ServeHTTP)

	// Admin routes, protected by basic auth.
	mux.Group(func(r chi.Router) {
		r.Use(middleware.BasicAuthMiddleware(o.AdminAccount, o.AdminAPIKey))

		r.Route("/tenants", func(r chi.Router) {
			tenantsHandler := httphandler.TenantsHandler{
				Manager:        o.provisioningManager,
				Tenants:        o.models.Tenants,
				TenantEvents:   o.models.TenantEvents,
				Resolver:       o.tenantResolver,
				MonitorService: o.MonitorService,
			}
			r.Post("/", tenantsHandler.Post)
			r.Get("/", tenantsHandler.GetAll)
			r.Get("/{arg}", tenantsHandler.GetByIDOrSubdomain)
			r.Get("/{arg}/status", tenantsHandler.GetStatus)
			r.Get("/{arg}/events", tenantsHandler.GetEvents)
			r.Post("/{arg}/suspend", tenantsHandler.Suspend)
			r.Post("/{arg}/activate", tenantsHandler.Activate)
			r.Patch("/{arg}", tenantsHandler.Patch)
			r.Delete("/{arg}", tenantsHandler.Delete)
		})

		r.Route("/certificates", func(r chi.Router) {
			certificatesHandler := httphandler.CertificatesHandler{
				CertProvider: o.certProvider,
				MainDomain:   o.MainDomain,
			}
			r.Post("/wildcard", certificatesHandler.IssueWildcard)
			r.Get("/{subdomain}", certificatesHandler.GetStatus)
			r.Post("/{subdomain}", certificatesHandler.Issue)
			r.Post("/{subdomain}/renew", certificatesHandler.Renew)
		})

		r.Route("/monitoring", func(r chi.Router) {
			monitoringHandler := httphandler.MonitoringHandler{Tracker: o.tracker}
			r.Get("/provisioning", monitoringHandler.GetProvisioningStats)
			r.Get("/api", monitoringHandler.GetAPIStats)
			r.Get("/alerts", monitoringHandler.GetAlerts)
			r.Get("/health", monitoringHandler.GetHealth)
		})
	})

	// Heartbeats resolve their own subdomain so an unseen tenant can register
	// lazily on its first ping.
	heartbeatHandler := httphandler.HeartbeatHandler{
		Tenants:        o.models.Tenants,
		TenantEvents:   o.models.TenantEvents,
		Resolver:       o.tenantResolver,
		MonitorService: o.MonitorService,
	}
	mux.Put("/heartbeat", heartbeatHandler.Touch)
	mux.Get("/heartbeat", heartbeatHandler.GetStatus)

	// Tenant-scoped routes: the tenant comes from the Host subdomain, a
	// header, or the subdomain query parameter, and the bearer token must be
	// bound to that tenant.
	mux.Group(func(r chi.Router) {
		r.Use(middleware.ResolveTenantMiddleware(o.tenantResolver))
		r.Use(middleware.EnsureTenantMiddleware)
		r.Use(middleware.AuthenticateMiddleware(o.jwtManager))
		r.Use(middleware.TenantIsolationMiddleware(o.jwtManager))

		r.Get("/me", httphandler.ProfileHandler{JWTManager: o.jwtManager}.GetProfile)
	})

	return mux
}
