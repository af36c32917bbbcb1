package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/propsuite/property-management-backend/internal/crashtracker"
	"github.com/propsuite/property-management-backend/internal/monitor"
	"github.com/propsuite/property-management-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Property Management API",
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			crashTrackerType := crashtracker.CrashTrackerTypeDryRun
			if globalOptions.SentryDSN != "" {
				crashTrackerType = crashtracker.CrashTrackerTypeSentry
			}
			crashTrackerClient, err := crashtracker.GetClient(ctx, crashtracker.CrashTrackerOptions{
				CrashTrackerType: crashTrackerType,
				Environment:      globalOptions.Environment,
				GitCommit:        globalOptions.GitCommit,
				SentryDSN:        globalOptions.SentryDSN,
			})
			if err != nil {
				log.Fatalf("Error creating crash tracker client: %s", err.Error())
			}

			metricType, err := monitor.ParseMetricType(viper.GetString("metrics-type"))
			if err != nil {
				log.Fatalf("Error parsing metrics type: %s", err.Error())
			}
			if err = monitorService.Start(monitor.MetricOptions{MetricType: metricType, Environment: globalOptions.Environment}); err != nil {
				log.Fatalf("Error starting monitor service: %s", err.Error())
			}

			serveOpts := serve.ServeOptions{
				Environment:        globalOptions.Environment,
				GitCommit:          globalOptions.GitCommit,
				Version:            globalOptions.Version,
				DatabaseDSN:        globalOptions.DatabaseURL,
				MainDomain:         globalOptions.MainDomain,
				Port:               viper.GetInt("port"),
				ServerIP:           viper.GetString("server-ip"),
				JWTSecret:          viper.GetString("jwt-secret"),
				AdminAccount:       viper.GetString("admin-account"),
				AdminAPIKey:        viper.GetString("admin-api-key"),
				CorsAllowedOrigins: viper.GetStringSlice("cors-allowed-origins"),
				RateLimitPerMinute: viper.GetInt("rate-limit-per-minute"),
				CloudflareAPIToken: viper.GetString("cloudflare-api-token"),
				CloudflareZoneID:   viper.GetString("cloudflare-zone-id"),
				CertbotBinary:      viper.GetString("certbot-binary"),
				CertbotEmail:       viper.GetString("certbot-email"),
				SeedAdminEmail:     viper.GetString("seed-admin-email"),
				SeedAdminPassword:  viper.GetString("seed-admin-password"),
				SeedServiceToken:   viper.GetString("seed-service-token"),
				MonitorService:     monitorService,
				CrashTrackerClient: crashTrackerClient,
			}

			metricsServeOpts := serve.MetricsServeOptions{
				Port:           viper.GetInt("metrics-port"),
				Environment:    globalOptions.Environment,
				MonitorService: monitorService,
				MetricType:     metricType,
			}

			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}

	cmd.Flags().Int("port", 8000, "Port where the server will be listening on.")
	cmd.Flags().Int("metrics-port", 8002, "Port where the metrics server will be listening on.")
	cmd.Flags().String("metrics-type", string(monitor.MetricTypePrometheus), `Metric monitor type. Options: "PROMETHEUS".`)
	cmd.Flags().String("server-ip", "", "Public IPv4 address tenant DNS A records point at.")
	cmd.Flags().String("jwt-secret", "", "Shared secret used to sign and verify tenant-bound JWTs.")
	cmd.Flags().String("admin-account", "", "Basic auth account for the admin API.")
	cmd.Flags().String("admin-api-key", "", "Basic auth API key for the admin API.")
	cmd.Flags().StringSlice("cors-allowed-origins", []string{"*"}, `CORS allowed origins. "*" allows any origin.`)
	cmd.Flags().Int("rate-limit-per-minute", 120, "Per-IP request limit per minute.")
	cmd.Flags().String("cloudflare-api-token", "", "Cloudflare API token used for tenant DNS records and ACME DNS challenges.")
	cmd.Flags().String("cloudflare-zone-id", "", "Cloudflare zone ID of the main domain.")
	cmd.Flags().String("certbot-binary", "", "Path to the certbot binary. Defaults to certbot on PATH.")
	cmd.Flags().String("certbot-email", "", "Contact e-mail registered with the ACME account.")
	cmd.Flags().String("seed-admin-email", "", "E-mail of the administrator account seeded into new tenants.")
	cmd.Flags().String("seed-admin-password", "", "Password of the administrator account seeded into new tenants.")
	cmd.Flags().String("seed-service-token", "", "Token sent on internal admin seeding requests.")

	return cmd
}
