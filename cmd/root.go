package cmd

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/propsuite/property-management-backend/internal/monitor"
)

// globalOptions holds the global CLI options that can be applied to any
// command or subcommand.
type globalOptionsType struct {
	Version     string
	GitCommit   string
	LogLevel    string
	Environment string
	SentryDSN   string
	DatabaseURL string
	MainDomain  string
}

var globalOptions globalOptionsType

const envPrefix = "PMS"

// bindFlags wires every cobra flag of cmd to viper, with environment variable
// fallbacks like PMS_DATABASE_URL for --database-url.
func bindFlags(cmd *cobra.Command) {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		log.Fatalf("Error binding persistent flags: %s", err.Error())
	}
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		log.Fatalf("Error binding flags: %s", err.Error())
	}
}

func rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "property-management-backend",
		Short:   "Property Management Backend",
		Long:    "Multi-tenant backend for property management sites: tenant registry, provisioning, and isolation.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			bindFlags(cmd)

			globalOptions.LogLevel = viper.GetString("log-level")
			globalOptions.Environment = viper.GetString("environment")
			globalOptions.SentryDSN = viper.GetString("sentry-dsn")
			globalOptions.DatabaseURL = viper.GetString("database-url")
			globalOptions.MainDomain = viper.GetString("main-domain")

			logLevel, err := log.ParseLevel(globalOptions.LogLevel)
			if err != nil {
				log.Fatalf("Invalid log level %q: %s", globalOptions.LogLevel, err.Error())
			}
			log.SetLevel(logLevel)
			if globalOptions.Environment == "production" {
				log.SetFormatter(&log.JSONFormatter{})
			}

			log.Info("Version: ", globalOptions.Version)
			log.Info("GitCommit: ", globalOptions.GitCommit)
		},
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", `The log level used in this project. Options: "trace", "debug", "info", "warn", "error", "fatal", or "panic".`)
	rootCmd.PersistentFlags().String("environment", "development", `The environment where the application is running. Example: "development", "staging", "production".`)
	rootCmd.PersistentFlags().String("sentry-dsn", "", "The DSN (client key) of the Sentry project. If not provided, Sentry will not be used.")
	rootCmd.PersistentFlags().String("database-url", "postgres://localhost:5432/pms?sslmode=disable", "Postgres DB URL")
	rootCmd.PersistentFlags().String("main-domain", "propsuite.com", "The root domain tenant subdomains hang off of.")

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))
	rootCmd.AddCommand((&DatabaseCommand{}).Command())

	return rootCmd
}
