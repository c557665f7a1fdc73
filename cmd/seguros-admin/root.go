package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"seguros/internal/apiclient"
	"seguros/internal/cli"
	"seguros/internal/config"
	"seguros/internal/dataset"
	"seguros/internal/log"
	"seguros/internal/services"
)

var (
	apiURL   string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "seguros-admin",
	Short: "seguros-admin manages and inspects the Argentine insurance market dataset",
	Long: `seguros-admin imports the quarterly SSN records into the local SQLite
store, exports them to CSV, Parquet or Excel, and prints market summaries
straight from the configured data source or from a running seguros API.

Configuration is read from the environment (and a .env file), the same
variables the seguros server uses.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()
		if logLevel == "" {
			logLevel = os.Getenv("LOG_LEVEL")
		}
		logger = cli.SetupLogger(logLevel)
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "read from a running seguros API instead of the data source (e.g. http://localhost:8050)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// marketReader opens the reader the read-only commands use: the remote API
// when --api or DASHBOARD_API_URL is set, the configured data source
// otherwise. The returned func releases the source.
func marketReader(ctx context.Context) (services.MarketReader, func(), error) {
	url := apiURL
	if url == "" {
		url = cfg.DashboardAPIURL
	}
	if url != "" {
		client := apiclient.New(url, cfg.APITimeout, logger)
		if status, _ := client.Health(ctx); status != "ok" {
			return nil, nil, fmt.Errorf("API at %s is not reachable", url)
		}
		return client, func() {}, nil
	}

	res := cli.OpenSource(ctx, logger, cfg, cfg.DataSource)
	store := dataset.NewStore(res.Reader, logger)
	start := time.Now()
	d, err := store.Load(ctx)
	if err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("load dataset: %w", err)
	}
	logger.Debug("Dataset loaded",
		log.FieldRecords, d.Len(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return services.NewMarketService(store, nil, logger), func() { _ = res.Close() }, nil
}
