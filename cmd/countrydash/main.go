package main

import (
	"countrydash/internal/cache"
	"countrydash/internal/client"
	"countrydash/internal/config"
	"countrydash/internal/httpclient"
	"countrydash/internal/logging"
	"countrydash/internal/service"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	timeout time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "countrydash",
	Short: "Country statistics dashboard backed by the REST Countries API",
	Long: `countrydash downloads every country from the REST Countries API once,
reduces each record to seven fields and serves the result as a web dashboard.

The same table can be exported, summarized and printed from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "countrydash.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for one-shot commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newTableService wires the upstream client, the cache and the service.
func newTableService(cfg *config.Config, logger *zap.Logger) service.TableService {
	restClient := client.NewRestCountriesClient(httpclient.New(cfg.GetSourceTimeout(), cfg.Source.UserAgent))
	restClient.BaseURL = cfg.Source.URL
	restClient.Fields = cfg.Source.Fields
	restClient.Retries = cfg.Source.Retries

	return service.NewTableService(cache.NewInMemoryCache(cfg.GetCacheTTL()), restClient, logger)
}
