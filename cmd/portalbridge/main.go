package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/morph-dev/portal-state-network-utils/gossiper"
)

const (
	flagConfig       = "config"
	flagBlock        = "block"
	flagDataDir      = "data-dir"
	flagWorkers      = "workers"
	flagMetricsAddr  = "metrics-addr"
	flagPortalClient = "portal-client"
	flagTimeout      = "timeout"
	flagConcurrency  = "concurrency"
	flagDB           = "db"
	flagReport       = "report"
)

func main() {
	cobra.EnableCommandSorting = false
	log.Logger = log.With().Caller().Logger()

	rootCmd := &cobra.Command{
		Use:          "portalbridge",
		Short:        "Generate and distribute Portal Network content of a block",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := viper.BindPFlags(cmd.Flags())
			if err != nil {
				return err
			}
			config := viper.GetString(flagConfig)
			if config == "" {
				return nil
			}
			viper.SetConfigFile(config)
			return viper.ReadInConfig()
		},
	}

	rootCmd.AddCommand(
		GossipCommand(),
		StoreCommand(),
		InspectCommand(),
	)

	flags := rootCmd.PersistentFlags()
	flags.String(flagConfig, "", "config file path")
	flags.Uint64(flagBlock, 0, "block number")
	flags.String(flagDataDir, "./data", "directory holding <block>.json block data files")
	flags.Int(flagWorkers, 0, "accounts decomposed concurrently, 0 for one per CPU")
	flags.String(flagMetricsAddr, "", "serve Prometheus metrics on this address")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Send()
	}
}

// newMetrics creates the distribution metrics and, when --metrics-addr is
// set, serves them over HTTP until the process exits.
func newMetrics() (*gossiper.Metrics, error) {
	reg := prometheus.NewRegistry()
	metrics, err := gossiper.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	addr := viper.GetString(flagMetricsAddr)
	if addr == "" {
		return metrics, nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("Serving metrics")
	return metrics, nil
}
