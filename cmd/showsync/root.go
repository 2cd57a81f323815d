package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "showsync",
	Short: "Track TV shows from trakt and TMDb in a local library",
	Long: `showsync keeps a local library of TV shows in sync with trakt (primary)
and TMDb (fallback). Cached data is served while fresh and refreshed
from the providers when stale.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/showsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
}
