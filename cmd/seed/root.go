package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"profanity/pkg/config"
)

var (
	configPath string
	logLevel   string
	languages  []string

	httpClient = &http.Client{Timeout: 2 * time.Minute}
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Build and upload the profanity index",
	Long: `Downloads the public multi-language word lists, optionally embeds them
locally, and uploads the result to the admin endpoints of the service.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		config.SetLogLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cmd/server/config.toml", "service config, used for the embedding settings")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSliceVar(&languages, "lang", nil, "only fetch these languages (default all)")
}
