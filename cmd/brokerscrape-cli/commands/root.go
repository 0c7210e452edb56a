package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"brokerscrape/internal/components/telemetry"
	"brokerscrape/pkg/configutil"
	"brokerscrape/pkg/serviceutil"

	"github.com/spf13/cobra"
)

type Config struct {
	Variant      string `json:"variant"`
	BaseUrl      string `json:"base_url"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SecretImage  string `json:"secret_image"`
	SecretPhrase string `json:"secret_phrase"`
	// Timezone is the zone date flags are interpreted in.
	Timezone         string               `json:"timezone"`
	CloudflareBypass bool                 `json:"cloudflare_bypass"`
	Otlp             telemetry.OtlpConfig `json:"otlp"`
}

var (
	configPath *string
	dbPath     *string
	verbose    *bool

	cfg     Config
	tracing telemetry.Tracing
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file, <name>.local.json5 is merged over it.")
	dbPath = rootCmd.PersistentFlags().String("db", "", "A sqlite database to also write results to.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every request.")
}

var rootCmd = &cobra.Command{
	Use:   "brokerscrape-cli",
	Short: "brokerscrape-cli signs in to your brokerage and scrapes accounts, positions and transactions.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)

		var err error
		cfg, err = configutil.ReadConfig[Config](*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if cfg.Variant == "" {
			cfg.Variant = "classic"
		}
		if cfg.Timezone == "" {
			cfg.Timezone = "America/New_York"
		}

		tracing, err = telemetry.Setup(cmd.Context(), "brokerscrape-cli", cfg.Otlp)
		if err != nil {
			serviceutil.Fatal("failed to setup tracing", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tracing.Shutdown(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to flush traces:", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
