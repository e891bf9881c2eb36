package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"StockDash/internal/config"
)

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	cfg := &config.Config{}

	root := &cobra.Command{
		Use:          "stockdash",
		Short:        "Stock price dashboard with optional projection",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			// .env is optional; real environment variables win.
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				log.Printf("[WARN] load .env: %v", err)
			}
			c, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("config validation: %w", err)
			}
			*cfg = *c
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config.yaml (env CONFIG_PATH)")

	root.AddCommand(
		newServeCmd(cfg),
		newFetchCmd(cfg),
		newForecastCmd(cfg),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stockdash %s\n", version)
		},
	}
}
