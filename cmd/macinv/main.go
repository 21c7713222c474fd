// macinv is the operator CLI for the MAC address inventory.
//
// Usage:
//
//	macinv template [--ap SITE] [-o FILE]     Write the import template
//	macinv export [--ap SITE] [-o FILE]       Export registered devices
//	macinv import FILE [--ap SITE] --actor-id ID [--actor-name NAME] [--actor-role ROLE]
//
// Configuration is read from the environment (and .env) exactly as the
// server reads it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/macinv/internal/application"
	"github.com/JonMunkholm/macinv/internal/config"
	"github.com/JonMunkholm/macinv/internal/logging"
)

var (
	site    string
	verbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "macinv",
	Short:             "MAC address inventory operator tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `macinv imports, exports and templates the device inventory
without going through the HTTP API.

  macinv template --ap "Bonanza 1"
  macinv import devices.xlsx --actor-id u-7 --actor-name "Luis"`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&site, "ap", "", "site (AP) to scope the command to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		newTemplateCmd(),
		newExportCmd(),
		newImportCmd(),
	)
}

// loadConfig reads .env and the environment and sets up stderr logging.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	logging.SetupWriter(os.Stderr, level, cfg.Logging.Format)
	return cfg, nil
}

// openApp connects to the database. Metrics go to a private registry since
// nothing scrapes a one-shot command.
func openApp(ctx context.Context) (*application.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return application.New(ctx, cfg, prometheus.NewRegistry())
}

// writeOutput writes data to path, or to name in the working directory when
// path is empty, and reports where it went.
func writeOutput(cmd *cobra.Command, path, name string, data []byte) error {
	if path == "" {
		path = name
	}
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
