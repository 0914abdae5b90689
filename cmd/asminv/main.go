package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asm-inventory/config"
	"asm-inventory/internal/client"
	"asm-inventory/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "asminv",
	Short:         "Query and track a device inventory through the Apple School Manager API.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

var (
	configPath string
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"),
		"path to the YAML configuration file (defaults to $CONFIG_PATH)")

	rootCmd.AddCommand(deviceCmd, serversCmd, serverDevicesCmd, supportsCmd, syncCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %q: %w", configPath, err)
	}
	if err := logging.Init(loaded.Log); err != nil {
		return fmt.Errorf("invalid log configuration: %w", err)
	}
	cfg = loaded
	return nil
}

// newClient validates credentials before building the API client.
func newClient() (*client.Client, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, err
	}
	return client.New(cfg)
}
