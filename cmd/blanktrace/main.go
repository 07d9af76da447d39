// Command blanktrace runs the localhost MITM proxy and exposes operator
// subcommands (stats, domains, whitelist, block, export) against the same
// SQLite database the running proxy writes to.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootFlags holds the flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "blanktrace",
		Short:         "BlankTrace: a localhost MITM proxy that anonymizes browser traffic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "config.yaml", "path to YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOr("BLANKTRACE_LOG_LEVEL", "info"), "log/slog level: debug, info, warn, error")

	root.AddCommand(
		newRunCmd(flags),
		newStatsCmd(flags),
		newDomainsCmd(flags),
		newWhitelistCmd(flags),
		newBlockCmd(flags),
		newExportCmd(flags),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads the YAML config at flags.configPath, falling back to
// documented defaults when the file does not exist (spec §6).
func loadConfig(flags *rootFlags) (config.Config, error) {
	if _, err := os.Stat(flags.configPath); err != nil {
		if os.IsNotExist(err) {
			cfg := config.Default()
			if verr := cfg.Validate(); verr != nil {
				return config.Config{}, verr
			}
			return cfg, nil
		}
		return config.Config{}, err
	}
	return config.LoadFile(flags.configPath)
}

// newLogger builds the slog.Logger subcommands and the proxy share, honoring
// --log-level / BLANKTRACE_LOG_LEVEL.
func newLogger(flags *rootFlags) *slog.Logger {
	var level slog.Level
	switch flags.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
