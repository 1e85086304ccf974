// Package main provides the medicine finder CLI entrypoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical-ai/medicine-finder/internal/app"
	"github.com/spherical-ai/medicine-finder/internal/config"
	"github.com/spherical-ai/medicine-finder/internal/observability"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	cfgFile    string
	outputJSON bool
	verbose    bool
	noColor    bool

	// Configuration and logger
	cfg    *config.Config
	logger *observability.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "medfinder",
	Short: "Find and rank nearby pharmacies for a list of medicines",
	Long: `medfinder ranks the stores nearest to a location by how well they can
fill a list of medicines, weighing availability, total price and distance.
Medicines a store does not stock are matched to close substitutes by
semantic similarity.

The inventory CSV is normalized once and cached. Per-store embeddings are
computed once per inventory and model and reused across runs.

All commands support --json for automation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logFormat := "console"
		if outputJSON {
			logFormat = "json"
		}
		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		} else if level == "info" {
			// Progress is reported through the UI; keep stderr quiet.
			level = "warn"
		}

		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      logFormat,
			ServiceName: "medfinder-cli",
		})

		if noColor {
			color.NoColor = true
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: uses env vars)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newRankCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newNormalizeCmd())
	rootCmd.AddCommand(newWarmCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openServices wires a ranking session from the loaded configuration.
func openServices(ctx context.Context) (*app.Services, error) {
	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize ranking session: %w", err)
	}
	return services, nil
}

// writeJSON pretty-prints v.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newVersionCmd creates the version subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":   version,
				"goVersion": runtime.Version(),
				"platform":  runtime.GOOS + "/" + runtime.GOARCH,
			}
			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "medfinder %s (%s, %s)\n", info["version"], info["goVersion"], info["platform"])
			return nil
		},
	}
}
