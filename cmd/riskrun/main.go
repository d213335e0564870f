package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/params"
)

const (
	appName = "RiskRun"
	version = "v1.2.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "riskrun",
		Short:   "Counterparty exposure and initial margin calculator",
		Version: version,
		Long: `RiskRun computes standardized counterparty-credit-risk exposure
(replacement cost, potential future exposure, exposure at default) and
initial margin (grid/schedule and sensitivity-based methods) for netting
sets of derivative trades.`,
	}

	rootCmd.PersistentFlags().String("params", "", "Parameter table YAML (default: built-in table)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		levelStr, _ := cmd.Flags().GetString("log-level")
		level, err := zerolog.ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", levelStr, err)
		}
		zerolog.SetGlobalLevel(level)
		return nil
	}

	rootCmd.AddCommand(newExposureCmd(), newMarginCmd(), newBatchCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// loadTable returns the parameter table selected by --params, falling back
// to the built-in defaults.
func loadTable(cmd *cobra.Command) (*params.Table, error) {
	path, _ := cmd.Flags().GetString("params")
	if path == "" {
		return params.Default(), nil
	}
	t, err := params.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Msg("Loaded parameter table")
	return t, nil
}

// loadNettingSets reads a JSON array of netting sets.
func loadNettingSets(path string) ([]*domain.NettingSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input %s: %w", path, err)
	}
	var sets []*domain.NettingSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	return sets, nil
}

// writeJSON writes the result to a file, or stdout when path is empty.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Wrote result")
	return nil
}
