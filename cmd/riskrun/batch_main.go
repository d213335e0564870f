package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/riskrun/internal/batch"
	"github.com/sawpanic/riskrun/internal/exposure"
	"github.com/sawpanic/riskrun/internal/margin"
	"github.com/sawpanic/riskrun/internal/progress"
	"github.com/sawpanic/riskrun/internal/telemetry"
)

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run a batch calculation over a CSV trade file",
		Long: `Process a tabular trade file (one row per trade, grouped by the
netting_set_id column). Netting sets are computed concurrently; bad rows
and failed netting sets are reported individually without aborting the
batch.`,
		RunE: runBatch,
	}
	cmd.Flags().String("input", "", "CSV trade file")
	cmd.Flags().Bool("exposure", true, "Compute exposure (RC/PFE/EAD)")
	cmd.Flags().String("margin", "", "Also compute margin with this method (grid|sensitivity)")
	cmd.Flags().Int("workers", 0, "Worker count (default: CPU count)")
	cmd.Flags().String("progress", "auto", "Progress output mode (auto|plain|json)")
	cmd.Flags().String("metrics-addr", "", "Serve /health and /metrics on this address during the run")
	cmd.Flags().String("out", "", "Output file (default: stdout)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	doExposure, _ := cmd.Flags().GetBool("exposure")
	marginStr, _ := cmd.Flags().GetString("margin")
	var method *margin.Method
	if marginStr != "" {
		m, err := margin.ParseMethod(marginStr)
		if err != nil {
			return err
		}
		method = &m
	}
	if !doExposure && method == nil {
		return fmt.Errorf("nothing to compute: enable --exposure or set --margin")
	}

	input, _ := cmd.Flags().GetString("input")
	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer f.Close()

	parsed, err := batch.ParseCSV(f)
	if err != nil {
		return err
	}
	log.Info().
		Int("netting_sets", len(parsed.Sets)).
		Int("bad_rows", len(parsed.RowErrors)).
		Str("input", input).
		Msg("Batch parsed")

	metrics := telemetry.NewMetrics()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := telemetry.NewServer(addr, version, metrics)
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("Telemetry server stopped")
			}
		}()
	}

	workers, _ := cmd.Flags().GetInt("workers")
	progressStr, _ := cmd.Flags().GetString("progress")
	runner := batch.NewRunner(batch.Config{
		Exposure:     doExposure,
		MarginMethod: method,
		Workers:      workers,
		Progress:     progress.ParseMode(progressStr),
	}, exposure.New(table), margin.New(table), metrics)

	rep, err := runner.Run(ctx, parsed)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	return writeJSON(out, rep)
}
