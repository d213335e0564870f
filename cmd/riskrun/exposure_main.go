package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/riskrun/internal/exposure"
	"github.com/sawpanic/riskrun/internal/report"
)

func newExposureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exposure",
		Short: "Compute counterparty exposure (RC, PFE, EAD)",
		Long:  "Compute replacement cost, potential future exposure and exposure at default for netting sets supplied as a JSON file.",
		RunE:  runExposure,
	}
	cmd.Flags().String("input", "", "JSON file with an array of netting sets")
	cmd.Flags().String("out", "", "Output file (default: stdout)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runExposure(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	sets, err := loadNettingSets(input)
	if err != nil {
		return err
	}

	engine := exposure.New(table)
	results := make([]*exposure.Result, 0, len(sets))
	for _, ns := range sets {
		res, err := engine.Calculate(ns)
		if err != nil {
			return err
		}
		log.Info().
			Str("netting_set", ns.ID).
			Float64("rc", res.ReplacementCost).
			Float64("pfe", res.PotentialFutureExposure).
			Float64("ead", res.ExposureAtDefault).
			Msg("Exposure computed")
		results = append(results, res)
	}

	rep, err := report.AssembleExposure(results)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	return writeJSON(out, report.Assemble(rep, nil))
}
