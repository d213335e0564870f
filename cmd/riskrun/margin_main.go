package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/riskrun/internal/margin"
	"github.com/sawpanic/riskrun/internal/report"
)

func newMarginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "margin",
		Short: "Compute initial margin (grid or sensitivity-based)",
		Long:  "Compute initial margin for netting sets supplied as a JSON file, using the grid/schedule or sensitivity-based methodology.",
		RunE:  runMargin,
	}
	cmd.Flags().String("input", "", "JSON file with an array of netting sets")
	cmd.Flags().String("method", "grid", "Margin method (grid|sensitivity)")
	cmd.Flags().String("out", "", "Output file (default: stdout)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runMargin(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	methodStr, _ := cmd.Flags().GetString("method")
	method, err := margin.ParseMethod(methodStr)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	sets, err := loadNettingSets(input)
	if err != nil {
		return err
	}

	engine := margin.New(table)
	results := make([]*margin.Result, 0, len(sets))
	for _, ns := range sets {
		res, err := engine.Calculate(ns, method)
		if err != nil {
			return err
		}
		log.Info().
			Str("netting_set", ns.ID).
			Str("method", string(method)).
			Float64("margin", res.TotalMargin).
			Msg("Margin computed")
		results = append(results, res)
	}

	rep, err := report.AssembleMargin(results)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	return writeJSON(out, report.Assemble(nil, rep))
}
