// Package report assembles engine outputs into the reporting structure:
// totals, asset-class breakdowns with percentages, and per-netting-set
// detail. Pure transformation; the only new arithmetic is percentage
// computation, checked against the totals it came from.
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/exposure"
	"github.com/sawpanic/riskrun/internal/margin"
)

// percentTolerance bounds how far breakdown percentages may drift from
// summing to 100 before the result is treated as defective.
const percentTolerance = 1e-6

// ExposureBreakdown is one asset class's share of the aggregate add-on.
type ExposureBreakdown struct {
	AssetClass domain.AssetClass `json:"asset_class"`
	Exposure   float64           `json:"exposure"`
	Percentage float64           `json:"percentage"`
}

// MarginBreakdown is one asset class's share of the total margin.
type MarginBreakdown struct {
	AssetClass domain.AssetClass `json:"asset_class"`
	Margin     float64           `json:"margin"`
	Percentage float64           `json:"percentage"`
}

// ExposureReport aggregates exposure results across netting sets.
type ExposureReport struct {
	ReplacementCost         float64             `json:"replacement_cost"`
	PotentialFutureExposure float64             `json:"potential_future_exposure"`
	ExposureAtDefault       float64             `json:"exposure_at_default"`
	AssetClassBreakdown     []ExposureBreakdown `json:"asset_class_breakdown"`
	NettingSets             []*exposure.Result  `json:"netting_sets"`
}

// MarginReport aggregates margin results across netting sets. Every
// result must share one calculation method.
type MarginReport struct {
	TotalMargin         float64                   `json:"total_margin"`
	Method              margin.Method             `json:"calculation_method"`
	AssetClassBreakdown []MarginBreakdown         `json:"asset_class_breakdown"`
	Sensitivity         *margin.SensitivityDetail `json:"sensitivity_breakdown,omitempty"`
	NettingSets         []*margin.Result          `json:"netting_sets"`
}

// CalculationResult is the top-level reporting structure. Produced fresh
// per call; never mutated after return.
type CalculationResult struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Exposure    *ExposureReport `json:"exposure,omitempty"`
	Margin      *MarginReport   `json:"margin,omitempty"`
}

// Assemble wraps exposure and/or margin reports into a CalculationResult
// with a fresh run identifier.
func Assemble(exp *ExposureReport, mar *MarginReport) *CalculationResult {
	return &CalculationResult{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Exposure:    exp,
		Margin:      mar,
	}
}

// AssembleExposure combines per-netting-set exposure results. The
// asset-class breakdown reports each class's add-on contribution.
func AssembleExposure(results []*exposure.Result) (*ExposureReport, error) {
	rep := &ExposureReport{NettingSets: results}

	classTotals := make(map[domain.AssetClass][]float64)
	for _, r := range results {
		rep.ReplacementCost += r.ReplacementCost
		rep.PotentialFutureExposure += r.PotentialFutureExposure
		rep.ExposureAtDefault += r.ExposureAtDefault
		for ac, addOn := range r.AssetClassAddOns {
			classTotals[ac] = append(classTotals[ac], addOn)
		}
	}

	var total float64
	sums := make(map[domain.AssetClass]float64, len(classTotals))
	for _, ac := range domain.AssetClasses {
		if addOns, ok := classTotals[ac]; ok {
			sums[ac] = domain.StableSum(addOns)
			total += sums[ac]
		}
	}

	var percentages []float64
	for _, ac := range domain.AssetClasses {
		v, ok := sums[ac]
		if !ok {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = v / total * 100
		}
		rep.AssetClassBreakdown = append(rep.AssetClassBreakdown, ExposureBreakdown{
			AssetClass: ac,
			Exposure:   v,
			Percentage: pct,
		})
		percentages = append(percentages, pct)
	}

	if err := checkPercentages(percentages, total); err != nil {
		return nil, err
	}
	return rep, nil
}

// AssembleMargin combines per-netting-set margin results computed under a
// single method.
func AssembleMargin(results []*margin.Result) (*MarginReport, error) {
	rep := &MarginReport{NettingSets: results}

	classTotals := make(map[domain.AssetClass][]float64)
	var sens *margin.SensitivityDetail
	for i, r := range results {
		if i == 0 {
			rep.Method = r.Method
		} else if r.Method != rep.Method {
			return nil, fmt.Errorf("mixed margin methods in one report: %s vs %s", rep.Method, r.Method)
		}

		rep.TotalMargin += r.TotalMargin
		for ac, m := range r.AssetClassMargins {
			classTotals[ac] = append(classTotals[ac], m)
		}
		if r.Sensitivity != nil {
			sens = addSensitivity(sens, r.Sensitivity)
		}
	}
	rep.Sensitivity = sens

	var total float64
	sums := make(map[domain.AssetClass]float64, len(classTotals))
	for _, ac := range domain.AssetClasses {
		if margins, ok := classTotals[ac]; ok {
			sums[ac] = domain.StableSum(margins)
			total += sums[ac]
		}
	}

	var percentages []float64
	for _, ac := range domain.AssetClasses {
		v, ok := sums[ac]
		if !ok {
			continue
		}
		pct := 0.0
		if total > 0 {
			pct = v / total * 100
		}
		rep.AssetClassBreakdown = append(rep.AssetClassBreakdown, MarginBreakdown{
			AssetClass: ac,
			Margin:     v,
			Percentage: pct,
		})
		percentages = append(percentages, pct)
	}

	if err := checkPercentages(percentages, total); err != nil {
		return nil, err
	}
	return rep, nil
}

// addSensitivity accumulates sensitivity breakdowns across netting sets.
func addSensitivity(acc, next *margin.SensitivityDetail) *margin.SensitivityDetail {
	if acc == nil {
		acc = &margin.SensitivityDetail{RiskClasses: make(map[domain.RiskClass]margin.RiskClassMargin)}
	}
	acc.Delta += next.Delta
	acc.Vega += next.Vega
	acc.Curvature += next.Curvature
	for rc, m := range next.RiskClasses {
		cur := acc.RiskClasses[rc]
		cur.Delta += m.Delta
		cur.Vega += m.Vega
		cur.Curvature += m.Curvature
		cur.Total += m.Total
		acc.RiskClasses[rc] = cur
	}
	return acc
}

// checkPercentages enforces the breakdown invariant: for a non-zero total
// the percentages sum to 100 within tolerance. A violation is a defect and
// fails the calculation rather than returning a silently wrong breakdown.
func checkPercentages(percentages []float64, total float64) error {
	if total == 0 || len(percentages) == 0 {
		return nil
	}
	sum := domain.StableSum(percentages)
	if math.Abs(sum-100) > percentTolerance {
		return domain.NewComputationError("", "breakdown_percentages",
			fmt.Sprintf("percentages sum to %.9f, want 100", sum))
	}
	return nil
}

// DisplayRound rounds a value for presentation. Applied to display copies
// only, never before totals are computed.
func DisplayRound(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
