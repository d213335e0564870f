// Package params holds the regulator-defined constants driving the
// exposure and margin engines: supervisory factors, correlations, grid
// add-on percentages, sensitivity risk weights, alpha and the multiplier
// floor. A Table is loaded once at startup and read-only afterwards, so it
// is safe for unsynchronized concurrent reads across batch workers.
package params

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/riskrun/internal/domain"
)

// GridRow holds the standardized add-on percentages of one (asset class,
// maturity bucket) cell, split by product group.
type GridRow struct {
	Linear float64 `yaml:"linear"`
	Option float64 `yaml:"option"`
}

// SensitivityWeights holds the delta/vega/curvature risk weights of one
// risk class.
type SensitivityWeights struct {
	Delta     float64 `yaml:"delta"`
	Vega      float64 `yaml:"vega"`
	Curvature float64 `yaml:"curvature"`
}

// Table is the complete parameter set. Every lookup that finds no defined
// value returns a domain.ConfigurationError; nothing is silently defaulted
// except the per-bucket concentration factor, whose neutral 1.0 fallback is
// a documented calibration decision.
type Table struct {
	// Exposure (SA-CCR style) parameters.
	SupervisoryFactors     map[domain.AssetClass]float64 `yaml:"supervisory_factors"`
	AddOnCorrelations      map[domain.AssetClass]float64 `yaml:"addon_correlations"`
	SupervisoryDeltaLinear float64                       `yaml:"supervisory_delta_linear"`
	SupervisoryDeltaOption float64                       `yaml:"supervisory_delta_option"`
	MultiplierFloor        float64                       `yaml:"multiplier_floor"`
	Alpha                  float64                       `yaml:"alpha"`

	// Grid/schedule margin percentages.
	GridAddOnPct map[domain.AssetClass]map[domain.MaturityBucket]GridRow `yaml:"grid_addon_pct"`

	// Sensitivity-based margin parameters.
	RiskWeights            map[domain.RiskClass]SensitivityWeights `yaml:"risk_weights"`
	IntraBucketCorrelation map[domain.RiskClass]float64            `yaml:"intra_bucket_correlation"`
	CrossBucketCorrelation map[domain.RiskClass]float64            `yaml:"cross_bucket_correlation"`
	ConcentrationFactors   map[string]float64                      `yaml:"concentration_factors"`
	CurvatureScaling       float64                                 `yaml:"curvature_scaling"`
}

// Default returns the built-in parameter table. Values follow the
// BCBS-sourced calibration of the originating implementation.
func Default() *Table {
	return &Table{
		SupervisoryFactors: map[domain.AssetClass]float64{
			domain.AssetInterestRate: 0.005,
			domain.AssetCredit:       0.05,
			domain.AssetEquity:       0.32,
			domain.AssetCommodity:    0.18,
			domain.AssetFX:           0.04,
		},
		AddOnCorrelations: map[domain.AssetClass]float64{
			domain.AssetInterestRate: 0.5,
			domain.AssetCredit:       0.5,
			domain.AssetEquity:       0.5,
			domain.AssetCommodity:    0.4,
			domain.AssetFX:           0.5,
		},
		SupervisoryDeltaLinear: 1.0,
		SupervisoryDeltaOption: 0.5,
		MultiplierFloor:        0.05,
		Alpha:                  1.4,

		// The published schedule does not differentiate by product, so
		// both columns start from the same calibration; a loaded table
		// may split them.
		GridAddOnPct: map[domain.AssetClass]map[domain.MaturityBucket]GridRow{
			domain.AssetInterestRate: {
				domain.BucketShort:  {Linear: 0.01, Option: 0.01},
				domain.BucketMedium: {Linear: 0.02, Option: 0.02},
				domain.BucketLong:   {Linear: 0.04, Option: 0.04},
			},
			domain.AssetCredit: {
				domain.BucketShort:  {Linear: 0.02, Option: 0.02},
				domain.BucketMedium: {Linear: 0.05, Option: 0.05},
				domain.BucketLong:   {Linear: 0.10, Option: 0.10},
			},
			domain.AssetEquity: {
				domain.BucketShort:  {Linear: 0.06, Option: 0.06},
				domain.BucketMedium: {Linear: 0.08, Option: 0.08},
				domain.BucketLong:   {Linear: 0.10, Option: 0.10},
			},
			domain.AssetCommodity: {
				domain.BucketShort:  {Linear: 0.10, Option: 0.10},
				domain.BucketMedium: {Linear: 0.12, Option: 0.12},
				domain.BucketLong:   {Linear: 0.15, Option: 0.15},
			},
			domain.AssetFX: {
				domain.BucketShort:  {Linear: 0.04, Option: 0.04},
				domain.BucketMedium: {Linear: 0.05, Option: 0.05},
				domain.BucketLong:   {Linear: 0.06, Option: 0.06},
			},
		},

		RiskWeights: map[domain.RiskClass]SensitivityWeights{
			domain.RiskInterestRate:        {Delta: 0.005, Vega: 0.01, Curvature: 0.01},
			domain.RiskCreditQualifying:    {Delta: 0.05, Vega: 0.10, Curvature: 0.10},
			domain.RiskCreditNonQualifying: {Delta: 0.12, Vega: 0.20, Curvature: 0.20},
			domain.RiskEquity:              {Delta: 0.15, Vega: 0.20, Curvature: 0.20},
			domain.RiskCommodity:           {Delta: 0.18, Vega: 0.30, Curvature: 0.30},
			domain.RiskFX:                  {Delta: 0.04, Vega: 0.05, Curvature: 0.05},
		},
		IntraBucketCorrelation: map[domain.RiskClass]float64{
			domain.RiskInterestRate:        0.5,
			domain.RiskCreditQualifying:    0.5,
			domain.RiskCreditNonQualifying: 0.5,
			domain.RiskEquity:              0.5,
			domain.RiskCommodity:           0.4,
			domain.RiskFX:                  0.5,
		},
		CrossBucketCorrelation: map[domain.RiskClass]float64{
			domain.RiskInterestRate:        0.25,
			domain.RiskCreditQualifying:    0.25,
			domain.RiskCreditNonQualifying: 0.25,
			domain.RiskEquity:              0.25,
			domain.RiskCommodity:           0.20,
			domain.RiskFX:                  0.25,
		},
		ConcentrationFactors: map[string]float64{},
		CurvatureScaling:     1.0,
	}
}

// Load reads a complete parameter table from a YAML file and validates it.
// The file must carry the full table; partial overlays are not merged.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file %s: %w", path, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse parameter file %s: %w", path, err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("parameter file %s: %w", path, err)
	}
	return &t, nil
}

// SupervisoryFactor returns the add-on supervisory factor for an asset class.
func (t *Table) SupervisoryFactor(ac domain.AssetClass) (float64, error) {
	sf, ok := t.SupervisoryFactors[ac]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("supervisory_factors[%s]", ac))
	}
	return sf, nil
}

// AddOnCorrelation returns the hedging-set combination correlation for an
// asset class.
func (t *Table) AddOnCorrelation(ac domain.AssetClass) (float64, error) {
	rho, ok := t.AddOnCorrelations[ac]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("addon_correlations[%s]", ac))
	}
	return rho, nil
}

// SupervisoryDelta returns the supervisory delta for a product group.
func (t *Table) SupervisoryDelta(p domain.Product) float64 {
	if p.IsOption() {
		return t.SupervisoryDeltaOption
	}
	return t.SupervisoryDeltaLinear
}

// GridPct returns the standardized add-on percentage for a grid margin
// lookup keyed by asset class, maturity bucket and product group.
func (t *Table) GridPct(ac domain.AssetClass, bucket domain.MaturityBucket, p domain.Product) (float64, error) {
	rows, ok := t.GridAddOnPct[ac]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("grid_addon_pct[%s]", ac))
	}
	row, ok := rows[bucket]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("grid_addon_pct[%s][%s]", ac, bucket))
	}
	if p.IsOption() {
		return row.Option, nil
	}
	return row.Linear, nil
}

// RiskWeight returns the sensitivity risk weight for a risk class and
// margin type.
func (t *Table) RiskWeight(rc domain.RiskClass, mt domain.MarginType) (float64, error) {
	w, ok := t.RiskWeights[rc]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("risk_weights[%s]", rc))
	}
	switch mt {
	case domain.MarginDelta:
		return w.Delta, nil
	case domain.MarginVega:
		return w.Vega, nil
	case domain.MarginCurvature:
		return w.Curvature, nil
	}
	return 0, domain.NewConfigurationError(fmt.Sprintf("risk_weights[%s][%s]", rc, mt))
}

// IntraCorrelation returns the intra-bucket correlation rho for a risk class.
func (t *Table) IntraCorrelation(rc domain.RiskClass) (float64, error) {
	rho, ok := t.IntraBucketCorrelation[rc]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("intra_bucket_correlation[%s]", rc))
	}
	return rho, nil
}

// CrossCorrelation returns the cross-bucket correlation gamma for a risk class.
func (t *Table) CrossCorrelation(rc domain.RiskClass) (float64, error) {
	gamma, ok := t.CrossBucketCorrelation[rc]
	if !ok {
		return 0, domain.NewConfigurationError(fmt.Sprintf("cross_bucket_correlation[%s]", rc))
	}
	return gamma, nil
}

// Concentration returns the concentration factor for a bucket key. Buckets
// without an explicit entry use the neutral factor 1.0.
func (t *Table) Concentration(bucket string) float64 {
	if f, ok := t.ConcentrationFactors[bucket]; ok {
		return f
	}
	return 1.0
}

// Validate checks the table for completeness and sane ranges. Run on every
// load; a table that fails validation is never handed to an engine.
func (t *Table) Validate() error {
	for _, ac := range domain.AssetClasses {
		sf, ok := t.SupervisoryFactors[ac]
		if !ok {
			return fmt.Errorf("missing supervisory factor for %s", ac)
		}
		if sf <= 0 || sf > 1 {
			return fmt.Errorf("supervisory factor for %s out of range (0,1]: %v", ac, sf)
		}

		rho, ok := t.AddOnCorrelations[ac]
		if !ok {
			return fmt.Errorf("missing add-on correlation for %s", ac)
		}
		if rho < 0 || rho >= 1 {
			return fmt.Errorf("add-on correlation for %s out of range [0,1): %v", ac, rho)
		}

		rows, ok := t.GridAddOnPct[ac]
		if !ok {
			return fmt.Errorf("missing grid percentages for %s", ac)
		}
		for _, bucket := range domain.MaturityBuckets {
			row, ok := rows[bucket]
			if !ok {
				return fmt.Errorf("missing grid percentage for %s bucket %s", ac, bucket)
			}
			if row.Linear <= 0 || row.Linear > 1 || row.Option <= 0 || row.Option > 1 {
				return fmt.Errorf("grid percentage for %s bucket %s out of range (0,1]", ac, bucket)
			}
		}
	}

	for _, rc := range domain.RiskClasses {
		w, ok := t.RiskWeights[rc]
		if !ok {
			return fmt.Errorf("missing risk weights for %s", rc)
		}
		if w.Delta <= 0 || w.Vega <= 0 || w.Curvature <= 0 {
			return fmt.Errorf("risk weights for %s must be positive", rc)
		}

		rho, ok := t.IntraBucketCorrelation[rc]
		if !ok {
			return fmt.Errorf("missing intra-bucket correlation for %s", rc)
		}
		if rho < 0 || rho >= 1 {
			return fmt.Errorf("intra-bucket correlation for %s out of range [0,1): %v", rc, rho)
		}

		gamma, ok := t.CrossBucketCorrelation[rc]
		if !ok {
			return fmt.Errorf("missing cross-bucket correlation for %s", rc)
		}
		if gamma < 0 || gamma >= 1 {
			return fmt.Errorf("cross-bucket correlation for %s out of range [0,1): %v", rc, gamma)
		}
	}

	if t.SupervisoryDeltaLinear <= 0 || t.SupervisoryDeltaLinear > 1 {
		return fmt.Errorf("supervisory delta (linear) out of range (0,1]: %v", t.SupervisoryDeltaLinear)
	}
	if t.SupervisoryDeltaOption <= 0 || t.SupervisoryDeltaOption > 1 {
		return fmt.Errorf("supervisory delta (option) out of range (0,1]: %v", t.SupervisoryDeltaOption)
	}
	if t.MultiplierFloor <= 0 || t.MultiplierFloor >= 1 {
		return fmt.Errorf("multiplier floor out of range (0,1): %v", t.MultiplierFloor)
	}
	if t.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive: %v", t.Alpha)
	}
	if t.CurvatureScaling <= 0 {
		return fmt.Errorf("curvature scaling must be positive: %v", t.CurvatureScaling)
	}
	for bucket, f := range t.ConcentrationFactors {
		if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("concentration factor for bucket %s must be positive and finite: %v", bucket, f)
		}
	}
	return nil
}
