// Package margin implements initial margin for non-centrally-cleared
// derivatives under two methodologies: the notional grid/schedule approach
// and the sensitivity-based (delta/vega/curvature) approach. The
// methodology is a closed variant dispatched once per calculation.
package margin

import (
	"errors"
	"fmt"

	"github.com/sawpanic/riskrun/internal/classify"
	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/params"
)

// Method selects the margin methodology for a calculation.
type Method string

const (
	MethodGrid        Method = "grid"
	MethodSensitivity Method = "sensitivity"
)

// ParseMethod maps a wire-level method name onto the closed variant.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodGrid:
		return MethodGrid, nil
	case MethodSensitivity:
		return MethodSensitivity, nil
	}
	return "", fmt.Errorf("unknown margin method %q (want grid or sensitivity)", s)
}

// TradeMargin is the per-trade gross contribution of the grid method.
type TradeMargin struct {
	TradeID    string                `json:"trade_id"`
	AssetClass domain.AssetClass     `json:"asset_class"`
	Bucket     domain.MaturityBucket `json:"bucket"`
	Percentage float64               `json:"percentage"`
	Gross      float64               `json:"gross"`
}

// RiskClassMargin is the per-risk-class aggregate of the sensitivity
// method, after intra- and inter-bucket correlation.
type RiskClassMargin struct {
	Delta     float64 `json:"delta"`
	Vega      float64 `json:"vega"`
	Curvature float64 `json:"curvature"`
	Total     float64 `json:"total"`
}

// SensitivityDetail breaks the sensitivity-based margin down by margin
// type and risk class.
type SensitivityDetail struct {
	Delta       float64                              `json:"delta"`
	Vega        float64                              `json:"vega"`
	Curvature   float64                              `json:"curvature"`
	RiskClasses map[domain.RiskClass]RiskClassMargin `json:"risk_classes"`
}

// Result is the margin calculation outcome for one netting set.
type Result struct {
	NettingSetID string  `json:"netting_set_id"`
	Method       Method  `json:"calculation_method"`
	TotalMargin  float64 `json:"total_margin"`

	AssetClassMargins map[domain.AssetClass]float64 `json:"asset_class_margins"`

	// Grid method detail.
	GrossMargin     float64       `json:"gross_margin,omitempty"`
	NetToGrossRatio float64       `json:"net_to_gross_ratio,omitempty"`
	NettingFactor   float64       `json:"netting_factor,omitempty"`
	Trades          []TradeMargin `json:"trades,omitempty"`

	// Sensitivity method detail.
	Sensitivity *SensitivityDetail `json:"sensitivity,omitempty"`
}

// Engine computes margin results against an immutable parameter table.
// Safe for concurrent use.
type Engine struct {
	table      *params.Table
	classifier *classify.Classifier
}

// New creates a margin engine bound to a parameter table.
func New(table *params.Table) *Engine {
	return &Engine{table: table, classifier: classify.New()}
}

// Calculate dispatches on the methodology once; the arithmetic below the
// dispatch point is methodology-pure.
func (e *Engine) Calculate(ns *domain.NettingSet, method Method) (*Result, error) {
	switch method {
	case MethodGrid:
		return e.grid(ns)
	case MethodSensitivity:
		return e.sensitivity(ns)
	}
	return nil, fmt.Errorf("unknown margin method %q", method)
}

// scope attaches the netting set to configuration errors on their way out.
func scope(err error, nettingSetID string) error {
	var ce *domain.ConfigurationError
	if errors.As(err, &ce) {
		return ce.WithNettingSet(nettingSetID)
	}
	return err
}
