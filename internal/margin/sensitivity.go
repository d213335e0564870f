package margin

import (
	"math"
	"sort"

	"github.com/sawpanic/riskrun/internal/classify"
	"github.com/sawpanic/riskrun/internal/domain"
)

// sensitivity computes the sensitivity-based margin: risk-weighted
// sensitivities aggregated intra-bucket, inter-bucket and across risk
// classes. Negative radicands under either square root are clamped to
// zero; the clamp is a documented policy, covered by tests.
func (e *Engine) sensitivity(ns *domain.NettingSet) (*Result, error) {
	classified, err := e.classifier.ClassifySet(ns, true)
	if err != nil {
		return nil, err
	}

	riskClasses := make(map[domain.RiskClass]RiskClassMargin)
	for _, rc := range domain.RiskClasses {
		var perType [3]float64
		empty := true
		for i, mt := range domain.MarginTypes {
			agg, present, err := e.aggregateRiskClass(ns, classified, rc, mt)
			if err != nil {
				return nil, err
			}
			perType[i] = agg
			if present {
				empty = false
			}
		}
		if empty {
			continue
		}

		m := RiskClassMargin{
			Delta:     perType[0],
			Vega:      perType[1],
			Curvature: e.table.CurvatureScaling * perType[2],
		}
		m.Total = m.Delta + m.Vega + m.Curvature
		riskClasses[rc] = m
	}

	detail := &SensitivityDetail{RiskClasses: riskClasses}
	classMargins := make(map[domain.AssetClass]float64)
	var total float64
	// Risk classes are additive under the governing standard; iterate in
	// the fixed order so accumulation is deterministic.
	for _, rc := range domain.RiskClasses {
		m, ok := riskClasses[rc]
		if !ok {
			continue
		}
		detail.Delta += m.Delta
		detail.Vega += m.Vega
		detail.Curvature += m.Curvature
		classMargins[rc.AssetClass()] += m.Total
		total += m.Total
	}

	return &Result{
		NettingSetID:      ns.ID,
		Method:            MethodSensitivity,
		TotalMargin:       total,
		AssetClassMargins: classMargins,
		Sensitivity:       detail,
	}, nil
}

// aggregateRiskClass aggregates one (risk class, margin type) pair:
// weighted sensitivities per bucket, K_b per bucket, then the cross-bucket
// combination. Returns present=false when no trade contributed.
func (e *Engine) aggregateRiskClass(ns *domain.NettingSet, classified []classify.Classified, rc domain.RiskClass, mt domain.MarginType) (float64, bool, error) {
	buckets := make(map[string][]float64)
	for _, ct := range classified {
		if ct.RiskClass != rc {
			continue
		}
		sens := sensitivityValue(ct.Trade.Sensitivities, mt)
		if sens == nil {
			continue
		}

		rw, err := e.table.RiskWeight(rc, mt)
		if err != nil {
			return 0, false, scope(err, ns.ID)
		}
		bucket := ct.Bucket.String()
		ws := rw * (*sens) * e.table.Concentration(bucket)
		buckets[bucket] = append(buckets[bucket], ws)
	}
	if len(buckets) == 0 {
		return 0, false, nil
	}

	rho, err := e.table.IntraCorrelation(rc)
	if err != nil {
		return 0, false, scope(err, ns.ID)
	}
	gamma, err := e.table.CrossCorrelation(rc)
	if err != nil {
		return 0, false, scope(err, ns.ID)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kb := make([]float64, 0, len(keys))
	for _, k := range keys {
		kb = append(kb, correlatedRoot(buckets[k], rho))
	}
	return correlatedRoot(kb, gamma), true, nil
}

// correlatedRoot computes sqrt(sum v_i^2 + corr * sum_{i != j} v_i v_j),
// clamping the radicand at zero. The cross term is derived from
// (sum v)^2 - sum v^2, so a single value collapses to |v| exactly.
func correlatedRoot(values []float64, corr float64) float64 {
	squares := make([]float64, len(values))
	for i, v := range values {
		squares[i] = v * v
	}
	sum := domain.StableSum(values)
	sumSq := domain.StableSum(squares)

	radicand := sumSq + corr*(sum*sum-sumSq)
	if radicand < 0 {
		radicand = 0
	}
	return math.Sqrt(radicand)
}

func sensitivityValue(s domain.Sensitivities, mt domain.MarginType) *float64 {
	switch mt {
	case domain.MarginDelta:
		return s.Delta
	case domain.MarginVega:
		return s.Vega
	default:
		return s.Curvature
	}
}
