// Package exposure implements the standardized counterparty-credit-risk
// exposure calculation: replacement cost, supervisory add-ons, the
// exposure multiplier, potential future exposure and exposure at default
// for a netting set.
package exposure

import (
	"errors"
	"math"
	"sort"

	"github.com/sawpanic/riskrun/internal/classify"
	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/params"
)

// defaultMarginPeriodDays is the margin period of risk assumed for a
// margined netting set that does not state one (10 business days).
const defaultMarginPeriodDays = 10.0

// businessDaysPerYear converts a margin period of risk into year units.
const businessDaysPerYear = 250.0

// TradeDetail is the per-trade attribution of a netting-set result. The
// RC/PFE/EAD shares are allocated proportionally to the trade's add-on
// contribution; this is a display convention, and the shares sum exactly
// to the netting-set totals.
type TradeDetail struct {
	TradeID           string            `json:"trade_id"`
	AssetClass        domain.AssetClass `json:"asset_class"`
	HedgingSet        string            `json:"hedging_set"`
	SupervisoryFactor float64           `json:"supervisory_factor"`
	SupervisoryDelta  float64           `json:"supervisory_delta"`
	MaturityFactor    float64           `json:"maturity_factor"`
	EffectiveNotional float64           `json:"effective_notional"`
	AddOn             float64           `json:"add_on"`

	ReplacementCost         float64 `json:"replacement_cost"`
	PotentialFutureExposure float64 `json:"potential_future_exposure"`
	ExposureAtDefault       float64 `json:"exposure_at_default"`
}

// Result is the exposure calculation outcome for one netting set.
type Result struct {
	NettingSetID string `json:"netting_set_id"`
	Counterparty string `json:"counterparty"`

	ReplacementCost         float64 `json:"replacement_cost"`
	AddOnAggregate          float64 `json:"add_on_aggregate"`
	Multiplier              float64 `json:"multiplier"`
	PotentialFutureExposure float64 `json:"potential_future_exposure"`
	ExposureAtDefault       float64 `json:"exposure_at_default"`

	AssetClassAddOns map[domain.AssetClass]float64 `json:"asset_class_add_ons"`
	Trades           []TradeDetail                 `json:"trades"`
}

// Engine computes exposure results against an immutable parameter table.
// Safe for concurrent use; Calculate is a pure function of its inputs.
type Engine struct {
	table      *params.Table
	classifier *classify.Classifier
}

// New creates an exposure engine bound to a parameter table.
func New(table *params.Table) *Engine {
	return &Engine{table: table, classifier: classify.New()}
}

// Calculate computes RC, PFE and EAD for one netting set. Validation and
// configuration failures are returned scoped to the netting set so batch
// callers can keep processing siblings.
func (e *Engine) Calculate(ns *domain.NettingSet) (*Result, error) {
	classified, err := e.classifier.ClassifySet(ns, false)
	if err != nil {
		return nil, err
	}

	rc := math.Max(ns.NetMarketValue()-ns.Collateral, 0)

	details, hedgingSets, err := e.tradeAddOns(ns, classified)
	if err != nil {
		return nil, err
	}

	classAddOns, err := e.assetClassAddOns(ns, hedgingSets)
	if err != nil {
		return nil, err
	}

	// Full correlation assumed across asset classes: straight sum, in the
	// fixed class order so accumulation is deterministic.
	var aggregate float64
	for _, ac := range domain.AssetClasses {
		aggregate += classAddOns[ac]
	}

	multiplier := e.multiplier(ns.NetMarketValue()-ns.Collateral, aggregate)
	pfe := multiplier * aggregate
	ead := e.table.Alpha * (rc + pfe)

	allocate(details, rc, pfe, ead)

	return &Result{
		NettingSetID:            ns.ID,
		Counterparty:            ns.Counterparty,
		ReplacementCost:         rc,
		AddOnAggregate:          aggregate,
		Multiplier:              multiplier,
		PotentialFutureExposure: pfe,
		ExposureAtDefault:       ead,
		AssetClassAddOns:        classAddOns,
		Trades:                  details,
	}, nil
}

// tradeAddOns computes the per-trade add-on and collects them per hedging
// set (full correlation inside a hedging set; summed in stable order by
// the caller).
func (e *Engine) tradeAddOns(ns *domain.NettingSet, classified []classify.Classified) ([]TradeDetail, map[domain.HedgingSetKey][]float64, error) {
	details := make([]TradeDetail, 0, len(classified))
	hedgingSets := make(map[domain.HedgingSetKey][]float64)

	for _, ct := range classified {
		sf, err := e.table.SupervisoryFactor(ct.Trade.AssetClass)
		if err != nil {
			return nil, nil, scope(err, ns.ID)
		}

		delta := e.table.SupervisoryDelta(ct.Trade.Product)
		mf := e.maturityFactor(ns, ct.Trade.MaturityYears)
		effective := delta * ct.Trade.Notional * mf
		addOn := sf * effective

		hedgingSets[ct.Bucket] = append(hedgingSets[ct.Bucket], addOn)
		details = append(details, TradeDetail{
			TradeID:           ct.Trade.ID,
			AssetClass:        ct.Trade.AssetClass,
			HedgingSet:        ct.Bucket.String(),
			SupervisoryFactor: sf,
			SupervisoryDelta:  delta,
			MaturityFactor:    mf,
			EffectiveNotional: effective,
			AddOn:             addOn,
		})
	}
	return details, hedgingSets, nil
}

// assetClassAddOns combines hedging-set add-ons into per-asset-class
// add-ons. Rates and FX hedging sets do not diversify against each other
// (straight sum of magnitudes); credit, equity and commodity combine under
// the systematic/idiosyncratic decomposition with the per-class
// correlation parameter.
func (e *Engine) assetClassAddOns(ns *domain.NettingSet, hedgingSets map[domain.HedgingSetKey][]float64) (map[domain.AssetClass]float64, error) {
	byClass := make(map[domain.AssetClass][]float64)
	for key, addOns := range hedgingSets {
		byClass[key.AssetClass] = append(byClass[key.AssetClass], domain.StableSum(addOns))
	}

	out := make(map[domain.AssetClass]float64, len(byClass))
	for ac, sums := range byClass {
		// Map iteration order must not leak into float accumulation.
		sort.Float64s(sums)

		switch ac {
		case domain.AssetInterestRate, domain.AssetFX:
			var total float64
			for _, s := range sums {
				total += math.Abs(s)
			}
			out[ac] = total
		default:
			rho, err := e.table.AddOnCorrelation(ac)
			if err != nil {
				return nil, scope(err, ns.ID)
			}
			var systematic, idiosyncratic float64
			for _, s := range sums {
				systematic += s
				idiosyncratic += (1 - rho*rho) * s * s
			}
			out[ac] = math.Sqrt(rho*rho*systematic*systematic + idiosyncratic)
		}
	}
	return out, nil
}

// maturityFactor applies the unmargined sqrt(min(M,1)) formula, or the
// margined variant driven by the margin period of risk when the netting
// set is explicitly flagged as collateralized.
func (e *Engine) maturityFactor(ns *domain.NettingSet, maturityYears float64) float64 {
	if ns.Margined {
		days := ns.MarginPeriodOfRiskDays
		if days <= 0 {
			days = defaultMarginPeriodDays
		}
		return 1.5 * math.Sqrt(days/businessDaysPerYear)
	}
	return math.Sqrt(math.Min(maturityYears, 1))
}

// multiplier computes the PFE multiplier. Defined as 1 when the aggregate
// add-on is zero so the exponent is never evaluated against a zero
// denominator.
func (e *Engine) multiplier(netValue, aggregate float64) float64 {
	if aggregate == 0 {
		return 1
	}
	floor := e.table.MultiplierFloor
	m := floor + (1-floor)*math.Exp(netValue/(2*(1-floor)*aggregate))
	return math.Min(1, m)
}

// allocate distributes the netting-set RC/PFE/EAD across trades in
// proportion to their absolute add-on contribution. The final trade takes
// the residual so the shares sum exactly to the totals.
func allocate(details []TradeDetail, rc, pfe, ead float64) {
	if len(details) == 0 {
		return
	}

	var totalAbs float64
	for i := range details {
		totalAbs += math.Abs(details[i].AddOn)
	}

	var rcLeft, pfeLeft, eadLeft = rc, pfe, ead
	for i := range details {
		if i == len(details)-1 {
			details[i].ReplacementCost = rcLeft
			details[i].PotentialFutureExposure = pfeLeft
			details[i].ExposureAtDefault = eadLeft
			break
		}

		share := 1.0 / float64(len(details))
		if totalAbs > 0 {
			share = math.Abs(details[i].AddOn) / totalAbs
		}
		details[i].ReplacementCost = rc * share
		details[i].PotentialFutureExposure = pfe * share
		details[i].ExposureAtDefault = ead * share
		rcLeft -= details[i].ReplacementCost
		pfeLeft -= details[i].PotentialFutureExposure
		eadLeft -= details[i].ExposureAtDefault
	}
}

// scope attaches the netting set to configuration errors on their way out.
func scope(err error, nettingSetID string) error {
	var ce *domain.ConfigurationError
	if errors.As(err, &ce) {
		return ce.WithNettingSet(nettingSetID)
	}
	return err
}
