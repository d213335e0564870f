package margin

import (
	"math"

	"github.com/sawpanic/riskrun/internal/domain"
)

// nettingFactorFloor and nettingFactorCap bound the grid netting
// adjustment: NettingFactor = 0.4 + 0.6 * NGR, clamped to [0.4, 1.0].
const (
	nettingFactorFloor = 0.4
	nettingFactorCap   = 1.0
)

// grid computes margin as notional x standardized percentage, scaled by
// the net-to-gross netting adjustment.
func (e *Engine) grid(ns *domain.NettingSet) (*Result, error) {
	classified, err := e.classifier.ClassifySet(ns, false)
	if err != nil {
		return nil, err
	}

	trades := make([]TradeMargin, 0, len(classified))
	grossByClass := make(map[domain.AssetClass][]float64)
	allGross := make([]float64, 0, len(classified))

	for _, ct := range classified {
		bucket := domain.BucketForMaturity(ct.Trade.MaturityYears)
		pct, err := e.table.GridPct(ct.Trade.AssetClass, bucket, ct.Trade.Product)
		if err != nil {
			return nil, scope(err, ns.ID)
		}

		gross := ct.Trade.Notional * pct
		trades = append(trades, TradeMargin{
			TradeID:    ct.Trade.ID,
			AssetClass: ct.Trade.AssetClass,
			Bucket:     bucket,
			Percentage: pct,
			Gross:      gross,
		})
		grossByClass[ct.Trade.AssetClass] = append(grossByClass[ct.Trade.AssetClass], gross)
		allGross = append(allGross, gross)
	}

	ngr := netToGrossRatio(ns)
	factor := clamp(nettingFactorFloor+0.6*ngr, nettingFactorFloor, nettingFactorCap)

	grossMargin := domain.StableSum(allGross)
	classMargins := make(map[domain.AssetClass]float64, len(grossByClass))
	for ac, grosses := range grossByClass {
		classMargins[ac] = factor * domain.StableSum(grosses)
	}

	return &Result{
		NettingSetID:      ns.ID,
		Method:            MethodGrid,
		TotalMargin:       factor * grossMargin,
		AssetClassMargins: classMargins,
		GrossMargin:       grossMargin,
		NetToGrossRatio:   ngr,
		NettingFactor:     factor,
		Trades:            trades,
	}, nil
}

// netToGrossRatio computes NGR = |sum MV| / sum |MV|. Defined as 1 for a
// single trade, when every market value has the same sign, or when the
// gross value is zero, so the exact no-netting-benefit factor comes out
// without a division.
func netToGrossRatio(ns *domain.NettingSet) float64 {
	if len(ns.Trades) <= 1 || sameSign(ns.Trades) {
		return 1
	}
	gross := ns.GrossMarketValue()
	if gross == 0 {
		return 1
	}
	return math.Abs(ns.NetMarketValue()) / gross
}

// sameSign reports whether every non-zero market value shares one sign.
func sameSign(trades []domain.Trade) bool {
	var sign float64
	for i := range trades {
		mv := trades[i].MarketValue
		if mv == 0 {
			continue
		}
		s := math.Copysign(1, mv)
		if sign == 0 {
			sign = s
			continue
		}
		if s != sign {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
