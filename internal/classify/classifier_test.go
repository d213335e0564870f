package classify

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskrun/internal/domain"
)

func validTrade() domain.Trade {
	return domain.Trade{
		ID:            "T1",
		AssetClass:    domain.AssetInterestRate,
		Product:       domain.ProductSwap,
		Notional:      1_000_000,
		MaturityYears: 5,
		MarketValue:   10_000,
		Currency:      "USD",
	}
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	assert.Equal(t, field, ve.Field)
}

func TestClassifyValidTrade(t *testing.T) {
	c := New()
	ct, err := c.Classify(validTrade(), false)
	require.NoError(t, err)

	assert.Equal(t, domain.RiskInterestRate, ct.RiskClass)
	assert.Equal(t, domain.HedgingSetKey{
		AssetClass: domain.AssetInterestRate,
		Qualifier:  "USD",
		Bucket:     domain.BucketLong,
	}, ct.Bucket)
}

func TestClassifyRejectsMissingID(t *testing.T) {
	c := New()
	tr := validTrade()
	tr.ID = ""
	_, err := c.Classify(tr, false)
	requireValidationField(t, err, "id")
}

func TestClassifyRejectsNonPositiveNotional(t *testing.T) {
	c := New()
	for _, notional := range []float64{0, -100} {
		tr := validTrade()
		tr.Notional = notional
		_, err := c.Classify(tr, false)
		requireValidationField(t, err, "notional")
	}
}

func TestClassifyRejectsNonPositiveMaturity(t *testing.T) {
	c := New()
	tr := validTrade()
	tr.MaturityYears = 0
	_, err := c.Classify(tr, false)
	requireValidationField(t, err, "maturity_years")
}

func TestClassifyRejectsUnknownAssetClass(t *testing.T) {
	c := New()
	tr := validTrade()
	tr.AssetClass = "weather"
	_, err := c.Classify(tr, false)
	requireValidationField(t, err, "asset_class")
}

func TestClassifyRejectsUnknownProduct(t *testing.T) {
	c := New()
	tr := validTrade()
	tr.Product = "cds_index"
	_, err := c.Classify(tr, false)
	requireValidationField(t, err, "product")
}

func TestClassifyRejectsNonFiniteMarketValue(t *testing.T) {
	c := New()
	for _, mv := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		tr := validTrade()
		tr.MarketValue = mv
		_, err := c.Classify(tr, false)
		requireValidationField(t, err, "market_value")
	}
}

func TestClassifyRejectsNonFiniteSensitivity(t *testing.T) {
	c := New()
	bad := math.NaN()
	tr := validTrade()
	tr.Sensitivities.Vega = &bad

	// Non-finite sensitivities are rejected on every path, not just the
	// sensitivity-based one.
	_, err := c.Classify(tr, false)
	requireValidationField(t, err, "sensitivities.vega")
}

func TestClassifySensitivityPresenceOnlyWhenRequired(t *testing.T) {
	c := New()
	tr := validTrade() // no sensitivities supplied

	_, err := c.Classify(tr, false)
	require.NoError(t, err)

	_, err = c.Classify(tr, true)
	requireValidationField(t, err, "sensitivities")

	delta := 2500.0
	tr.Sensitivities.Delta = &delta
	_, err = c.Classify(tr, true)
	require.NoError(t, err)
}

func TestBucketKeysPerAssetClass(t *testing.T) {
	c := New()
	cases := []struct {
		name  string
		trade domain.Trade
		want  domain.HedgingSetKey
	}{
		{
			name: "rates keyed by currency and maturity bucket",
			trade: domain.Trade{
				ID: "r", AssetClass: domain.AssetInterestRate, Product: domain.ProductSwap,
				Notional: 1, MaturityYears: 0.5, Currency: "EUR",
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetInterestRate, Qualifier: "EUR", Bucket: domain.BucketShort},
		},
		{
			name: "credit keyed by reference entity",
			trade: domain.Trade{
				ID: "c", AssetClass: domain.AssetCredit, Product: domain.ProductSwap,
				Notional: 1, MaturityYears: 3, ReferenceEntity: "ACME",
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetCredit, Qualifier: "ACME"},
		},
		{
			name: "equity keyed by reference entity",
			trade: domain.Trade{
				ID: "e", AssetClass: domain.AssetEquity, Product: domain.ProductOption,
				Notional: 1, MaturityYears: 1, ReferenceEntity: "ACME",
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetEquity, Qualifier: "ACME"},
		},
		{
			name: "commodity keyed by sector",
			trade: domain.Trade{
				ID: "m", AssetClass: domain.AssetCommodity, Product: domain.ProductForward,
				Notional: 1, MaturityYears: 1, Sector: "energy",
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetCommodity, Qualifier: "energy"},
		},
		{
			name: "fx keyed by currency pair",
			trade: domain.Trade{
				ID: "f", AssetClass: domain.AssetFX, Product: domain.ProductForward,
				Notional: 1, MaturityYears: 1, CurrencyPair: "EURUSD",
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetFX, Qualifier: "EURUSD"},
		},
		{
			name: "missing qualifier defaults deterministically",
			trade: domain.Trade{
				ID: "d", AssetClass: domain.AssetEquity, Product: domain.ProductSwap,
				Notional: 1, MaturityYears: 1,
			},
			want: domain.HedgingSetKey{AssetClass: domain.AssetEquity, Qualifier: "general"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ct, err := c.Classify(tc.trade, false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ct.Bucket)
		})
	}
}

func TestCreditRiskClassSplit(t *testing.T) {
	c := New()
	tr := domain.Trade{
		ID: "cq", AssetClass: domain.AssetCredit, Product: domain.ProductSwap,
		Notional: 1, MaturityYears: 3, ReferenceEntity: "ACME",
	}

	ct, err := c.Classify(tr, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCreditQualifying, ct.RiskClass, "credit defaults to qualifying")

	tr.CreditQuality = domain.CreditNonQualifying
	ct, err = c.Classify(tr, false)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskCreditNonQualifying, ct.RiskClass)

	tr.CreditQuality = "junk"
	_, err = c.Classify(tr, false)
	requireValidationField(t, err, "credit_quality")
}

func TestClassifySetFailsOnFirstInvalidTrade(t *testing.T) {
	c := New()
	ns := &domain.NettingSet{
		ID: "NS1",
		Trades: []domain.Trade{
			validTrade(),
			{ID: "bad", AssetClass: domain.AssetEquity, Product: domain.ProductSwap, Notional: -1, MaturityYears: 1},
		},
	}

	_, err := c.ClassifySet(ns, false)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "bad", ve.TradeID)
}
