package domain

import (
	"fmt"
	"math"
	"sort"
)

// AssetClass identifies the regulatory asset class of a trade.
type AssetClass string

const (
	AssetInterestRate AssetClass = "interest_rate"
	AssetCredit       AssetClass = "credit"
	AssetEquity       AssetClass = "equity"
	AssetCommodity    AssetClass = "commodity"
	AssetFX           AssetClass = "fx"
)

// AssetClasses lists every asset class in a stable order.
var AssetClasses = []AssetClass{
	AssetInterestRate,
	AssetCredit,
	AssetEquity,
	AssetCommodity,
	AssetFX,
}

// Valid reports whether the asset class is one of the five known classes.
func (a AssetClass) Valid() bool {
	switch a {
	case AssetInterestRate, AssetCredit, AssetEquity, AssetCommodity, AssetFX:
		return true
	}
	return false
}

// Product identifies the transaction type of a trade.
type Product string

const (
	ProductSwap     Product = "swap"
	ProductForward  Product = "forward"
	ProductOption   Product = "option"
	ProductSwaption Product = "swaption"
	ProductFutures  Product = "futures"
	ProductOther    Product = "other"
)

// Valid reports whether the product is a known transaction type.
func (p Product) Valid() bool {
	switch p {
	case ProductSwap, ProductForward, ProductOption, ProductSwaption, ProductFutures, ProductOther:
		return true
	}
	return false
}

// IsOption reports whether the product carries optionality. Option products
// use the supervisory option delta and the option column of the grid table.
func (p Product) IsOption() bool {
	return p == ProductOption || p == ProductSwaption
}

// CreditQuality splits credit trades between the qualifying and
// non-qualifying risk classes of the sensitivity-based method.
type CreditQuality string

const (
	CreditQualifying    CreditQuality = "qualifying"
	CreditNonQualifying CreditQuality = "non_qualifying"
)

// MaturityBucket is the [0,1), [1,5), [5,inf) year bucketing shared by the
// classifier key and the grid percentage table.
type MaturityBucket string

const (
	BucketShort  MaturityBucket = "0-1"
	BucketMedium MaturityBucket = "1-5"
	BucketLong   MaturityBucket = "5+"
)

// MaturityBuckets lists the buckets in ascending maturity order.
var MaturityBuckets = []MaturityBucket{BucketShort, BucketMedium, BucketLong}

// BucketForMaturity maps a maturity in years onto its bucket. Maturity is
// validated strictly positive before this is called.
func BucketForMaturity(years float64) MaturityBucket {
	switch {
	case years < 1:
		return BucketShort
	case years < 5:
		return BucketMedium
	default:
		return BucketLong
	}
}

// RiskClass is the aggregation class of the sensitivity-based margin
// method. Credit splits into qualifying and non-qualifying; the other asset
// classes map one-to-one.
type RiskClass string

const (
	RiskInterestRate        RiskClass = "interest_rate"
	RiskCreditQualifying    RiskClass = "credit_qualifying"
	RiskCreditNonQualifying RiskClass = "credit_non_qualifying"
	RiskEquity              RiskClass = "equity"
	RiskCommodity           RiskClass = "commodity"
	RiskFX                  RiskClass = "fx"
)

// RiskClasses lists every sensitivity risk class in a stable order.
var RiskClasses = []RiskClass{
	RiskInterestRate,
	RiskCreditQualifying,
	RiskCreditNonQualifying,
	RiskEquity,
	RiskCommodity,
	RiskFX,
}

// AssetClass maps a risk class back to its reporting asset class.
func (r RiskClass) AssetClass() AssetClass {
	switch r {
	case RiskCreditQualifying, RiskCreditNonQualifying:
		return AssetCredit
	default:
		return AssetClass(r)
	}
}

// MarginType is one of the three sensitivity families aggregated by the
// sensitivity-based margin method.
type MarginType string

const (
	MarginDelta     MarginType = "delta"
	MarginVega      MarginType = "vega"
	MarginCurvature MarginType = "curvature"
)

// MarginTypes lists delta, vega, curvature in aggregation order.
var MarginTypes = []MarginType{MarginDelta, MarginVega, MarginCurvature}

// Sensitivities carries the optional risk-factor sensitivities of a trade.
// Nil pointers mean "not supplied"; the sensitivity-based margin path
// requires at least one finite value.
type Sensitivities struct {
	Delta     *float64 `json:"delta,omitempty"`
	Vega      *float64 `json:"vega,omitempty"`
	Curvature *float64 `json:"curvature,omitempty"`
}

// Trade is a single derivative transaction. Immutable once constructed;
// owned exclusively by the netting set that contains it.
type Trade struct {
	ID            string        `json:"id" validate:"required"`
	AssetClass    AssetClass    `json:"asset_class" validate:"required"`
	Product       Product       `json:"product" validate:"required"`
	Notional      float64       `json:"notional" validate:"gt=0"`
	MaturityYears float64       `json:"maturity_years" validate:"gt=0"`
	MarketValue   float64       `json:"market_value"`
	Sensitivities Sensitivities `json:"sensitivities"`

	// Optional grouping hints. The classifier defaults them per asset
	// class when absent so bucket keys stay deterministic.
	Currency        string        `json:"currency,omitempty"`
	ReferenceEntity string        `json:"reference_entity,omitempty"`
	Sector          string        `json:"sector,omitempty"`
	CurrencyPair    string        `json:"currency_pair,omitempty"`
	CreditQuality   CreditQuality `json:"credit_quality,omitempty"`
}

// NettingSet groups the trades covered by a single counterparty agreement.
// Created per calculation request; trade order never affects results.
type NettingSet struct {
	ID           string  `json:"id"`
	Counterparty string  `json:"counterparty"`
	Trades       []Trade `json:"trades"`
	Collateral   float64 `json:"collateral"`

	// Margined selects the margined maturity-factor variant. It must be
	// set explicitly; it is never inferred from collateral being posted.
	Margined               bool    `json:"margined"`
	MarginPeriodOfRiskDays float64 `json:"margin_period_of_risk_days,omitempty"`
}

// NetMarketValue returns the signed sum of trade market values. Values are
// summed in sorted order so the result is independent of trade order down
// to the last bit.
func (ns *NettingSet) NetMarketValue() float64 {
	values := make([]float64, len(ns.Trades))
	for i := range ns.Trades {
		values[i] = ns.Trades[i].MarketValue
	}
	return StableSum(values)
}

// GrossMarketValue returns the sum of absolute trade market values.
func (ns *NettingSet) GrossMarketValue() float64 {
	values := make([]float64, len(ns.Trades))
	for i := range ns.Trades {
		values[i] = math.Abs(ns.Trades[i].MarketValue)
	}
	return StableSum(values)
}

// StableSum adds values in ascending order. Floating-point addition is not
// associative; sorting first makes every aggregate independent of trade
// insertion order, which is a required invariant, not a convenience.
func StableSum(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	var total float64
	for _, v := range sorted {
		total += v
	}
	return total
}

// HedgingSetKey identifies a hedging set (exposure path) or risk bucket
// (margin path). Many trades map to one key; keys are never mutated.
type HedgingSetKey struct {
	AssetClass AssetClass     `json:"asset_class"`
	Qualifier  string         `json:"qualifier"`
	Bucket     MaturityBucket `json:"bucket,omitempty"`
}

// String renders the key for log and error context.
func (k HedgingSetKey) String() string {
	if k.Bucket == "" {
		return fmt.Sprintf("%s/%s", k.AssetClass, k.Qualifier)
	}
	return fmt.Sprintf("%s/%s/%s", k.AssetClass, k.Qualifier, k.Bucket)
}
