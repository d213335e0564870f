// Package classify validates raw trades and assigns the deterministic
// hedging-set / risk-bucket keys that the exposure and margin engines
// aggregate over. Classification is side-effect-free.
package classify

import (
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sawpanic/riskrun/internal/domain"
)

// defaultQualifier is used when a trade carries no grouping hint, keeping
// bucket keys deterministic for minimal trade records.
const defaultQualifier = "general"

// Classified is a trade with its derived aggregation keys. Never mutated
// after creation.
type Classified struct {
	Trade     domain.Trade
	Bucket    domain.HedgingSetKey
	RiskClass domain.RiskClass
}

// Classifier validates trades and derives bucket keys. Safe for concurrent
// use.
type Classifier struct {
	validate *validator.Validate
}

// New creates a classifier. Validator field names are taken from json tags
// so validation errors name the wire-level field.
func New() *Classifier {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Classifier{validate: v}
}

// Classify validates a trade and derives its bucket key and risk class.
// needSensitivities is set by the sensitivity-based margin path; other
// paths never fail on absent sensitivities.
func (c *Classifier) Classify(t domain.Trade, needSensitivities bool) (Classified, error) {
	if err := c.structural(t); err != nil {
		return Classified{}, err
	}

	if !t.AssetClass.Valid() {
		return Classified{}, domain.NewValidationError(t.ID, "asset_class", "unknown asset class "+string(t.AssetClass))
	}
	if !t.Product.Valid() {
		return Classified{}, domain.NewValidationError(t.ID, "product", "unknown product "+string(t.Product))
	}
	if t.CreditQuality != "" && t.CreditQuality != domain.CreditQualifying && t.CreditQuality != domain.CreditNonQualifying {
		return Classified{}, domain.NewValidationError(t.ID, "credit_quality", "unknown credit quality "+string(t.CreditQuality))
	}
	if math.IsNaN(t.MarketValue) || math.IsInf(t.MarketValue, 0) {
		return Classified{}, domain.NewValidationError(t.ID, "market_value", "must be finite")
	}

	if err := checkSensitivities(t, needSensitivities); err != nil {
		return Classified{}, err
	}

	return Classified{
		Trade:     t,
		Bucket:    bucketKey(t),
		RiskClass: riskClass(t),
	}, nil
}

// ClassifySet classifies every trade of a netting set. The first invalid
// trade fails the set; batch callers isolate failures per row instead.
func (c *Classifier) ClassifySet(ns *domain.NettingSet, needSensitivities bool) ([]Classified, error) {
	out := make([]Classified, 0, len(ns.Trades))
	for i := range ns.Trades {
		ct, err := c.Classify(ns.Trades[i], needSensitivities)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// structural runs the tag-driven checks and maps the first failure to a
// field-scoped domain error.
func (c *Classifier) structural(t domain.Trade) error {
	err := c.validate.Struct(t)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return domain.NewValidationError(t.ID, "", err.Error())
	}
	fe := verrs[0]
	reason := "invalid value"
	switch fe.Tag() {
	case "required":
		reason = "required field is missing"
	case "gt":
		reason = "must be strictly positive"
	}
	return domain.NewValidationError(t.ID, fe.Field(), reason)
}

// checkSensitivities enforces the sensitivity-based margin input contract:
// at least one of delta/vega/curvature present, and every supplied value
// finite. Other methodologies skip the presence check but still reject
// non-finite values.
func checkSensitivities(t domain.Trade, required bool) error {
	s := t.Sensitivities
	present := 0
	for field, v := range map[string]*float64{
		"delta":     s.Delta,
		"vega":      s.Vega,
		"curvature": s.Curvature,
	} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return domain.NewValidationError(t.ID, "sensitivities."+field, "must be finite")
		}
		present++
	}
	if required && present == 0 {
		return domain.NewValidationError(t.ID, "sensitivities", "sensitivity-based margin requires at least one of delta, vega, curvature")
	}
	return nil
}

// bucketKey derives the aggregation key: currency plus maturity bucket for
// rates, reference entity for credit and equity, sector for commodity,
// currency pair for FX.
func bucketKey(t domain.Trade) domain.HedgingSetKey {
	switch t.AssetClass {
	case domain.AssetInterestRate:
		return domain.HedgingSetKey{
			AssetClass: t.AssetClass,
			Qualifier:  orDefault(t.Currency),
			Bucket:     domain.BucketForMaturity(t.MaturityYears),
		}
	case domain.AssetCredit, domain.AssetEquity:
		return domain.HedgingSetKey{AssetClass: t.AssetClass, Qualifier: orDefault(t.ReferenceEntity)}
	case domain.AssetCommodity:
		return domain.HedgingSetKey{AssetClass: t.AssetClass, Qualifier: orDefault(t.Sector)}
	default: // fx
		return domain.HedgingSetKey{AssetClass: t.AssetClass, Qualifier: orDefault(t.CurrencyPair)}
	}
}

// riskClass maps the trade onto a sensitivity risk class. Credit trades
// default to qualifying unless flagged otherwise.
func riskClass(t domain.Trade) domain.RiskClass {
	if t.AssetClass == domain.AssetCredit {
		if t.CreditQuality == domain.CreditNonQualifying {
			return domain.RiskCreditNonQualifying
		}
		return domain.RiskCreditQualifying
	}
	return domain.RiskClass(t.AssetClass)
}

func orDefault(s string) string {
	if s == "" {
		return defaultQualifier
	}
	return s
}
