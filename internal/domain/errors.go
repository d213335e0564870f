package domain

import "fmt"

// ValidationError reports a malformed, missing, or non-positive required
// field on a single trade. It carries enough context to locate the
// offending input without re-deriving it from logs.
type ValidationError struct {
	TradeID string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	if e.TradeID == "" {
		return fmt.Sprintf("validation: field %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation: trade %s field %s: %s", e.TradeID, e.Field, e.Reason)
}

// NewValidationError builds a field-scoped validation error.
func NewValidationError(tradeID, field, reason string) *ValidationError {
	return &ValidationError{TradeID: tradeID, Field: field, Reason: reason}
}

// ConfigurationError reports a parameter table lookup that resolved to no
// defined value. Absence of a parameter is a configuration defect, never a
// silent default. Scoped per netting set so a batch can keep going.
type ConfigurationError struct {
	NettingSetID string
	Key          string
}

func (e *ConfigurationError) Error() string {
	if e.NettingSetID == "" {
		return fmt.Sprintf("configuration: no parameter for %s", e.Key)
	}
	return fmt.Sprintf("configuration: netting set %s: no parameter for %s", e.NettingSetID, e.Key)
}

// WithNettingSet returns a copy scoped to the given netting set.
func (e *ConfigurationError) WithNettingSet(id string) *ConfigurationError {
	return &ConfigurationError{NettingSetID: id, Key: e.Key}
}

// NewConfigurationError builds a configuration error for a missing key.
func NewConfigurationError(key string) *ConfigurationError {
	return &ConfigurationError{Key: key}
}

// ComputationError reports a violated internal invariant, e.g. a breakdown
// whose percentages do not sum to 100 within tolerance. Treated as a
// defect: logged and surfaced as a failed calculation.
type ComputationError struct {
	NettingSetID string
	Invariant    string
	Detail       string
}

func (e *ComputationError) Error() string {
	if e.NettingSetID == "" {
		return fmt.Sprintf("computation: invariant %s violated: %s", e.Invariant, e.Detail)
	}
	return fmt.Sprintf("computation: netting set %s: invariant %s violated: %s", e.NettingSetID, e.Invariant, e.Detail)
}

// NewComputationError builds a computation error for a violated invariant.
func NewComputationError(nettingSetID, invariant, detail string) *ComputationError {
	return &ComputationError{NettingSetID: nettingSetID, Invariant: invariant, Detail: detail}
}
