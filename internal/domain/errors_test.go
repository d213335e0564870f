package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("T1", "notional", "must be strictly positive")
	want := "validation: trade T1 field notional: must be strictly positive"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConfigurationErrorScoping(t *testing.T) {
	base := NewConfigurationError("supervisory_factors[equity]")
	scoped := base.WithNettingSet("NS1")

	if base.NettingSetID != "" {
		t.Fatal("WithNettingSet must not mutate the original")
	}
	want := "configuration: netting set NS1: no parameter for supervisory_factors[equity]"
	if scoped.Error() != want {
		t.Errorf("Error() = %q, want %q", scoped.Error(), want)
	}
}

func TestErrorsAsThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("calculate: %w", NewConfigurationError("alpha"))
	var ce *ConfigurationError
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As failed to unwrap ConfigurationError")
	}
	if ce.Key != "alpha" {
		t.Errorf("Key = %q, want alpha", ce.Key)
	}
}

func TestComputationErrorMessage(t *testing.T) {
	err := NewComputationError("NS2", "breakdown_percentages", "percentages sum to 99.5, want 100")
	want := "computation: netting set NS2: invariant breakdown_percentages violated: percentages sum to 99.5, want 100"
	if err.Error() != want {
		t.Errorf("Error() = %q", err.Error())
	}
}
