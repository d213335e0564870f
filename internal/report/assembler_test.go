package report

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskrun/internal/domain"
	"github.com/sawpanic/riskrun/internal/exposure"
	"github.com/sawpanic/riskrun/internal/margin"
)

func TestAssembleStampsRunID(t *testing.T) {
	res := Assemble(nil, nil)
	_, err := uuid.Parse(res.RunID)
	require.NoError(t, err, "run id must be a valid UUID")
	assert.False(t, res.GeneratedAt.IsZero())
	assert.Equal(t, "UTC", res.GeneratedAt.Location().String())
}

func TestAssembleExposureBreakdown(t *testing.T) {
	results := []*exposure.Result{
		{
			NettingSetID:            "A",
			ReplacementCost:         1_000,
			PotentialFutureExposure: 3_000,
			ExposureAtDefault:       5_600,
			AssetClassAddOns: map[domain.AssetClass]float64{
				domain.AssetInterestRate: 1_000,
				domain.AssetEquity:       2_000,
			},
		},
		{
			NettingSetID:            "B",
			ReplacementCost:         500,
			PotentialFutureExposure: 1_000,
			ExposureAtDefault:       2_100,
			AssetClassAddOns: map[domain.AssetClass]float64{
				domain.AssetEquity: 1_000,
			},
		},
	}

	rep, err := AssembleExposure(results)
	require.NoError(t, err)

	assert.Equal(t, 1_500.0, rep.ReplacementCost)
	assert.Equal(t, 4_000.0, rep.PotentialFutureExposure)
	assert.Equal(t, 7_700.0, rep.ExposureAtDefault)

	require.Len(t, rep.AssetClassBreakdown, 2)
	assert.Equal(t, domain.AssetInterestRate, rep.AssetClassBreakdown[0].AssetClass)
	assert.Equal(t, 1_000.0, rep.AssetClassBreakdown[0].Exposure)
	assert.InDelta(t, 25.0, rep.AssetClassBreakdown[0].Percentage, 1e-9)
	assert.Equal(t, domain.AssetEquity, rep.AssetClassBreakdown[1].AssetClass)
	assert.Equal(t, 3_000.0, rep.AssetClassBreakdown[1].Exposure)
	assert.InDelta(t, 75.0, rep.AssetClassBreakdown[1].Percentage, 1e-9)
}

func TestAssembleExposureZeroTotal(t *testing.T) {
	rep, err := AssembleExposure([]*exposure.Result{
		{NettingSetID: "A", AssetClassAddOns: map[domain.AssetClass]float64{domain.AssetFX: 0}},
	})
	require.NoError(t, err)
	require.Len(t, rep.AssetClassBreakdown, 1)
	assert.Equal(t, 0.0, rep.AssetClassBreakdown[0].Percentage)
}

func TestAssembleMarginSingleMethod(t *testing.T) {
	results := []*margin.Result{
		{
			NettingSetID: "A",
			Method:       margin.MethodGrid,
			TotalMargin:  10_000,
			AssetClassMargins: map[domain.AssetClass]float64{
				domain.AssetCredit: 10_000,
			},
		},
		{
			NettingSetID: "B",
			Method:       margin.MethodGrid,
			TotalMargin:  30_000,
			AssetClassMargins: map[domain.AssetClass]float64{
				domain.AssetCredit: 20_000,
				domain.AssetFX:     10_000,
			},
		},
	}

	rep, err := AssembleMargin(results)
	require.NoError(t, err)

	assert.Equal(t, margin.MethodGrid, rep.Method)
	assert.Equal(t, 40_000.0, rep.TotalMargin)
	require.Len(t, rep.AssetClassBreakdown, 2)
	assert.Equal(t, domain.AssetCredit, rep.AssetClassBreakdown[0].AssetClass)
	assert.InDelta(t, 75.0, rep.AssetClassBreakdown[0].Percentage, 1e-9)
	assert.Nil(t, rep.Sensitivity)
}

func TestAssembleMarginRejectsMixedMethods(t *testing.T) {
	_, err := AssembleMargin([]*margin.Result{
		{NettingSetID: "A", Method: margin.MethodGrid},
		{NettingSetID: "B", Method: margin.MethodSensitivity},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mixed margin methods")
}

func TestAssembleMarginAccumulatesSensitivityDetail(t *testing.T) {
	results := []*margin.Result{
		{
			NettingSetID: "A",
			Method:       margin.MethodSensitivity,
			TotalMargin:  300,
			AssetClassMargins: map[domain.AssetClass]float64{
				domain.AssetEquity: 300,
			},
			Sensitivity: &margin.SensitivityDetail{
				Delta: 200, Vega: 100,
				RiskClasses: map[domain.RiskClass]margin.RiskClassMargin{
					domain.RiskEquity: {Delta: 200, Vega: 100, Total: 300},
				},
			},
		},
		{
			NettingSetID: "B",
			Method:       margin.MethodSensitivity,
			TotalMargin:  50,
			AssetClassMargins: map[domain.AssetClass]float64{
				domain.AssetEquity: 50,
			},
			Sensitivity: &margin.SensitivityDetail{
				Delta: 50,
				RiskClasses: map[domain.RiskClass]margin.RiskClassMargin{
					domain.RiskEquity: {Delta: 50, Total: 50},
				},
			},
		},
	}

	rep, err := AssembleMargin(results)
	require.NoError(t, err)
	require.NotNil(t, rep.Sensitivity)
	assert.Equal(t, 250.0, rep.Sensitivity.Delta)
	assert.Equal(t, 100.0, rep.Sensitivity.Vega)
	assert.Equal(t, 350.0, rep.Sensitivity.RiskClasses[domain.RiskEquity].Total)
}

func TestCheckPercentagesViolationIsComputationError(t *testing.T) {
	err := checkPercentages([]float64{60, 30}, 1_000)
	require.Error(t, err)
	var ce *domain.ComputationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "breakdown_percentages", ce.Invariant)
}

func TestCheckPercentagesToleratesRounding(t *testing.T) {
	require.NoError(t, checkPercentages([]float64{33.333333333, 33.333333333, 33.333333334}, 300))
	require.NoError(t, checkPercentages(nil, 0))
}

func TestDisplayRound(t *testing.T) {
	assert.Equal(t, 1.23, DisplayRound(1.23456, 2))
	assert.Equal(t, 1.235, DisplayRound(1.23456, 3))
	assert.Equal(t, -7.0, DisplayRound(-6.999, 0))
}
