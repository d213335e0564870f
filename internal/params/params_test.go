package params

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/riskrun/internal/domain"
)

func TestDefaultTableValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestSupervisoryFactorLookup(t *testing.T) {
	table := Default()

	sf, err := table.SupervisoryFactor(domain.AssetEquity)
	require.NoError(t, err)
	assert.Equal(t, 0.32, sf)

	_, err = table.SupervisoryFactor(domain.AssetClass("weather"))
	require.Error(t, err)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce), "missing parameter must be a ConfigurationError")
	assert.Contains(t, ce.Key, "supervisory_factors")
}

func TestSupervisoryDeltaByProduct(t *testing.T) {
	table := Default()
	assert.Equal(t, 1.0, table.SupervisoryDelta(domain.ProductSwap))
	assert.Equal(t, 1.0, table.SupervisoryDelta(domain.ProductForward))
	assert.Equal(t, 0.5, table.SupervisoryDelta(domain.ProductOption))
	assert.Equal(t, 0.5, table.SupervisoryDelta(domain.ProductSwaption))
}

func TestGridPctLookup(t *testing.T) {
	table := Default()

	pct, err := table.GridPct(domain.AssetCredit, domain.BucketMedium, domain.ProductSwap)
	require.NoError(t, err)
	assert.Equal(t, 0.05, pct)

	_, err = table.GridPct(domain.AssetCredit, domain.MaturityBucket("10+"), domain.ProductSwap)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
}

func TestRiskWeightByMarginType(t *testing.T) {
	table := Default()

	w, err := table.RiskWeight(domain.RiskCommodity, domain.MarginVega)
	require.NoError(t, err)
	assert.Equal(t, 0.30, w)

	_, err = table.RiskWeight(domain.RiskClass("volatility"), domain.MarginDelta)
	var ce *domain.ConfigurationError
	require.True(t, errors.As(err, &ce))
}

func TestConcentrationFallsBackToNeutral(t *testing.T) {
	table := Default()
	assert.Equal(t, 1.0, table.Concentration("interest_rate/USD/1-5"))

	table.ConcentrationFactors["interest_rate/USD/1-5"] = 1.8
	assert.Equal(t, 1.8, table.Concentration("interest_rate/USD/1-5"))
}

func TestValidateRejectsPartialTable(t *testing.T) {
	table := Default()
	delete(table.SupervisoryFactors, domain.AssetFX)
	err := table.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supervisory factor")
}

func TestValidateRejectsOutOfRangeCorrelation(t *testing.T) {
	table := Default()
	table.AddOnCorrelations[domain.AssetEquity] = 1.0
	require.Error(t, table.Validate())

	table = Default()
	table.IntraBucketCorrelation[domain.RiskFX] = -0.1
	require.Error(t, table.Validate())
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join("..", "..", "config", "parameters.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("config file not present: %v", err)
	}

	table, err := Load(path)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.SupervisoryFactors, table.SupervisoryFactors)
	assert.Equal(t, def.Alpha, table.Alpha)
	assert.Equal(t, def.RiskWeights, table.RiskWeights)
	assert.Equal(t, def.GridAddOnPct, table.GridAddOnPct)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("supervisory_factors: [not, a, map]"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsIncompleteTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alpha: 1.4\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
