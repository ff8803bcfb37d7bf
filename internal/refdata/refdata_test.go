package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

func TestDefaultCatalog(t *testing.T) {
	cat := Default()

	assert.Len(t, cat.Manufacturers, 8)
	assert.Len(t, cat.RecoveryCenters, 8)
	assert.Len(t, cat.Materials, 10)

	for _, m := range cat.Manufacturers {
		_, known := cat.CityCoord(m.City)
		assert.True(t, known, "manufacturer city %s must have a coordinate", m.City)
	}
	for _, m := range cat.Materials {
		assert.True(t, m.Category.Valid(), "material %s", m.Type)
		assert.Greater(t, m.CarbonPerKg, 0.0)
	}
}

func TestLookupFallbacks(t *testing.T) {
	cat := Default()

	coord, known := cat.CityCoord("Atlantis")
	assert.False(t, known)
	assert.Equal(t, NationalCentroid, coord)

	rate, known := cat.CreditRate(contracts.CategoryHazardous)
	assert.False(t, known)
	assert.Equal(t, DefaultCreditRate, rate)

	rate, known = cat.CreditRate(contracts.CategoryEWaste)
	assert.True(t, known)
	assert.Equal(t, 45.0, rate)

	_, ok := cat.ManufacturerByID("M999")
	assert.False(t, ok)

	assert.Equal(t, "Delhi", cat.CenterRegion("R001"))
	assert.Equal(t, "R999", cat.CenterRegion("R999"))
}

func TestLoadPartialOverride(t *testing.T) {
	body := `
manufacturers:
  - id: X001
    name: Test Works
    city: Delhi
    state: Delhi
credit_rates:
  plastic: 20
`
	path := filepath.Join(t.TempDir(), "refdata.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)

	// Overridden sections.
	require.Len(t, cat.Manufacturers, 1)
	assert.Equal(t, "X001", cat.Manufacturers[0].ID)
	rate, known := cat.CreditRate(contracts.CategoryPlastic)
	assert.True(t, known)
	assert.Equal(t, 20.0, rate)

	// Untouched sections keep defaults.
	assert.Len(t, cat.RecoveryCenters, 8)
	assert.Len(t, cat.Materials, 10)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("manufacturers: [not a map"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
