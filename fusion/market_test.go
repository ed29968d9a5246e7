package fusion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketTiers_PricePerM2(t *testing.T) {
	tiers := DefaultMarketTiers()

	tests := []struct {
		hint string
		want float64
	}{
		{"Apartament 2 camere Cluj-Napoca", 2500},
		{"Garsoniera BUCUREȘTI, Cișmigiu", 2500},
		{"Casa Primăverii", 2500},
		{"Vila Timișoara", 1800},
		{"Apartament Constanţa", 1800},
		{"Casa Brașov", 1600},
		{"", 1600},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, tiers.PricePerM2(tt.hint))
		})
	}
}

func TestMarketTiers_Reference(t *testing.T) {
	ref := DefaultMarketTiers().Reference(80, "Apartament de vânzare, 3 camere, 80 mp")
	assert.Equal(t, 128000.0, ref)
}

func TestLoadMarketTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
baseline_per_m2: 1200
tiers:
  - name: capital
    price_per_m2: 3000
    keywords: [bucurești, ilfov]
`), 0644))

	tiers, err := LoadMarketTiers(path)

	require.NoError(t, err)
	assert.Equal(t, 3000.0, tiers.PricePerM2("Casa Ilfov"))
	assert.Equal(t, 3000.0, tiers.PricePerM2("Bucuresti Sector 1"))
	assert.Equal(t, 1200.0, tiers.PricePerM2("Cluj"))
}

func TestLoadMarketTiers_Defaults(t *testing.T) {
	tiers, err := LoadMarketTiers("")

	require.NoError(t, err)
	assert.Equal(t, DefaultMarketTiers(), tiers)
}

func TestLoadMarketTiers_Invalid(t *testing.T) {
	dir := t.TempDir()

	noBaseline := filepath.Join(dir, "a.yaml")
	require.NoError(t, os.WriteFile(noBaseline, []byte("tiers: []\n"), 0644))
	_, err := LoadMarketTiers(noBaseline)
	assert.Error(t, err)

	broken := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("tiers: [\n"), 0644))
	_, err = LoadMarketTiers(broken)
	assert.Error(t, err)

	_, err = LoadMarketTiers(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
