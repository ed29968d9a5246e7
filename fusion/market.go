// Package fusion blends model output with market references and combines
// fraud signals into a verdict.
package fusion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"listing-guard/utils"
)

// Tier is a price level shared by a group of locations.
type Tier struct {
	Name       string   `yaml:"name"`
	PricePerM2 float64  `yaml:"price_per_m2"`
	Keywords   []string `yaml:"keywords"`
}

// MarketTiers maps a location hint to a EUR/m² reference. Tiers are checked
// in order; the first keyword found in the hint wins.
type MarketTiers struct {
	Tiers         []Tier  `yaml:"tiers"`
	BaselinePerM2 float64 `yaml:"baseline_per_m2"`
}

// DefaultMarketTiers returns the built-in table.
func DefaultMarketTiers() *MarketTiers {
	return &MarketTiers{
		Tiers: []Tier{
			{Name: "high", PricePerM2: 2500, Keywords: []string{"bucuresti", "cluj", "cismigiu", "primaverii"}},
			{Name: "middle", PricePerM2: 1800, Keywords: []string{"timisoara", "iasi", "constanta"}},
		},
		BaselinePerM2: 1600,
	}
}

// LoadMarketTiers reads a YAML table from path. An empty path yields the
// built-in table.
func LoadMarketTiers(path string) (*MarketTiers, error) {
	if path == "" {
		return DefaultMarketTiers(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fusion: read market tiers: %w", err)
	}

	var m MarketTiers
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("fusion: parse market tiers: %w", err)
	}
	if m.BaselinePerM2 <= 0 {
		return nil, fmt.Errorf("fusion: market tiers: baseline_per_m2 must be positive")
	}
	for _, t := range m.Tiers {
		if t.PricePerM2 <= 0 {
			return nil, fmt.Errorf("fusion: market tiers: tier %q has no price_per_m2", t.Name)
		}
	}
	return &m, nil
}

// PricePerM2 returns the reference price for a location hint.
func (m *MarketTiers) PricePerM2(hint string) float64 {
	folded := utils.FoldText(hint)
	for _, t := range m.Tiers {
		for _, kw := range t.Keywords {
			if kw = utils.FoldText(strings.TrimSpace(kw)); kw != "" && strings.Contains(folded, kw) {
				return t.PricePerM2
			}
		}
	}
	return m.BaselinePerM2
}

// Reference is the market value of surfaceM2 at the hinted location.
func (m *MarketTiers) Reference(surfaceM2 float64, hint string) float64 {
	return surfaceM2 * m.PricePerM2(hint)
}
