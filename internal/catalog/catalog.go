// Package catalog lists the cities and years the application has data for.
package catalog

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var citiesYAML []byte

// City is a selectable city with the coordinates used by
// coordinate-based forecast providers.
type City struct {
	Name string  `yaml:"name" json:"name"`
	Lat  float64 `yaml:"lat" json:"lat"`
	Lon  float64 `yaml:"lon" json:"lon"`
}

// Defaults are the initial selections of every screen.
type Defaults struct {
	NZCity       string `yaml:"nz_city" json:"nzCity"`
	CanadianCity string `yaml:"canadian_city" json:"canadianCity"`
	Year         string `yaml:"year" json:"year"`
}

type Catalog struct {
	Defaults   Defaults `yaml:"defaults" json:"defaults"`
	Years      []string `yaml:"years" json:"years"`
	NewZealand []City   `yaml:"new_zealand" json:"newZealand"`
	Canada     []City   `yaml:"canada" json:"canada"`
}

// Load parses the embedded catalogue.
func Load() (*Catalog, error) {
	return Parse(citiesYAML)
}

// Parse decodes a catalogue document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse city catalogue: %w", err)
	}
	if len(c.NewZealand) == 0 || len(c.Canada) == 0 {
		return nil, fmt.Errorf("city catalogue must list New Zealand and Canadian cities")
	}
	return &c, nil
}

// NZCityNames returns New Zealand city names in catalogue order.
func (c *Catalog) NZCityNames() []string {
	return names(c.NewZealand)
}

// CanadianCityNames returns Canadian city names in catalogue order.
func (c *Catalog) CanadianCityNames() []string {
	return names(c.Canada)
}

func (c *Catalog) IsNZCity(name string) bool {
	return slices.ContainsFunc(c.NewZealand, func(city City) bool { return city.Name == name })
}

func (c *Catalog) IsCanadianCity(name string) bool {
	return slices.ContainsFunc(c.Canada, func(city City) bool { return city.Name == name })
}

func (c *Catalog) HasYear(year string) bool {
	return slices.Contains(c.Years, year)
}

// Lookup finds a city in either country.
func (c *Catalog) Lookup(name string) (City, bool) {
	for _, list := range [][]City{c.NewZealand, c.Canada} {
		if i := slices.IndexFunc(list, func(city City) bool { return city.Name == name }); i >= 0 {
			return list[i], true
		}
	}
	return City{}, false
}

func names(cities []City) []string {
	out := make([]string, len(cities))
	for i, c := range cities {
		out[i] = c.Name
	}
	return out
}
