// Package refdata holds the static reference tables the generator and the
// correlation engine share: manufacturers, recovery centers, material
// categories and the city coordinate map. The built-in tables reproduce the
// demo corpus exactly; a YAML file can override any section.
package refdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/imaginativeimprint/EcoLoop-Bharat-LiveAI/internal/contracts"
)

type Manufacturer struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	City  string `yaml:"city"`
	State string `yaml:"state"`
}

type RecoveryCenter struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	City     string `yaml:"city"`
	Capacity int    `yaml:"capacity"`
}

type Material struct {
	Type        string                     `yaml:"type"`
	Category    contracts.MaterialCategory `yaml:"category"`
	Recyclable  float64                    `yaml:"recyclable"`
	CarbonPerKg float64                    `yaml:"carbon_per_kg"`
}

type Coord struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// NationalCentroid is the documented fallback for unknown cities.
var NationalCentroid = Coord{Lat: 20.5937, Lon: 78.9629}

// DefaultCreditRate applies when a material category has no credit rate.
const DefaultCreditRate = 10.0

type Catalog struct {
	Manufacturers   []Manufacturer                         `yaml:"manufacturers"`
	RecoveryCenters []RecoveryCenter                       `yaml:"recovery_centers"`
	Materials       []Material                             `yaml:"materials"`
	Cities          map[string]Coord                       `yaml:"cities"`
	CreditRates     map[contracts.MaterialCategory]float64 `yaml:"credit_rates"`
}

// Default returns the built-in demo tables.
func Default() *Catalog {
	return &Catalog{
		Manufacturers: []Manufacturer{
			{ID: "M001", Name: "Tata Steel", City: "Jamshedpur", State: "Jharkhand"},
			{ID: "M002", Name: "Relacy Plastics", City: "Mumbai", State: "Maharashtra"},
			{ID: "M003", Name: "Dixit E-Waste", City: "Delhi", State: "Delhi"},
			{ID: "M004", Name: "Kumar Paper Mills", City: "Chennai", State: "Tamil Nadu"},
			{ID: "M005", Name: "GreenGlass India", City: "Bengaluru", State: "Karnataka"},
			{ID: "M006", Name: "Amul Dairy", City: "Anand", State: "Gujarat"},
			{ID: "M007", Name: "Apple India", City: "Bengaluru", State: "Karnataka"},
			{ID: "M008", Name: "Samsung India", City: "Noida", State: "UP"},
		},
		RecoveryCenters: []RecoveryCenter{
			{ID: "R001", Name: "Delhi Recycling Hub", City: "Delhi", Capacity: 10000},
			{ID: "R002", Name: "Mumbai Waste Warriors", City: "Mumbai", Capacity: 15000},
			{ID: "R003", Name: "Bengaluru E-Parisara", City: "Bengaluru", Capacity: 8000},
			{ID: "R004", Name: "Chennai Green Center", City: "Chennai", Capacity: 7000},
			{ID: "R005", Name: "Kolkata Recovery", City: "Kolkata", Capacity: 6000},
			{ID: "R006", Name: "Pune Recycling", City: "Pune", Capacity: 5000},
			{ID: "R007", Name: "Ahmedabad Waste", City: "Ahmedabad", Capacity: 4500},
			{ID: "R008", Name: "Hyderabad Green", City: "Hyderabad", Capacity: 5500},
		},
		Materials: []Material{
			{Type: "PET Plastic", Category: contracts.CategoryPlastic, Recyclable: 0.85, CarbonPerKg: 2.5},
			{Type: "HDPE Plastic", Category: contracts.CategoryPlastic, Recyclable: 0.90, CarbonPerKg: 2.3},
			{Type: "Aluminum", Category: contracts.CategoryMetal, Recyclable: 0.95, CarbonPerKg: 8.0},
			{Type: "Steel", Category: contracts.CategoryMetal, Recyclable: 0.88, CarbonPerKg: 1.8},
			{Type: "Copper", Category: contracts.CategoryMetal, Recyclable: 0.92, CarbonPerKg: 3.5},
			{Type: "Glass", Category: contracts.CategoryGlass, Recyclable: 0.80, CarbonPerKg: 0.8},
			{Type: "Paper/Cardboard", Category: contracts.CategoryPaper, Recyclable: 0.75, CarbonPerKg: 0.5},
			{Type: "E-Waste PCB", Category: contracts.CategoryEWaste, Recyclable: 0.70, CarbonPerKg: 15.0},
			{Type: "Lithium Battery", Category: contracts.CategoryEWaste, Recyclable: 0.60, CarbonPerKg: 25.0},
			{Type: "Organic Waste", Category: contracts.CategoryOrganic, Recyclable: 0.95, CarbonPerKg: 0.2},
		},
		Cities: map[string]Coord{
			"Delhi":      {Lat: 28.6139, Lon: 77.2090},
			"Mumbai":     {Lat: 19.0760, Lon: 72.8777},
			"Bengaluru":  {Lat: 12.9716, Lon: 77.5946},
			"Chennai":    {Lat: 13.0827, Lon: 80.2707},
			"Kolkata":    {Lat: 22.5726, Lon: 88.3639},
			"Pune":       {Lat: 18.5204, Lon: 73.8567},
			"Ahmedabad":  {Lat: 23.0225, Lon: 72.5714},
			"Hyderabad":  {Lat: 17.3850, Lon: 78.4867},
			"Jamshedpur": {Lat: 22.8046, Lon: 86.2029},
			"Noida":      {Lat: 28.5355, Lon: 77.3910},
			"Anand":      {Lat: 22.5645, Lon: 72.9289},
		},
		CreditRates: map[contracts.MaterialCategory]float64{
			contracts.CategoryPlastic: 15,
			contracts.CategoryEWaste:  45,
			contracts.CategoryMetal:   35,
			contracts.CategoryPaper:   8,
			contracts.CategoryGlass:   5,
			contracts.CategoryOrganic: 3,
		},
	}
}

// Load reads a YAML catalog from path. Sections missing from the file keep
// the built-in defaults, so partial overrides are fine.
func Load(path string) (*Catalog, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: read %s: %w", path, err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(body, &overlay); err != nil {
		return nil, fmt.Errorf("refdata: parse %s: %w", path, err)
	}

	cat := Default()
	if len(overlay.Manufacturers) > 0 {
		cat.Manufacturers = overlay.Manufacturers
	}
	if len(overlay.RecoveryCenters) > 0 {
		cat.RecoveryCenters = overlay.RecoveryCenters
	}
	if len(overlay.Materials) > 0 {
		cat.Materials = overlay.Materials
	}
	if len(overlay.Cities) > 0 {
		cat.Cities = overlay.Cities
	}
	if len(overlay.CreditRates) > 0 {
		cat.CreditRates = overlay.CreditRates
	}
	return cat, nil
}

func (c *Catalog) ManufacturerByID(id string) (Manufacturer, bool) {
	for _, m := range c.Manufacturers {
		if m.ID == id {
			return m, true
		}
	}
	return Manufacturer{}, false
}

func (c *Catalog) CenterByID(id string) (RecoveryCenter, bool) {
	for _, r := range c.RecoveryCenters {
		if r.ID == id {
			return r, true
		}
	}
	return RecoveryCenter{}, false
}

func (c *Catalog) MaterialByType(materialType string) (Material, bool) {
	for _, m := range c.Materials {
		if m.Type == materialType {
			return m, true
		}
	}
	return Material{}, false
}

// CityCoord resolves a city to its reference coordinate, falling back to
// the national centroid for unknown cities. The second return reports
// whether the city was known.
func (c *Catalog) CityCoord(city string) (Coord, bool) {
	if coord, ok := c.Cities[city]; ok {
		return coord, true
	}
	return NationalCentroid, false
}

// CreditRate returns the per-kg circular credit rate for a category. The
// second return reports whether the category had an explicit rate.
func (c *Catalog) CreditRate(category contracts.MaterialCategory) (float64, bool) {
	if rate, ok := c.CreditRates[category]; ok {
		return rate, true
	}
	return DefaultCreditRate, false
}

// CenterRegion maps a recovery center to its rollup region (the center's
// city). Unknown centers fall back to the raw center id so their events
// still aggregate somewhere visible.
func (c *Catalog) CenterRegion(centerID string) string {
	if center, ok := c.CenterByID(centerID); ok {
		return center.City
	}
	return centerID
}
