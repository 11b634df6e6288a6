package pricing

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog_idr.yaml
var idrCatalog []byte

var embeddedCatalogs = map[string][]byte{
	"usd": defaultCatalog,
	"idr": idrCatalog,
}

// zeroDecimal currencies are priced in whole units.
var zeroDecimal = map[string]bool{
	"idr": true,
	"jpy": true,
	"krw": true,
}

// Catalog lists the options a case can be configured with and what each one
// adds to the base price. Amounts are in minor currency units.
type Catalog struct {
	Currency  string           `yaml:"currency"`
	BasePrice int64            `yaml:"base_price"`
	Models    []string         `yaml:"models"`
	Colors    []string         `yaml:"colors"`
	Materials map[string]int64 `yaml:"materials"`
	Finishes  map[string]int64 `yaml:"finishes"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("pricing: embedded catalog is invalid: %v", err))
	}
	return c
}

// DefaultCatalogFor returns the compiled-in catalog priced in currency.
func DefaultCatalogFor(currency string) (*Catalog, error) {
	data, ok := embeddedCatalogs[strings.ToLower(currency)]
	if !ok {
		return nil, fmt.Errorf("pricing: no built-in catalog for currency %q", currency)
	}
	return ParseCatalog(data)
}

// Decimals is the number of minor-unit digits amounts in currency carry.
func Decimals(currency string) int {
	if zeroDecimal[strings.ToLower(currency)] {
		return 0
	}
	return 2
}

// LoadCatalog reads a catalog from a YAML file, or returns the default catalog
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse pricing catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) check() error {
	if c.Currency == "" {
		return errors.New("pricing catalog: currency is required")
	}
	if c.BasePrice < 0 {
		return errors.New("pricing catalog: base_price must not be negative")
	}
	if len(c.Models) == 0 || len(c.Materials) == 0 || len(c.Finishes) == 0 {
		return errors.New("pricing catalog: models, materials and finishes must not be empty")
	}
	for name, amount := range c.Materials {
		if amount < 0 {
			return fmt.Errorf("pricing catalog: material %q has a negative surcharge", name)
		}
	}
	for name, amount := range c.Finishes {
		if amount < 0 {
			return fmt.Errorf("pricing catalog: finish %q has a negative surcharge", name)
		}
	}
	return nil
}

func (c *Catalog) HasModel(model string) bool {
	return slices.Contains(c.Models, model)
}

// HasColor reports whether color is offered. An empty color list accepts any value.
func (c *Catalog) HasColor(color string) bool {
	return len(c.Colors) == 0 || slices.Contains(c.Colors, color)
}
