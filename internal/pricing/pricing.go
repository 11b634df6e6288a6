package pricing

import (
	"errors"
	"fmt"

	"casecraft_echo/internal/models"
)

var (
	ErrUnknownModel    = errors.New("unknown phone model")
	ErrUnknownMaterial = errors.New("unknown material")
	ErrUnknownFinish   = errors.New("unknown finish")
	ErrUnknownColor    = errors.New("unknown color")
)

// Line is one component of a price quote.
type Line struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Quote is the itemised price of a configuration.
type Quote struct {
	Currency string `json:"currency"`
	Lines    []Line `json:"lines"`
	Total    int64  `json:"total"`
}

// Calculator prices configurations against a catalog. It performs no I/O.
type Calculator struct {
	catalog *Catalog
}

func NewCalculator(catalog *Catalog) *Calculator {
	return &Calculator{catalog: catalog}
}

func (c *Calculator) Catalog() *Catalog {
	return c.catalog
}

// Price returns the total for cfg. Material and finish values missing from
// the catalog are reported as errors rather than priced at zero.
func (c *Calculator) Price(cfg models.Configuration) (int64, error) {
	q, err := c.Quote(cfg)
	if err != nil {
		return 0, err
	}
	return q.Total, nil
}

func (c *Calculator) Quote(cfg models.Configuration) (Quote, error) {
	if !c.catalog.HasModel(cfg.Model) {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownModel, cfg.Model)
	}
	material, ok := c.catalog.Materials[cfg.Material]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownMaterial, cfg.Material)
	}
	finish, ok := c.catalog.Finishes[cfg.Finish]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownFinish, cfg.Finish)
	}

	q := Quote{
		Currency: c.catalog.Currency,
		Lines: []Line{
			{Label: "base", Amount: c.catalog.BasePrice},
			{Label: "material:" + cfg.Material, Amount: material},
			{Label: "finish:" + cfg.Finish, Amount: finish},
		},
	}
	for _, l := range q.Lines {
		q.Total += l.Amount
	}
	return q, nil
}

// Validate checks every option of cfg, including color, against the catalog.
func (c *Calculator) Validate(cfg models.Configuration) error {
	if _, err := c.Quote(cfg); err != nil {
		return err
	}
	if !c.catalog.HasColor(cfg.Color) {
		return fmt.Errorf("%w: %q", ErrUnknownColor, cfg.Color)
	}
	return nil
}
