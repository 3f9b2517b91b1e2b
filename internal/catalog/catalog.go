package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ProductID   = "premium-trousers-001"
	ProductName = "Premium Tailored Trousers"
	Currency    = "INR"

	// DefaultFabric is preselected when no product selection was made.
	DefaultFabric = "Premium Wool"
)

var (
	ErrUnknownFabric   = errors.New("unknown fabric")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

type Fabric struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Features    []string        `json:"features"`
}

// Catalog is the fixed fabric list. Prices are whole currency units.
type Catalog struct {
	fabrics []Fabric
}

func Default() *Catalog {
	return &Catalog{
		fabrics: []Fabric{
			{
				Name:        "Premium Wool",
				Price:       decimal.NewFromInt(450),
				Description: "Luxurious 100% wool from renowned Scottish mills",
				Features:    []string{"Wrinkle resistant", "Year-round comfort", "Natural stretch"},
			},
			{
				Name:        "Egyptian Cotton",
				Price:       decimal.NewFromInt(380),
				Description: "Finest Egyptian cotton with exceptional breathability",
				Features:    []string{"Breathable", "Soft touch", "Easy care"},
			},
			{
				Name:        "Italian Linen",
				Price:       decimal.NewFromInt(420),
				Description: "Premium Italian linen perfect for warm weather",
				Features:    []string{"Lightweight", "Cooling", "Relaxed drape"},
			},
			{
				Name:        "Silk Blend",
				Price:       decimal.NewFromInt(580),
				Description: "Luxurious silk blend with subtle sheen",
				Features:    []string{"Subtle sheen", "Fluid drape", "Evening wear"},
			},
		},
	}
}

func (c *Catalog) Fabrics() []Fabric {
	out := make([]Fabric, len(c.fabrics))
	copy(out, c.fabrics)
	return out
}

// Lookup matches a fabric by name, ignoring case and surrounding spaces.
func (c *Catalog) Lookup(name string) (Fabric, bool) {
	name = strings.TrimSpace(name)
	for _, f := range c.fabrics {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Fabric{}, false
}

func (c *Catalog) UnitPrice(fabric string) (decimal.Decimal, error) {
	f, ok := c.Lookup(fabric)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownFabric, fabric)
	}
	return f.Price, nil
}

// TotalPrice is unit_price(fabric) * quantity.
func (c *Catalog) TotalPrice(fabric string, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, ErrInvalidQuantity
	}
	unit, err := c.UnitPrice(fabric)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.Mul(decimal.NewFromInt(int64(quantity))), nil
}

// ToMinorUnits converts a whole-unit amount to paise.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts paise back to whole units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders an amount the way prices are shown to customers.
func Format(amount decimal.Decimal) string {
	if amount.Equal(amount.Truncate(0)) {
		return "₹" + amount.StringFixed(0)
	}
	return "₹" + amount.StringFixed(2)
}
