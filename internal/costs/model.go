// Package costs converts gross trade value into net cost and proceeds.
// All functions are pure and safe to call concurrently.
package costs

import "github.com/This-HW/hantu-quant-sub002/internal/engerr"

// Default rates for the KRX cash equity market, applied to gross value.
const (
	DefaultCommissionRate = 0.00015 // 0.015% each side
	DefaultTaxRate        = 0.0023  // 0.23% transaction tax, sells only
	DefaultSlippageRate   = 0.0005  // 0.05% each side
)

// Config holds the cost rates for one simulation run.
type Config struct {
	CommissionRate float64 `json:"commission_rate" mapstructure:"commission_rate"`
	TaxRate        float64 `json:"tax_rate" mapstructure:"tax_rate"`
	SlippageRate   float64 `json:"slippage_rate" mapstructure:"slippage_rate"`
}

// DefaultConfig returns the default KRX cost rates.
func DefaultConfig() Config {
	return Config{
		CommissionRate: DefaultCommissionRate,
		TaxRate:        DefaultTaxRate,
		SlippageRate:   DefaultSlippageRate,
	}
}

// Model computes cost-adjusted trade values from configured rates.
type Model struct {
	cfg Config
}

// NewModel creates a cost model from the given rates.
func NewModel(cfg Config) *Model {
	return &Model{cfg: cfg}
}

// BuyCost returns the total cash required to buy quantity shares at price:
// gross + commission + slippage.
func (m *Model) BuyCost(price float64, quantity int) (float64, error) {
	if err := validate(price, quantity); err != nil {
		return 0, err
	}
	gross := price * float64(quantity)
	return gross + gross*m.cfg.CommissionRate + gross*m.cfg.SlippageRate, nil
}

// SellProceeds returns the net cash received from selling quantity shares
// at price: gross - commission - transaction tax - slippage.
func (m *Model) SellProceeds(price float64, quantity int) (float64, error) {
	if err := validate(price, quantity); err != nil {
		return 0, err
	}
	gross := price * float64(quantity)
	return gross - gross*m.cfg.CommissionRate - gross*m.cfg.TaxRate - gross*m.cfg.SlippageRate, nil
}

// RoundTripCost returns the total cost of buying and immediately selling
// quantity shares at price. Always positive for positive rates.
func (m *Model) RoundTripCost(price float64, quantity int) (float64, error) {
	buy, err := m.BuyCost(price, quantity)
	if err != nil {
		return 0, err
	}
	sell, err := m.SellProceeds(price, quantity)
	if err != nil {
		return 0, err
	}
	return buy - sell, nil
}

func validate(price float64, quantity int) error {
	if price <= 0 || quantity <= 0 {
		return &engerr.InvalidQuantityError{Price: price, Quantity: quantity}
	}
	return nil
}
