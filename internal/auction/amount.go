package auction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var dropsPerXRP = decimal.NewFromInt(DropsPerXRP)

// XRPToDrops converts a display-unit XRP amount ("12.5") to an integer
// drops string ("12500000"). Rejects non-positive and non-numeric input.
func XRPToDrops(xrp string) (string, error) {
	d, err := decimal.NewFromString(xrp)
	if err != nil {
		return "", fmt.Errorf("invalid XRP amount %q: %w", xrp, err)
	}
	if d.Sign() <= 0 {
		return "", fmt.Errorf("invalid XRP amount %q: must be positive", xrp)
	}
	drops := d.Mul(dropsPerXRP)
	if !drops.Equal(drops.Truncate(0)) {
		return "", fmt.Errorf("invalid XRP amount %q: finer than one drop", xrp)
	}
	return drops.Truncate(0).String(), nil
}

// DropsToXRP converts an integer drops string to a display-unit XRP string.
func DropsToXRP(drops string) (string, error) {
	d, err := decimal.NewFromString(drops)
	if err != nil {
		return "", fmt.Errorf("invalid drops amount %q: %w", drops, err)
	}
	return d.Div(dropsPerXRP).String(), nil
}
