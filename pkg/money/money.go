package money

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/ruralmart/ruralmart-backend/pkg/errors"
)

// Amounts are exact decimals rounded to two fractional digits. Arithmetic
// happens on decimal.Decimal so repeated recomputation cannot drift.

const places = 2

// Zero returns the canonical zero amount.
func Zero() decimal.Decimal {
	return decimal.Zero.Round(places)
}

// Round normalizes an amount to two fractional digits (half away from zero).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(places)
}

// LineTotal computes quantity * unitPrice rounded to two fractional digits.
// Quantity and unit price must both be strictly positive.
func LineTotal(quantity int, unitPrice decimal.Decimal) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if !unitPrice.IsPositive() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be greater than zero")
	}
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(places), nil
}

// Sum folds amounts into a single rounded total.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total.Round(places)
}

// Parse converts a major-unit string ("1500.00") into a rounded amount.
// Negative amounts are rejected; prices and totals are never negative here.
func Parse(value string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount")
	}
	if parsed.IsNegative() {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	return parsed.Round(places), nil
}

// Subunits converts a major-unit amount into integer minor units (e.g. cents,
// kobo) the way payment gateways expect it.
func Subunits(amount decimal.Decimal) int64 {
	return amount.Round(places).Shift(places).IntPart()
}

// FromSubunits converts integer minor units back to a major-unit amount.
func FromSubunits(subunits int64) decimal.Decimal {
	return decimal.NewFromInt(subunits).Shift(-places).Round(places)
}
