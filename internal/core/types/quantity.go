// Package types provides quantity helpers shared by the planning pipeline
// and the storage layer.
package types

import (
	"github.com/shopspring/decimal"
)

// Qty is a planning quantity (kg for finished items, the BOM unit for
// materials). decimal.Decimal keeps explosion sums free of binary
// floating-point drift.
type Qty = decimal.Decimal

// QtyPlaces is the number of fractional digits kept on persisted quantities.
// Matches NUMERIC(18,2) columns in the pcp schema.
const QtyPlaces int32 = 2

// RoundQty rounds to QtyPlaces, half away from zero.
func RoundQty(q Qty) Qty {
	return q.Round(QtyPlaces)
}

// ClampZero returns q, or zero when q is negative.
func ClampZero(q Qty) Qty {
	if q.IsNegative() {
		return decimal.Zero
	}
	return q
}

// NewQtyFromString parses a quantity. Preferred for API and file input.
func NewQtyFromString(s string) (Qty, error) {
	return decimal.NewFromString(s)
}

// MustQty parses s and panics on error. Use only for constants and tests.
func MustQty(s string) Qty {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
