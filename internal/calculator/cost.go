package calculator

import "github.com/shopspring/decimal"

// CalculateCost multiplies a volume by the unit price without float rounding error.
func CalculateCost(liters float64, unitPrice decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(liters).Mul(unitPrice)
}
