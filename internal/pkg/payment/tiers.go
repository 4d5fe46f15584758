package payment

// HoursForAmount maps an extension payment to the hours it buys. The callback
// only carries the amount paid, so this table must match the catalog's
// extension pricing exactly. Boundaries are inclusive: 25 buys 3 hours,
// 25.01 buys 12.
func HoursForAmount(amount float64) int {
	switch {
	case amount <= 10:
		return 1
	case amount <= 25:
		return 3
	case amount <= 45:
		return 12
	default:
		return 24
	}
}
