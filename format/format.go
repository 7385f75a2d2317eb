package format

import (
	"fmt"
)

// HumanNumber renders large counts like vocabulary or parameter sizes
// as 32K, 7B and so on.
func HumanNumber(b uint64) string {
	const (
		Thousand = 1000
		Million  = Thousand * 1000
		Billion  = Million * 1000
	)

	switch {
	case b >= Billion:
		return fmt.Sprintf("%s%s", decimalPlace(float64(b)/Billion), "B")
	case b >= Million:
		return fmt.Sprintf("%s%s", decimalPlace(float64(b)/Million), "M")
	case b >= Thousand:
		return fmt.Sprintf("%s%s", decimalPlace(float64(b)/Thousand), "K")
	default:
		return fmt.Sprintf("%d", b)
	}
}

func decimalPlace(number float64) string {
	switch {
	case number >= 100:
		return fmt.Sprintf("%.0f", number)
	case number >= 10:
		return fmt.Sprintf("%.1f", number)
	default:
		return fmt.Sprintf("%.2f", number)
	}
}
