package booking

import (
	"rentals/src/models"
	"time"

	"github.com/shopspring/decimal"
)

// RefundPercentage is the share of the total returned on cancellation.
func RefundPercentage(daysUntilStart int) int {
	switch {
	case daysUntilStart > 7:
		return 100
	case daysUntilStart > 3:
		return 50
	default:
		return 0
	}
}

// DaysUntilStart counts whole calendar days from now until start, in UTC.
func DaysUntilStart(start, now time.Time) int {
	return int(models.DateOnly(start).Sub(models.DateOnly(now)).Hours() / 24)
}

func RefundAmount(total decimal.Decimal, percentage int) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(100)).Round(2)
}
