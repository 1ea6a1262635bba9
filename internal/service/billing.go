package service

import (
	"math"
	"time"

	"parkhub/internal/repository"
)

// BillingOptions tune the pricing rules. The defaults encode a day-rate
// discount: once a stay crosses 24 hours, each whole day is billed at 18
// hourly units instead of 24, and very short stays are floored to a quarter
// hour so near-zero reservations are never free.
type BillingOptions struct {
	DailyRateMultiplier      float64
	MinimumBilledHours       float64
	HourBoundaryForDailyRate float64
}

func DefaultBillingOptions() BillingOptions {
	return BillingOptions{
		DailyRateMultiplier:      18,
		MinimumBilledHours:       0.25,
		HourBoundaryForDailyRate: 24,
	}
}

// BillingCalculator prices a stay. It is a pure function of its inputs and
// holds no shared state.
type BillingCalculator struct {
	opts BillingOptions
}

// NewBillingCalculator builds a calculator; zero-valued option fields fall
// back to the defaults.
func NewBillingCalculator(opts BillingOptions) *BillingCalculator {
	def := DefaultBillingOptions()
	if opts.DailyRateMultiplier == 0 {
		opts.DailyRateMultiplier = def.DailyRateMultiplier
	}
	if opts.MinimumBilledHours == 0 {
		opts.MinimumBilledHours = def.MinimumBilledHours
	}
	if opts.HourBoundaryForDailyRate == 0 {
		opts.HourBoundaryForDailyRate = def.HourBoundaryForDailyRate
	}
	return &BillingCalculator{opts: opts}
}

// Price computes the cost of a stay in whole currency units. Rounding is
// half-away-from-zero, applied once to the final sum and never to
// intermediate sub-totals. A negative duration yields ErrInvalidDuration.
func (c *BillingCalculator) Price(start, end time.Time, hourlyPrice float64) (int64, error) {
	if end.Before(start) {
		return 0, repository.ErrInvalidDuration
	}
	hours := end.Sub(start).Hours()

	var total float64
	if hours > c.opts.HourBoundaryForDailyRate {
		days := math.Floor(hours / 24)
		remainder := hours - days*24
		total = days*c.opts.DailyRateMultiplier*hourlyPrice + remainder*hourlyPrice
	} else {
		total = math.Max(hours, c.opts.MinimumBilledHours) * hourlyPrice
	}
	return int64(math.Round(total)), nil
}
