// Package billing derives durations and monetary cost from reservation
// timestamps. The rate unit is fixed: lot rates and reservation rate
// snapshots are amounts of currency per minute of parking. Cost is
// computed as fractional minutes multiplied by the per-minute rate, so
// a 90 second stay at rate 10 costs 15.00.
package billing

import (
	"fmt"
	"strings"
	"time"
)

// NotApplicable is rendered for duration and cost of a reservation
// that is still active; no value is computed until it closes.
const NotApplicable = "N/A"

// Duration returns the elapsed time between parking and leaving,
// clamped at zero. Zero-duration reservations are valid and cost 0.
func Duration(parkedAt, leavingAt time.Time) time.Duration {
	d := leavingAt.Sub(parkedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Cost computes the total charge for a closed reservation: elapsed
// minutes (fractional) times the per-minute rate snapshot. Computing
// the cost twice for the same timestamps always yields the same value.
func Cost(parkedAt, leavingAt time.Time, ratePerMin float64) float64 {
	return Duration(parkedAt, leavingAt).Minutes() * ratePerMin
}

// FormatDuration renders a duration as a human string built from hour,
// minute and second components. Zero components are omitted, but a
// nonzero trailing seconds component is never dropped. When every
// component is zero the string is "Less than a minute".
//
//	90s  -> "1 minute, 30 seconds"
//	1h   -> "1 hour"
//	3661s-> "1 hour, 1 minute, 1 second"
//	0s   -> "Less than a minute"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	if len(parts) == 0 {
		return "Less than a minute"
	}
	return strings.Join(parts, ", ")
}

// FormatMoney renders an amount in the portal currency.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("₹%.2f", amount)
}

// FormatRate renders a per-minute rate for display, e.g. "₹10.00 / minute".
func FormatRate(ratePerMin float64) string {
	return fmt.Sprintf("%s / minute", FormatMoney(ratePerMin))
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
