package billing

import (
	"testing"
	"time"
)

func TestCost(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		elapsed time.Duration
		rate    float64
		want    float64
	}{
		{"ninety seconds at ten", 90 * time.Second, 10, 15},
		{"one hour at two", time.Hour, 2, 120},
		{"zero duration", 0, 10, 0},
		{"thirty seconds at one", 30 * time.Second, 1, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cost(base, base.Add(tc.elapsed), tc.rate)
			if got != tc.want {
				t.Fatalf("Cost = %v, want %v", got, tc.want)
			}
			// Same timestamps must always price the same.
			if again := Cost(base, base.Add(tc.elapsed), tc.rate); again != got {
				t.Fatalf("Cost not stable: %v then %v", got, again)
			}
		})
	}
}

func TestCostClampsNegativeDuration(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if got := Cost(base, base.Add(-time.Minute), 10); got != 0 {
		t.Fatalf("Cost with leaving before parking = %v, want 0", got)
	}
	if got := Duration(base, base.Add(-time.Minute)); got != 0 {
		t.Fatalf("Duration with leaving before parking = %v, want 0", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "Less than a minute"},
		{30 * time.Second, "30 seconds"},
		{time.Second, "1 second"},
		{time.Minute, "1 minute"},
		{90 * time.Second, "1 minute, 30 seconds"},
		{time.Hour, "1 hour"},
		{3661 * time.Second, "1 hour, 1 minute, 1 second"},
		{2*time.Hour + 5*time.Minute, "2 hours, 5 minutes"},
		{time.Hour + 30*time.Second, "1 hour, 30 seconds"},
		{-time.Minute, "Less than a minute"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestFormatMoneyAndRate(t *testing.T) {
	if got := FormatMoney(15); got != "₹15.00" {
		t.Fatalf("FormatMoney = %q", got)
	}
	if got := FormatMoney(0.5); got != "₹0.50" {
		t.Fatalf("FormatMoney = %q", got)
	}
	if got := FormatRate(10); got != "₹10.00 / minute" {
		t.Fatalf("FormatRate = %q", got)
	}
}
