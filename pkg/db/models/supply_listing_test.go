package models

import (
	"testing"
	"time"
)

func TestSupplyListingIsExpiredAt(t *testing.T) {
	now := time.Date(2026, 4, 10, 15, 30, 0, 0, time.UTC)
	day := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	cases := []struct {
		name  string
		until *time.Time
		want  bool
	}{
		{"no expiry", nil, false},
		{"valid through today", day(2026, 4, 10), false},
		{"valid until tomorrow", day(2026, 4, 11), false},
		{"expired yesterday", day(2026, 4, 9), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			listing := SupplyListing{ValidUntil: tc.until}
			if got := listing.IsExpiredAt(now); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
