package utils

import (
	"testing"
	"time"
)

func TestWeekdayIndex(t *testing.T) {
	cases := []struct {
		date time.Time
		want int
	}{
		{time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), 0}, // Monday
		{time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC), 4}, // Friday
		{time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC), 5}, // Saturday
		{time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC), 6}, // Sunday
	}
	for _, tc := range cases {
		if got := WeekdayIndex(tc.date); got != tc.want {
			t.Errorf("WeekdayIndex(%s) = %d, want %d", tc.date.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestDateOnly(t *testing.T) {
	ts := time.Date(2026, time.March, 6, 18, 45, 12, 999, time.FixedZone("X", 3600))
	got := DateOnly(ts)
	want := time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
}

func TestRoundN(t *testing.T) {
	if got := RoundN(50.04999, 1); got != 50.0 {
		t.Errorf("RoundN(50.04999, 1) = %v", got)
	}
	if got := RoundN(0.12344, 4); got != 0.1234 {
		t.Errorf("RoundN(0.12344, 4) = %v", got)
	}
	if got := RoundN(4.0/6.0*100, 1); got != 66.7 {
		t.Errorf("RoundN(66.66.., 1) = %v", got)
	}
	if got := Round2(1234.567); got != 1234.57 {
		t.Errorf("Round2(1234.567) = %v", got)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"owner@example.com", "a.b+c@shop.co.uk"}
	invalid := []string{"", "not-an-email", "missing@tld", "@example.com"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true", e)
		}
	}
}
