package utils

import (
	"testing"
	"time"
)

func TestDayKeyUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 22:30 local on the 3rd is 03:30 UTC on the 4th
	at := time.Date(2025, time.March, 3, 22, 30, 0, 0, loc)

	if got := DayKey(at); got != "2025-03-04" {
		t.Fatalf("expected 2025-03-04, got %s", got)
	}
}

func TestParseUnixSeconds(t *testing.T) {
	got, ok := ParseUnixSeconds("1639508050")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != 1639508050 {
		t.Fatalf("unexpected time %v", got)
	}

	if _, ok := ParseUnixSeconds(""); ok {
		t.Fatalf("expected empty input to fail")
	}
	if _, ok := ParseUnixSeconds("abc"); ok {
		t.Fatalf("expected malformed input to fail")
	}
}

func TestGranularitySeconds(t *testing.T) {
	if GranularitySeconds("FIVE_MINUTE") != 300 {
		t.Fatalf("FIVE_MINUTE should be 300s")
	}
	if GranularitySeconds("bogus") != 3600 {
		t.Fatalf("unknown granularity should fall back to one hour")
	}
}
