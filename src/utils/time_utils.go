package utils

import (
	"strconv"
	"strings"
	"time"
)

// DayKeyLayout is the calendar-day key used by the daily trade counter.
const DayKeyLayout = "2006-01-02"

// DayKey returns the UTC calendar day of t. Daily counters roll over at 00:00 UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// ParseUnixSeconds parses an epoch-seconds string such as "1639508050".
// Empty or malformed input yields the zero time and false.
func ParseUnixSeconds(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0).UTC(), true
}

// GranularitySeconds maps exchange candle granularities to their length.
// Unknown values fall back to one hour.
func GranularitySeconds(granularity string) int64 {
	switch strings.ToUpper(granularity) {
	case "ONE_MINUTE":
		return 60
	case "FIVE_MINUTE":
		return 300
	case "FIFTEEN_MINUTE":
		return 900
	case "THIRTY_MINUTE":
		return 1800
	case "ONE_HOUR":
		return 3600
	case "TWO_HOUR":
		return 7200
	case "SIX_HOUR":
		return 21600
	case "ONE_DAY":
		return 86400
	default:
		return 3600
	}
}
