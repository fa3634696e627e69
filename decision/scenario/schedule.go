package scenario

import (
	"strconv"
	"strings"
)

// dailyOffHours computes how many hours per day a resource is stopped for a
// stop/start pair in HH:MM form. Schedules wrapping midnight are handled;
// malformed times fall back to the business-hours preset.
func dailyOffHours(stopAt, startAt string) float64 {
	stop, okStop := parseClock(stopAt)
	start, okStart := parseClock(startAt)
	if !okStop || !okStart {
		stop, _ = parseClock(DefaultStopAt)
		start, _ = parseClock(DefaultStartAt)
	}
	off := start - stop
	if off <= 0 {
		off += 24
	}
	return off
}

// parseClock converts "HH:MM" into fractional hours since midnight.
func parseClock(s string) (float64, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return float64(h) + float64(m)/60, true
}
