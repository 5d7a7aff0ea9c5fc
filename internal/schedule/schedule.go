// Package schedule computes medication dose windows. A dose is "due" when
// the clock is within five minutes of a scheduled time, either from an
// explicit HH:MM list or from evenly divided day slots.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const windowMinutes = 5

type clockTime struct {
	hour   int
	minute int
}

// parseSpecificTimes parses a comma separated list of HH:MM entries.
// Malformed entries are skipped.
func parseSpecificTimes(csv string) []clockTime {
	var out []clockTime
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		hh, mm, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		h, err := strconv.Atoi(strings.TrimSpace(hh))
		if err != nil || h < 0 || h > 23 {
			continue
		}
		m, err := strconv.Atoi(strings.TrimSpace(mm))
		if err != nil || m < 0 || m > 59 {
			continue
		}
		out = append(out, clockTime{hour: h, minute: m})
	}
	return out
}

// NextDueWindow reports whether now falls inside a dose window. It returns
// a reminder line and true when it does. specificTimes may be empty, in
// which case the day is divided into timesPerDay equal slots from midnight.
func NextDueWindow(now time.Time, timesPerDay int, specificTimes string) (string, bool) {
	if timesPerDay <= 0 {
		return "", false
	}

	if specificTimes != "" {
		for _, tt := range parseSpecificTimes(specificTimes) {
			dose := time.Date(now.Year(), now.Month(), now.Day(), tt.hour, tt.minute, 0, 0, now.Location())
			delta := now.Sub(dose)
			if delta < 0 {
				delta = -delta
			}
			if delta <= windowMinutes*time.Minute {
				return fmt.Sprintf("Medication time window right now (~%02d:%02d).", tt.hour, tt.minute), true
			}
		}
		return "", false
	}

	minutesPer := 24 * 60 / timesPerDay
	nowMin := now.Hour()*60 + now.Minute()
	for i := 0; i < timesPerDay; i++ {
		slot := minutesPer * i
		delta := slot - nowMin
		if delta < 0 {
			delta = -delta
		}
		if delta <= windowMinutes {
			return fmt.Sprintf("Medication time window right now (~%02d:%02d).", slot/60, slot%60), true
		}
	}
	return "", false
}
