package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestNextDueWindowSpecificTimes(t *testing.T) {
	msg, due := NextDueWindow(at(9, 2), 3, "09:00,14:00,20:00")
	require.True(t, due)
	require.Equal(t, "Medication time window right now (~09:00).", msg)

	// Boundary: exactly five minutes out is still in the window.
	_, due = NextDueWindow(at(8, 55), 3, "09:00")
	require.True(t, due)
	_, due = NextDueWindow(at(9, 5), 3, "09:00")
	require.True(t, due)

	// Six minutes out is not.
	_, due = NextDueWindow(at(9, 6), 3, "09:00")
	require.False(t, due)
	_, due = NextDueWindow(at(8, 54), 3, "09:00")
	require.False(t, due)
}

func TestNextDueWindowEvenSlots(t *testing.T) {
	// 3 doses/day: slots at 00:00, 08:00 and 16:00.
	msg, due := NextDueWindow(at(8, 3), 3, "")
	require.True(t, due)
	require.Equal(t, "Medication time window right now (~08:00).", msg)

	_, due = NextDueWindow(at(12, 0), 3, "")
	require.False(t, due)

	msg, due = NextDueWindow(at(0, 4), 3, "")
	require.True(t, due)
	require.Equal(t, "Medication time window right now (~00:00).", msg)
}

func TestNextDueWindowMalformedTimesSkipped(t *testing.T) {
	msg, due := NextDueWindow(at(14, 0), 2, "bogus,25:99, 14:00 ")
	require.True(t, due)
	require.Equal(t, "Medication time window right now (~14:00).", msg)

	_, due = NextDueWindow(at(14, 0), 2, "bogus")
	require.False(t, due)
}

func TestNextDueWindowZeroTimesPerDay(t *testing.T) {
	_, due := NextDueWindow(at(9, 0), 0, "09:00")
	require.False(t, due)
}
