package recurrence

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MinutesPerDay bounds every minute-of-day value to [0, MinutesPerDay).
const MinutesPerDay = 24 * 60

// LastMinute is 23:59.
const LastMinute = MinutesPerDay - 1

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)(?::[0-5]\d)?$`)

// ParseClock reads an HH:MM (optionally HH:MM:SS) value into minutes since midnight.
func ParseClock(s string) (int, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return hour*60 + minute, true
}

// FormatClock renders minutes since midnight as HH:MM.
func FormatClock(minute int) string {
	if minute < 0 {
		minute = 0
	}
	if minute > LastMinute {
		minute = LastMinute
	}
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// MinuteOfDay returns minutes since local midnight of t in loc.
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// Frame is the (now, zone) pair captured once per request. Everything
// computed for that request reads Today and Minute from the same Frame.
type Frame struct {
	Now    time.Time
	Loc    *time.Location
	Today  Date
	Minute int
}

func NewFrame(now time.Time, loc *time.Location) Frame {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return Frame{
		Now:    local,
		Loc:    loc,
		Today:  DateOf(local),
		Minute: local.Hour()*60 + local.Minute(),
	}
}

func (f Frame) Yesterday() Date {
	return f.Today.AddDays(-1)
}

// LocalDate returns the calendar day of t in the frame's zone.
func (f Frame) LocalDate(t time.Time) Date {
	return DateOf(t.In(f.Loc))
}

// LocalMinute returns t's minute of day in the frame's zone.
func (f Frame) LocalMinute(t time.Time) int {
	return MinuteOfDay(t, f.Loc)
}
