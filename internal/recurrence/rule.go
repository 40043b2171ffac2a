package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the stored recurrence kind.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
	FrequencyOnce   Frequency = "once"
)

// WeekdaySet is a bitmask over time.Weekday (bit 0 = Sunday).
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			s |= 1 << uint(d)
		}
	}
	return s
}

// WeekdaySetFromInts ignores indices outside 0..6.
func WeekdaySetFromInts(days []int) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d >= 0 && d <= 6 {
			s |= 1 << uint(d)
		}
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s == 0
}

func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) String() string {
	names := make([]string, 0, 7)
	for _, d := range s.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// Rule is one recurrence kind. Implementations are Daily, Weekly, Custom,
// Once and Never.
type Rule interface {
	Frequency() Frequency
	matches(d Date) bool
}

type Daily struct{}

func (Daily) Frequency() Frequency { return FrequencyDaily }
func (Daily) matches(Date) bool    { return true }

type Weekly struct {
	Days WeekdaySet
}

func (Weekly) Frequency() Frequency   { return FrequencyWeekly }
func (r Weekly) matches(d Date) bool { return r.Days.Has(d.Weekday()) }

// Custom behaves like Weekly; it is kept apart because it is authored as an
// explicit weekday pick rather than a weekly template.
type Custom struct {
	Days WeekdaySet
}

func (Custom) Frequency() Frequency   { return FrequencyCustom }
func (r Custom) matches(d Date) bool { return r.Days.Has(d.Weekday()) }

// Once is due on a single date at a single time.
type Once struct {
	Date Date
	At   int
}

func (Once) Frequency() Frequency   { return FrequencyOnce }
func (r Once) matches(d Date) bool { return d == r.Date }

// Never is what a malformed rule decodes into.
type Never struct {
	Reason string
}

func (r Never) Frequency() Frequency { return Frequency("never") }
func (Never) matches(Date) bool      { return false }

func (r Never) String() string {
	return fmt.Sprintf("never (%s)", r.Reason)
}
