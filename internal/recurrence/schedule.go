package recurrence

import (
	"strings"
	"time"
)

// Record is the loosely-typed schedule shape as it comes out of storage.
type Record struct {
	Frequency string
	ByWeekday []int
	AtTime    string
	StartDate string
	EndDate   string
	Timezone  string
}

// Window is an inclusive, date-only validity range. Zero bounds are open.
type Window struct {
	Start Date
	End   Date
}

func (w Window) Contains(d Date) bool {
	if !w.Start.IsZero() && d.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && d.After(w.End) {
		return false
	}
	return true
}

// Schedule is a decoded recurrence rule. HasAt is false when the record had
// no usable at_time.
type Schedule struct {
	Rule   Rule
	At     int
	HasAt  bool
	Window Window
	Loc    *time.Location
}

// FromRecord decodes a stored schedule. It never returns an error: malformed
// input decodes into a schedule that is never due, and a malformed at_time is
// dropped so deadline resolution falls through to the next tier.
func FromRecord(rec Record, fallback *time.Location) Schedule {
	s := Schedule{Loc: LoadLocation(rec.Timezone, fallback)}

	if at, ok := ParseClock(strings.TrimSpace(rec.AtTime)); ok {
		s.At, s.HasAt = at, true
	}

	var err error
	if v := strings.TrimSpace(rec.StartDate); v != "" {
		if s.Window.Start, err = ParseDate(v); err != nil {
			s.Rule = Never{Reason: "bad start_date"}
			return s
		}
	}
	if v := strings.TrimSpace(rec.EndDate); v != "" {
		if s.Window.End, err = ParseDate(v); err != nil {
			s.Rule = Never{Reason: "bad end_date"}
			return s
		}
	}

	days := WeekdaySetFromInts(rec.ByWeekday)
	switch Frequency(strings.ToLower(strings.TrimSpace(rec.Frequency))) {
	case FrequencyDaily:
		s.Rule = Daily{}
	case FrequencyWeekly:
		if days.Empty() {
			s.Rule = Never{Reason: "weekly without weekdays"}
			break
		}
		s.Rule = Weekly{Days: days}
	case FrequencyCustom:
		if days.Empty() {
			s.Rule = Never{Reason: "custom without weekdays"}
			break
		}
		s.Rule = Custom{Days: days}
	case FrequencyOnce:
		if s.Window.Start.IsZero() || !s.HasAt {
			s.Rule = Never{Reason: "once requires start_date and at_time"}
			break
		}
		s.Rule = Once{Date: s.Window.Start, At: s.At}
	default:
		s.Rule = Never{Reason: "unknown frequency " + rec.Frequency}
	}
	return s
}

// IsDueOn reports whether the schedule is active on a local calendar day.
func IsDueOn(s Schedule, d Date) bool {
	if s.Rule == nil {
		return false
	}
	if !s.Window.Contains(d) {
		return false
	}
	return s.Rule.matches(d)
}

// DueAt evaluates IsDueOn on the calendar day instant t falls on in the
// schedule's own zone.
func DueAt(s Schedule, t time.Time) bool {
	loc := s.Loc
	if loc == nil {
		loc = time.UTC
	}
	return IsDueOn(s, DateOf(t.In(loc)))
}

// OccursOn reports whether the schedule fires during calendar day d of loc.
// With an at_time the schedule fires when that time of its own zone falls
// inside d, and at is the matching minute of d in loc. Without one, the
// weekday is read in the schedule's zone as d closes.
func OccursOn(s Schedule, d Date, loc *time.Location) (at int, ok bool) {
	if loc == nil {
		loc = time.UTC
	}
	sloc := s.Loc
	if sloc == nil || sloc.String() == loc.String() {
		return s.At, IsDueOn(s, d)
	}
	if !s.HasAt {
		return 0, DueAt(s, d.AddDays(1).Start(loc).Add(-time.Minute))
	}

	from, to := d.Start(loc), d.AddDays(1).Start(loc)
	last := DateOf(to.In(sloc))
	for sd := DateOf(from.In(sloc)).AddDays(-1); !sd.After(last); sd = sd.AddDays(1) {
		if !IsDueOn(s, sd) {
			continue
		}
		fire := time.Date(sd.Year, sd.Month, sd.Day, s.At/60, s.At%60, 0, 0, sloc)
		if fire.Before(from) || !fire.Before(to) {
			continue
		}
		return MinuteOfDay(fire, loc), true
	}
	return 0, false
}
