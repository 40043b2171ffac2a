package streak

import (
	"pacekeeper/internal/recurrence"
)

// PeriodDays is the length of a goal streak period.
const PeriodDays = 7

// Period is one 7-day window counted from the goal's start date.
type Period struct {
	Index int
	Start recurrence.Date
	End   recurrence.Date
}

// PeriodAt returns the period of a goal starting on start that contains d.
func PeriodAt(start, d recurrence.Date) Period {
	idx := d.DaysSince(start) / PeriodDays
	if d.Before(start) {
		idx = -1
	}
	s := start.AddDays(idx * PeriodDays)
	return Period{Index: idx, Start: s, End: s.AddDays(PeriodDays - 1)}
}

type WeekStatus string

const (
	WeekSuccess    WeekStatus = "success"
	WeekRevived    WeekStatus = "revived"
	WeekMissed     WeekStatus = "missed"
	WeekNeutral    WeekStatus = "neutral"
	WeekInProgress WeekStatus = "in_progress"
)

// WeekOutcome is the completion total of one period against its quota.
type WeekOutcome struct {
	Period  Period
	Count   int
	Quota   int
	Revived bool
}

func (w WeekOutcome) Status() WeekStatus {
	switch {
	case w.Quota <= 0:
		return WeekNeutral
	case w.Count >= w.Quota:
		return WeekSuccess
	case w.Revived:
		return WeekRevived
	default:
		return WeekMissed
	}
}

type WeekView struct {
	Index  int        `json:"index"`
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Count  int        `json:"count"`
	Quota  int        `json:"quota"`
	Status WeekStatus `json:"status"`
}

// GoalState is the weekly streak of one goal.
type GoalState struct {
	ConsecutiveWeeks int        `json:"consecutive_weeks"`
	Longest          int        `json:"longest"`
	CanRevive        bool       `json:"can_revive"`
	AlreadyRevived   bool       `json:"already_revived"`
	ReviveCost       int64      `json:"revive_cost"`
	RevivePeriod     string     `json:"revive_period,omitempty"`
	Weeks            []WeekView `json:"weeks"`
}

// GoalWeeks buckets completion days into the periods of a goal started on
// start. Only periods that ended before today are returned as evaluated;
// the period containing today is returned separately and never evaluated.
func GoalWeeks(start, today recurrence.Date, completionDays []recurrence.Date, quota int, revived map[recurrence.Date]bool) ([]WeekOutcome, *WeekOutcome) {
	if today.Before(start) {
		return nil, nil
	}
	cur := PeriodAt(start, today)
	weeks := make([]WeekOutcome, cur.Index)
	for i := range weeks {
		s := start.AddDays(i * PeriodDays)
		weeks[i] = WeekOutcome{
			Period:  Period{Index: i, Start: s, End: s.AddDays(PeriodDays - 1)},
			Quota:   quota,
			Revived: revived[s],
		}
	}
	current := &WeekOutcome{Period: cur, Quota: quota}

	for _, d := range completionDays {
		if d.Before(start) || d.After(today) {
			continue
		}
		p := PeriodAt(start, d)
		if p.Index == cur.Index {
			current.Count++
			continue
		}
		weeks[p.Index].Count++
	}
	return weeks, current
}

// Goal folds evaluated periods into the streak state. current may be nil.
func Goal(weeks []WeekOutcome, current *WeekOutcome, reviveCost int64) GoalState {
	st := GoalState{ReviveCost: reviveCost, Weeks: make([]WeekView, 0, len(weeks)+1)}
	for _, w := range weeks {
		st.Weeks = append(st.Weeks, weekView(w, w.Status()))
	}
	if current != nil {
		st.Weeks = append(st.Weeks, weekView(*current, WeekInProgress))
	}

	run := 0
	for _, w := range weeks {
		switch w.Status() {
		case WeekSuccess, WeekRevived:
			run++
		case WeekMissed:
			run = 0
		}
		if run > st.Longest {
			st.Longest = run
		}
	}

	for i := len(weeks) - 1; i >= 0; i-- {
		status := weeks[i].Status()
		if status == WeekNeutral {
			continue
		}
		if status == WeekMissed {
			break
		}
		st.ConsecutiveWeeks++
	}

	if last, ok := lastEvaluated(weeks); ok {
		switch last.Status() {
		case WeekMissed:
			st.CanRevive = true
			st.RevivePeriod = last.Period.Start.String()
		case WeekRevived:
			st.AlreadyRevived = true
			st.RevivePeriod = last.Period.Start.String()
		}
	}
	return st
}

func lastEvaluated(weeks []WeekOutcome) (WeekOutcome, bool) {
	for i := len(weeks) - 1; i >= 0; i-- {
		if weeks[i].Status() != WeekNeutral {
			return weeks[i], true
		}
	}
	return WeekOutcome{}, false
}

func weekView(w WeekOutcome, status WeekStatus) WeekView {
	return WeekView{
		Index:  w.Period.Index,
		Start:  w.Period.Start.String(),
		End:    w.Period.End.String(),
		Count:  w.Count,
		Quota:  w.Quota,
		Status: status,
	}
}

// CheckGoalRevive reports why the most recent missed period cannot be
// revived, or nil.
func CheckGoalRevive(st GoalState) error {
	if st.AlreadyRevived {
		return ErrAlreadyRevived
	}
	if !st.CanRevive {
		return ErrNotEligible
	}
	return nil
}
