package streak

import (
	"pacekeeper/internal/recurrence"
)

// DayStatus classifies one day of the life streak.
type DayStatus string

const (
	DayCounted DayStatus = "counted"
	DayRevived DayStatus = "revived"
	DayMissed  DayStatus = "missed"
	DayNeutral DayStatus = "neutral"
	DayPending DayStatus = "pending"
)

// DayOutcome aggregates one local day: how many tasks were due and how many
// of those were completed.
type DayOutcome struct {
	Date    recurrence.Date
	Due     int
	Done    int
	Revived bool
}

// Status classifies the day relative to today. A day with nothing due is
// neutral; an unfinished today is pending rather than missed.
func (o DayOutcome) Status(today recurrence.Date) DayStatus {
	switch {
	case o.Due == 0:
		return DayNeutral
	case o.Done >= o.Due:
		return DayCounted
	case o.Revived:
		return DayRevived
	case o.Date == today:
		return DayPending
	default:
		return DayMissed
	}
}

type DayView struct {
	Date   string    `json:"date"`
	Status DayStatus `json:"status"`
	Due    int       `json:"due"`
	Done   int       `json:"done"`
}

// LifeState is the account-wide daily streak.
type LifeState struct {
	Current          int       `json:"current"`
	Longest          int       `json:"longest"`
	CanRevive        bool      `json:"can_revive"`
	AlreadyRevived   bool      `json:"already_revived"`
	ReviveCost       int64     `json:"revive_cost"`
	ReviveDate       string    `json:"revive_date,omitempty"`
	CurrentIfRevived int       `json:"current_if_revived"`
	Days             []DayView `json:"days,omitempty"`
}

// Life folds a chronological day history (ending at today) into the streak
// state. Counted and revived days extend the run, a missed day resets it,
// neutral and pending days leave it unchanged.
func Life(today recurrence.Date, history []DayOutcome, reviveCost int64) LifeState {
	st := LifeState{ReviveCost: reviveCost, Days: make([]DayView, 0, len(history))}

	yesterday := today.AddDays(-1)
	yesterdayStatus := DayNeutral
	for _, o := range history {
		status := o.Status(today)
		if o.Date == yesterday {
			yesterdayStatus = status
		}
		st.Days = append(st.Days, DayView{Date: o.Date.String(), Status: status, Due: o.Due, Done: o.Done})
	}

	st.Current, st.Longest = fold(today, history, recurrence.Date{})

	switch yesterdayStatus {
	case DayMissed:
		st.CanRevive = true
		st.ReviveDate = yesterday.String()
		st.CurrentIfRevived, _ = fold(today, history, yesterday)
	case DayRevived:
		st.AlreadyRevived = true
		st.CurrentIfRevived = st.Current
	default:
		st.CurrentIfRevived = st.Current
	}
	return st
}

// fold runs the streak over history, treating forgive (if set) as revived.
func fold(today recurrence.Date, history []DayOutcome, forgive recurrence.Date) (current, longest int) {
	run := 0
	for _, o := range history {
		if !forgive.IsZero() && o.Date == forgive {
			o.Revived = true
		}
		switch o.Status(today) {
		case DayCounted, DayRevived:
			run++
		case DayMissed:
			run = 0
		}
		if run > longest {
			longest = run
		}
	}
	return run, longest
}

// CheckLifeRevive reports why yesterday cannot be revived, or nil.
func CheckLifeRevive(st LifeState) error {
	if st.AlreadyRevived {
		return ErrAlreadyRevived
	}
	if !st.CanRevive {
		return ErrNotEligible
	}
	return nil
}
