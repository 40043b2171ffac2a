package model

import (
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/shadow"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Record exposes the stored schedule to the recurrence resolver.
func (s Schedule) Record() recurrence.Record {
	return recurrence.Record{
		Frequency: s.Frequency,
		ByWeekday: s.ByWeekday,
		AtTime:    deref(s.AtTime),
		StartDate: deref(s.StartDate),
		EndDate:   deref(s.EndDate),
		Timezone:  deref(s.Timezone),
	}
}

// ResolverTask exposes the ordering and anchor fields of a task.
func (t Task) ResolverTask() recurrence.Task {
	return recurrence.Task{
		ID:        t.ID,
		Title:     t.Title,
		Anchor:    recurrence.ParseAnchor(t.TimeAnchor),
		OrderHint: t.OrderHint,
		CreatedAt: t.CreatedAt,
	}
}

// EP returns the reward for completing the task; unset values award 1.
func (t Task) EP() int {
	if t.EPValue <= 0 {
		return 1
	}
	return t.EPValue
}

func (o EventOverride) ResolverOverride() recurrence.Override {
	return recurrence.Override{TaskID: o.TaskID, DueAt: o.DueAt}
}

func (c Completion) ShadowCompletion() shadow.Completion {
	return shadow.Completion{TaskID: c.TaskID, CompletedAt: c.CompletedAt}
}
