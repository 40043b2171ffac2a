package recurrence

import (
	"sort"
	"time"
)

// Task is the part of a stored task the resolver needs.
type Task struct {
	ID        uint
	Title     string
	Anchor    Anchor
	OrderHint int
	CreatedAt time.Time
}

// Override is a higher-priority deadline for one task, e.g. a calendar appointment.
type Override struct {
	TaskID uint
	DueAt  time.Time
}

// Item bundles a task with every schedule rule and override attached to it.
type Item struct {
	Task      Task
	Schedules []Schedule
	Overrides []Override
}

// Source records which precedence tier produced a deadline.
type Source string

const (
	SourceOverride Source = "override"
	SourceSchedule Source = "schedule"
	SourceAnchor   Source = "anchor"
	SourceFallback Source = "fallback"
)

// Planned is a due task with its resolved deadline minute.
type Planned struct {
	Task     Task
	Deadline int
	Source   Source
}

// Resolver decides due-ness and deadlines for a given day.
type Resolver struct {
	opts Options
}

func NewResolver(opts Options) *Resolver {
	def := DefaultOptions()
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.AnchorMinutes == nil {
		opts.AnchorMinutes = def.AnchorMinutes
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = def.SlotMinutes
	}
	if opts.FallbackStartMinute < 0 || opts.FallbackStartMinute > LastMinute {
		opts.FallbackStartMinute = def.FallbackStartMinute
	}
	return &Resolver{opts: opts}
}

func (r *Resolver) Options() Options {
	return r.opts
}

// Location resolves a zone name against the configured default.
func (r *Resolver) Location(name string) *time.Location {
	return LoadLocation(name, r.opts.Location)
}

// IsDue reports whether any of the item's schedules fires during day d of
// loc. A task without a schedule is never due.
func (r *Resolver) IsDue(item Item, d Date, loc *time.Location) bool {
	if loc == nil {
		loc = r.opts.Location
	}
	for _, s := range item.Schedules {
		if _, ok := OccursOn(s, d, loc); ok {
			return true
		}
	}
	return false
}

// DeadlineMinuteOn resolves the deadline for item on d. Precedence, highest
// first: an override on d, the earliest at_time of the schedules due on d,
// the anchor default, and finally the anytime slot. A negative slot disables
// the last tier.
func (r *Resolver) DeadlineMinuteOn(item Item, d Date, loc *time.Location, slot int) (int, Source, bool) {
	if loc == nil {
		loc = r.opts.Location
	}

	best, found := 0, false
	for _, o := range item.Overrides {
		if o.TaskID != 0 && o.TaskID != item.Task.ID {
			continue
		}
		local := o.DueAt.In(loc)
		if DateOf(local) != d {
			continue
		}
		m := local.Hour()*60 + local.Minute()
		if !found || m < best {
			best, found = m, true
		}
	}
	if found {
		return best, SourceOverride, true
	}

	for _, s := range item.Schedules {
		if !s.HasAt {
			continue
		}
		at, ok := OccursOn(s, d, loc)
		if !ok {
			continue
		}
		if !found || at < best {
			best, found = at, true
		}
	}
	if found {
		return best, SourceSchedule, true
	}

	if item.Task.Anchor != AnchorAnytime {
		if m, ok := r.opts.AnchorMinutes[item.Task.Anchor]; ok {
			return m, SourceAnchor, true
		}
	}

	if slot < 0 {
		return 0, "", false
	}
	m := r.opts.FallbackStartMinute + slot*r.opts.SlotMinutes
	if m > LastMinute {
		m = LastMinute
	}
	return m, SourceFallback, true
}

// Plan returns the tasks due on d in stable order with resolved deadlines.
// Anytime slots are handed out in that same order, so the result depends
// only on the items and the day, never on the current time.
func (r *Resolver) Plan(d Date, loc *time.Location, items []Item) []Planned {
	due := make([]Item, 0, len(items))
	for _, item := range items {
		if r.IsDue(item, d, loc) {
			due = append(due, item)
		}
	}
	SortItems(due)

	out := make([]Planned, 0, len(due))
	slot := 0
	for _, item := range due {
		m, src, ok := r.DeadlineMinuteOn(item, d, loc, -1)
		if !ok {
			m, src, ok = r.DeadlineMinuteOn(item, d, loc, slot)
			slot++
		}
		if !ok {
			continue
		}
		out = append(out, Planned{Task: item.Task, Deadline: m, Source: src})
	}
	return out
}

// SortItems orders items by (order hint, creation time, id).
func SortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Task, items[j].Task
		if a.OrderHint != b.OrderHint {
			return a.OrderHint < b.OrderHint
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
