package recurrence

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Anchor is a coarse time-of-day category used when a task has no explicit time.
type Anchor string

const (
	AnchorMorning Anchor = "morning"
	AnchorMidday  Anchor = "midday"
	AnchorEvening Anchor = "evening"
	AnchorNight   Anchor = "night"
	AnchorAnytime Anchor = "anytime"
)

// ParseAnchor normalizes a stored anchor value; unknown values become anytime.
func ParseAnchor(s string) Anchor {
	switch a := Anchor(strings.ToLower(strings.TrimSpace(s))); a {
	case AnchorMorning, AnchorMidday, AnchorEvening, AnchorNight:
		return a
	default:
		return AnchorAnytime
	}
}

// Options carries the fallback constants the resolver uses.
type Options struct {
	// Location is used whenever a schedule or user zone cannot be resolved.
	Location *time.Location
	// AnchorMinutes maps anchors to their default deadline minute.
	AnchorMinutes map[Anchor]int
	// FallbackStartMinute is the first slot handed to anytime tasks.
	FallbackStartMinute int
	// SlotMinutes is the spacing between consecutive anytime slots.
	SlotMinutes int
}

func DefaultOptions() Options {
	return Options{
		Location: time.UTC,
		AnchorMinutes: map[Anchor]int{
			AnchorMorning: 9 * 60,
			AnchorMidday:  13 * 60,
			AnchorEvening: 18 * 60,
			AnchorNight:   21 * 60,
		},
		FallbackStartMinute: 10 * 60,
		SlotMinutes:         60,
	}
}

var locationCache sync.Map

// LoadLocation resolves an IANA zone name, returning fallback when the name
// is empty or unknown. It never fails.
func LoadLocation(name string, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if cached, ok := locationCache.Load(name); ok {
		return cached.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	locationCache.Store(name, loc)
	return loc
}
