// Package shadow computes the pacing comparison between a user and a
// virtual competitor whose only "completions" are task deadlines passing.
//
// Every value is a pure function of the plan, the completions and the
// request frame, so two requests within the same minute return the same
// snapshot.
package shadow

import (
	"math"
	"sort"
	"time"

	"pacekeeper/internal/recurrence"
)

// LookaheadMinutes is the short-term projection horizon.
const LookaheadMinutes = 60

// Completion is one completion row for the day being simulated.
type Completion struct {
	TaskID      uint
	CompletedAt time.Time
}

// TaskView drives the side-by-side comparison of one due task.
type TaskView struct {
	TaskID         uint              `json:"task_id"`
	Title          string            `json:"title"`
	DeadlineMinute int               `json:"deadline_minute"`
	DeadlineLabel  string            `json:"deadline_label"`
	Source         recurrence.Source `json:"deadline_source"`
	ShadowPassed   bool              `json:"shadow_passed"`
	UserDone       bool              `json:"user_done"`
	CompletedLabel string            `json:"completed_label,omitempty"`
	SavedMinutes   int               `json:"saved_minutes"`
}

// State is the shadow snapshot for one request.
type State struct {
	Date        string  `json:"date"`
	NowMinute   int     `json:"now_minute"`
	TotalTasks  int     `json:"total_tasks_today"`
	ShadowDone  int     `json:"shadow_done_now"`
	ShadowIn60  int     `json:"shadow_done_in_60"`
	UserDone    int     `json:"user_done_now"`
	Lead        int     `json:"lead"`
	TimeSaved   int     `json:"time_saved_minutes"`
	Consistency float64 `json:"pace_consistency"`

	UserSpeedAvg     float64 `json:"user_speed_avg_today"`
	UserDoneLastHour int     `json:"user_done_last_hour"`
	ShadowNextHour   int     `json:"shadow_next_hour"`
	ProjectedUser    float64 `json:"projected_completed_user_today"`
	ProjectedDelta   float64 `json:"projected_delta_end"`

	PlannedShadowFinish int  `json:"planned_shadow_finish_minutes"`
	ProjectedUserFinish *int `json:"projected_user_finish_minutes"`

	Tasks []TaskView `json:"tasks"`
}

// Snapshot simulates the shadow for frame.Today. Completions outside
// frame.Today and completions of tasks absent from the plan are ignored;
// only the first completion of each task counts.
func Snapshot(frame recurrence.Frame, plan []recurrence.Planned, completions []Completion) State {
	st := State{
		Date:      frame.Today.String(),
		NowMinute: frame.Minute,
		Tasks:     make([]TaskView, 0, len(plan)),
	}

	deadlines := make(map[uint]int, len(plan))
	for _, p := range plan {
		if p.Deadline < 0 || p.Deadline > recurrence.LastMinute {
			continue
		}
		deadlines[p.Task.ID] = p.Deadline
	}

	first := firstCompletions(frame, deadlines, completions)

	latest := -1
	for _, p := range plan {
		deadline, ok := deadlines[p.Task.ID]
		if !ok {
			continue
		}
		st.TotalTasks++
		if deadline > latest {
			latest = deadline
		}
		view := TaskView{
			TaskID:         p.Task.ID,
			Title:          p.Task.Title,
			DeadlineMinute: deadline,
			DeadlineLabel:  recurrence.FormatClock(deadline),
			Source:         p.Source,
			ShadowPassed:   deadline <= frame.Minute,
		}
		if view.ShadowPassed {
			st.ShadowDone++
		}
		if deadline <= frame.Minute+LookaheadMinutes {
			st.ShadowIn60++
		}
		if deadline > frame.Minute && deadline <= frame.Minute+LookaheadMinutes {
			st.ShadowNextHour++
		}
		if at, ok := first[p.Task.ID]; ok {
			minute := frame.LocalMinute(at)
			view.UserDone = true
			view.CompletedLabel = recurrence.FormatClock(minute)
			view.SavedMinutes = deadline - minute
			st.UserDone++
			st.TimeSaved += view.SavedMinutes
			if frame.Now.Sub(at) <= LookaheadMinutes*time.Minute && !at.After(frame.Now) {
				st.UserDoneLastHour++
			}
		}
		st.Tasks = append(st.Tasks, view)
	}

	st.Lead = st.UserDone - st.ShadowDone
	st.Consistency = paceConsistency(first)

	elapsed := frame.Minute
	if elapsed < 1 {
		elapsed = 1
	}
	remaining := recurrence.MinutesPerDay - frame.Minute
	if remaining < 0 {
		remaining = 0
	}
	elapsedHours := float64(elapsed) / 60
	st.UserSpeedAvg = float64(st.UserDone) / elapsedHours
	st.ProjectedUser = float64(st.UserDone) + st.UserSpeedAvg*float64(remaining)/60
	st.ProjectedDelta = st.ProjectedUser - float64(st.TotalTasks)

	if latest >= 0 && latest > frame.Minute {
		st.PlannedShadowFinish = latest - frame.Minute
	}
	if st.UserDone > 0 {
		left := st.TotalTasks - st.UserDone
		if left < 0 {
			left = 0
		}
		eta := int(math.Round(float64(elapsed) / float64(st.UserDone) * float64(left)))
		st.ProjectedUserFinish = &eta
	}
	return st
}

func firstCompletions(frame recurrence.Frame, deadlines map[uint]int, completions []Completion) map[uint]time.Time {
	out := make(map[uint]time.Time, len(completions))
	for _, c := range completions {
		if _, due := deadlines[c.TaskID]; !due {
			continue
		}
		if frame.LocalDate(c.CompletedAt) != frame.Today {
			continue
		}
		if prev, ok := out[c.TaskID]; !ok || c.CompletedAt.Before(prev) {
			out[c.TaskID] = c.CompletedAt
		}
	}
	return out
}

// paceConsistency is 1 - min(1, stddev/mean) over the gaps between
// consecutive completions, or 0 with fewer than two completions.
func paceConsistency(first map[uint]time.Time) float64 {
	if len(first) < 2 {
		return 0
	}
	stamps := make([]time.Time, 0, len(first))
	for _, at := range first {
		stamps = append(stamps, at)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })

	gaps := make([]float64, 0, len(stamps)-1)
	var sum float64
	for i := 1; i < len(stamps); i++ {
		g := stamps[i].Sub(stamps[i-1]).Minutes()
		gaps = append(gaps, g)
		sum += g
	}
	mean := sum / float64(len(gaps))
	if mean <= 0 {
		return 0
	}
	var sq float64
	for _, g := range gaps {
		sq += (g - mean) * (g - mean)
	}
	cv := math.Sqrt(sq/float64(len(gaps))) / mean
	return math.Max(0, 1-math.Min(1, cv))
}
