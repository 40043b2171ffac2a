package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pacekeeper/internal/model"
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/repository"
)

// GoalInput represents data required to create a goal.
type GoalInput struct {
	Title     string `json:"title"`
	StartDate string `json:"start_date"`
}

// ScheduleInput is the recurrence rule of a new task.
type ScheduleInput struct {
	Frequency string `json:"frequency"`
	ByWeekday []int  `json:"by_weekday"`
	AtTime    string `json:"at_time"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Timezone  string `json:"timezone"`
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title      string         `json:"title"`
	GoalID     *uint          `json:"goal_id"`
	EPValue    int            `json:"ep_value"`
	WeekQuota  *int           `json:"week_quota"`
	TimeAnchor string         `json:"time_anchor"`
	OrderHint  int            `json:"order_hint"`
	Schedule   *ScheduleInput `json:"schedule"`
}

// TaskService wraps task and goal bookkeeping.
type TaskService struct {
	repos    *repository.Set
	resolver *recurrence.Resolver
}

func NewTaskService(repos *repository.Set, resolver *recurrence.Resolver) *TaskService {
	return &TaskService{repos: repos, resolver: resolver}
}

func (s *TaskService) CreateGoal(ctx context.Context, userID uint, input GoalInput, now time.Time) (*model.Goal, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	user, err := s.repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}

	start := input.StartDate
	if start == "" {
		start = recurrence.NewFrame(now, s.resolver.Location(user.Timezone)).Today.String()
	} else if _, err := recurrence.ParseDate(start); err != nil {
		return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidInput)
	}

	goal := model.Goal{UserID: userID, Title: title, StartDate: start, Active: true}
	if err := s.repos.Goals.Create(ctx, &goal); err != nil {
		return nil, err
	}
	return &goal, nil
}

// CreateTask stores a task with its schedule. Malformed schedule fields are
// rejected here; rows written elsewhere still fail closed when evaluated.
func (s *TaskService) CreateTask(ctx context.Context, userID uint, input TaskInput) (*model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.GoalID != nil {
		if _, err := s.repos.Goals.FindByID(ctx, userID, *input.GoalID); err != nil {
			return nil, notFound(err)
		}
	}
	if input.WeekQuota != nil && *input.WeekQuota < 0 {
		return nil, fmt.Errorf("%w: week_quota must not be negative", ErrInvalidInput)
	}

	anchor := strings.ToLower(strings.TrimSpace(input.TimeAnchor))
	if anchor == "" {
		anchor = string(recurrence.AnchorAnytime)
	}
	if recurrence.ParseAnchor(anchor) != recurrence.Anchor(anchor) {
		return nil, fmt.Errorf("%w: unknown time_anchor %q", ErrInvalidInput, anchor)
	}

	task := model.Task{
		UserID:     userID,
		GoalID:     input.GoalID,
		Title:      title,
		EPValue:    input.EPValue,
		Active:     true,
		WeekQuota:  input.WeekQuota,
		TimeAnchor: anchor,
		OrderHint:  input.OrderHint,
	}
	if task.EPValue <= 0 {
		task.EPValue = 1
	}
	if input.Schedule != nil {
		sched, err := buildSchedule(*input.Schedule)
		if err != nil {
			return nil, err
		}
		task.Schedule = sched
	}

	if err := s.repos.Tasks.Create(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func buildSchedule(in ScheduleInput) (*model.Schedule, error) {
	freq := recurrence.Frequency(strings.ToLower(strings.TrimSpace(in.Frequency)))
	switch freq {
	case recurrence.FrequencyDaily, recurrence.FrequencyWeekly, recurrence.FrequencyCustom, recurrence.FrequencyOnce:
	default:
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, in.Frequency)
	}
	if (freq == recurrence.FrequencyWeekly || freq == recurrence.FrequencyCustom) && recurrence.WeekdaySetFromInts(in.ByWeekday).Empty() {
		return nil, fmt.Errorf("%w: %s schedule needs by_weekday", ErrInvalidInput, freq)
	}
	if freq == recurrence.FrequencyOnce && (in.StartDate == "" || in.AtTime == "") {
		return nil, fmt.Errorf("%w: once schedule needs start_date and at_time", ErrInvalidInput)
	}
	if in.AtTime != "" {
		if _, ok := recurrence.ParseClock(in.AtTime); !ok {
			return nil, fmt.Errorf("%w: at_time must be HH:MM", ErrInvalidInput)
		}
	}
	for _, d := range []string{in.StartDate, in.EndDate} {
		if d == "" {
			continue
		}
		if _, err := recurrence.ParseDate(d); err != nil {
			return nil, fmt.Errorf("%w: dates must be YYYY-MM-DD", ErrInvalidInput)
		}
	}
	if in.Timezone != "" {
		if _, err := time.LoadLocation(in.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, in.Timezone)
		}
	}

	return &model.Schedule{
		Frequency: string(freq),
		ByWeekday: in.ByWeekday,
		AtTime:    optional(in.AtTime),
		StartDate: optional(in.StartDate),
		EndDate:   optional(in.EndDate),
		Timezone:  optional(in.Timezone),
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AddOverride pins the deadline of a task on the day dueAt falls on.
func (s *TaskService) AddOverride(ctx context.Context, userID, taskID uint, dueAt time.Time) (*model.EventOverride, error) {
	if dueAt.IsZero() {
		return nil, fmt.Errorf("%w: due_at is required", ErrInvalidInput)
	}
	if _, err := s.repos.Tasks.FindByID(ctx, userID, taskID); err != nil {
		return nil, notFound(err)
	}
	o := model.EventOverride{UserID: userID, TaskID: taskID, DueAt: dueAt.UTC()}
	if err := s.repos.Overrides.Create(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *TaskService) SetTimezone(ctx context.Context, userID uint, tz string) error {
	tz = strings.TrimSpace(tz)
	if _, err := time.LoadLocation(tz); err != nil || tz == "" {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, tz)
	}
	if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
		return notFound(err)
	}
	return s.repos.Users.UpdateTimezone(ctx, userID, tz)
}

// DeactivateTask retires a task. Its completions stay in history.
func (s *TaskService) DeactivateTask(ctx context.Context, userID, taskID uint, now time.Time) error {
	ok, err := s.repos.Tasks.Deactivate(ctx, userID, taskID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
