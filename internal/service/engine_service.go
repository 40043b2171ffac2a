package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pacekeeper/internal/lock"
	"pacekeeper/internal/model"
	"pacekeeper/internal/progression"
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/shadow"
	"pacekeeper/internal/streak"
)

// EngineConfig carries the tunables of the engine.
type EngineConfig struct {
	Curve          progression.Curve
	LifeReviveCost int64
	GoalReviveCost int64
	HistoryDays    int
}

// EngineService evaluates the pure engine against stored facts. Each call
// captures one frame so every derived value agrees on "now".
type EngineService struct {
	repos    *repository.Set
	resolver *recurrence.Resolver
	locker   lock.Locker
	cfg      EngineConfig
	log      *zap.SugaredLogger
}

func NewEngineService(repos *repository.Set, resolver *recurrence.Resolver, locker lock.Locker, cfg EngineConfig, log *zap.SugaredLogger) *EngineService {
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 365
	}
	if cfg.Curve.BaseEP <= 0 {
		cfg.Curve = progression.DefaultCurve()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EngineService{repos: repos, resolver: resolver, locker: locker, cfg: cfg, log: log}
}

// Today lists the tasks due on the user's local today with deadlines.
type Today struct {
	Date  string      `json:"date"`
	Zone  string      `json:"timezone"`
	Tasks []TodayTask `json:"tasks"`
}

type TodayTask struct {
	ID       uint              `json:"id"`
	Title    string            `json:"title"`
	Deadline string            `json:"deadline"`
	Source   recurrence.Source `json:"deadline_source"`
	Done     bool              `json:"done"`
}

// Progress is the level view of a user's balance.
type Progress struct {
	progression.Level
	Diamonds int64 `json:"diamonds"`
}

// CompletionResult reports what a completion granted.
type CompletionResult struct {
	TaskID        uint              `json:"task_id"`
	CompletedOn   string            `json:"completed_on"`
	EPAwarded     int               `json:"ep_awarded"`
	LevelsGained  []int             `json:"levels_gained"`
	DiamondsDelta int64             `json:"diamonds_delta"`
	Level         progression.Level `json:"level"`
	Diamonds      int64             `json:"diamonds"`
}

// Frame resolves the user's zone and captures now in it.
func (s *EngineService) Frame(user *model.User, now time.Time) recurrence.Frame {
	return recurrence.NewFrame(now, s.resolver.Location(user.Timezone))
}

func (s *EngineService) DueToday(ctx context.Context, userID uint, now time.Time) (Today, error) {
	user, err := s.user(ctx, s.repos, userID)
	if err != nil {
		return Today{}, err
	}
	frame := s.Frame(user, now)
	plan, completions, err := s.today(ctx, s.repos, user, frame)
	if err != nil {
		return Today{}, err
	}

	done := make(map[uint]bool, len(completions))
	for _, c := range completions {
		done[c.TaskID] = true
	}
	out := Today{Date: frame.Today.String(), Zone: frame.Loc.String(), Tasks: make([]TodayTask, 0, len(plan))}
	for _, p := range plan {
		out.Tasks = append(out.Tasks, TodayTask{
			ID:       p.Task.ID,
			Title:    p.Task.Title,
			Deadline: recurrence.FormatClock(p.Deadline),
			Source:   p.Source,
			Done:     done[p.Task.ID],
		})
	}
	return out, nil
}

func (s *EngineService) Shadow(ctx context.Context, userID uint, now time.Time) (shadow.State, error) {
	user, err := s.user(ctx, s.repos, userID)
	if err != nil {
		return shadow.State{}, err
	}
	frame := s.Frame(user, now)
	plan, completions, err := s.today(ctx, s.repos, user, frame)
	if err != nil {
		return shadow.State{}, err
	}
	rows := make([]shadow.Completion, 0, len(completions))
	for _, c := range completions {
		rows = append(rows, c.ShadowCompletion())
	}
	return shadow.Snapshot(frame, plan, rows), nil
}

func (s *EngineService) Progress(ctx context.Context, userID uint) (Progress, error) {
	user, err := s.user(ctx, s.repos, userID)
	if err != nil {
		return Progress{}, err
	}
	return Progress{Level: s.cfg.Curve.Level(user.TotalEP), Diamonds: user.Diamonds}, nil
}

// LifeStreak evaluates the account-wide daily streak and persists a new
// longest mark when one was reached.
func (s *EngineService) LifeStreak(ctx context.Context, userID uint, now time.Time) (streak.LifeState, error) {
	user, err := s.user(ctx, s.repos, userID)
	if err != nil {
		return streak.LifeState{}, err
	}
	st, err := s.lifeState(ctx, s.repos, user, s.Frame(user, now))
	if err != nil {
		return streak.LifeState{}, err
	}
	if st.Longest > user.LongestLifeStreak {
		if err := s.repos.Users.RaiseLongestLifeStreak(ctx, user.ID, st.Longest); err != nil {
			return streak.LifeState{}, err
		}
	}
	st.Longest = streak.MergeLongest(user.LongestLifeStreak, st.Longest)
	return st, nil
}

// GoalStreak evaluates the weekly streak of one goal.
func (s *EngineService) GoalStreak(ctx context.Context, userID, goalID uint, now time.Time) (streak.GoalState, error) {
	user, err := s.user(ctx, s.repos, userID)
	if err != nil {
		return streak.GoalState{}, err
	}
	goal, err := s.repos.Goals.FindByID(ctx, userID, goalID)
	if err != nil {
		return streak.GoalState{}, notFound(err)
	}
	st, err := s.goalState(ctx, s.repos, goal, s.Frame(user, now))
	if err != nil {
		return streak.GoalState{}, err
	}
	if st.Longest > goal.LongestStreak {
		if err := s.repos.Goals.RaiseLongest(ctx, goal.ID, st.Longest); err != nil {
			return streak.GoalState{}, err
		}
	}
	st.Longest = streak.MergeLongest(goal.LongestStreak, st.Longest)
	return st, nil
}

// Complete records a completion on the user's local today, awards EP and
// grants the bonus of every level crossed.
func (s *EngineService) Complete(ctx context.Context, userID, taskID uint, now time.Time) (CompletionResult, error) {
	unlock, err := s.locker.Lock(ctx, userKey(userID))
	if err != nil {
		return CompletionResult{}, err
	}
	defer unlock()

	var res CompletionResult
	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		user, err := s.user(ctx, repos, userID)
		if err != nil {
			return err
		}
		task, err := repos.Tasks.FindByID(ctx, userID, taskID)
		if err != nil {
			return notFound(err)
		}
		if !task.Active {
			return ErrTaskInactive
		}

		frame := s.Frame(user, now)
		completion := model.Completion{
			TaskID:      task.ID,
			UserID:      user.ID,
			CompletedOn: frame.Today.String(),
			CompletedAt: now.UTC(),
			EPAwarded:   task.EP(),
		}
		if err := repos.Completions.Create(ctx, &completion); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrAlreadyCompleted
			}
			return err
		}

		ep := int64(completion.EPAwarded)
		applied := s.cfg.Curve.Apply(user.TotalEP, user.TotalEP+ep)
		if err := repos.Users.AddProgress(ctx, user.ID, ep, applied.DiamondsDelta); err != nil {
			return err
		}
		res = CompletionResult{
			TaskID:        task.ID,
			CompletedOn:   completion.CompletedOn,
			EPAwarded:     completion.EPAwarded,
			LevelsGained:  applied.LevelsGained,
			DiamondsDelta: applied.DiamondsDelta,
			Level:         applied.After,
			Diamonds:      user.Diamonds + applied.DiamondsDelta,
		}
		return nil
	})
	if err != nil {
		return CompletionResult{}, err
	}
	s.log.Infow("task completed", "user_id", userID, "task_id", taskID, "ep", res.EPAwarded, "levels", res.LevelsGained)
	return res, nil
}

// ReviveLifeStreak forgives yesterday for the life revive cost.
func (s *EngineService) ReviveLifeStreak(ctx context.Context, userID uint, now time.Time) (streak.LifeState, error) {
	err := s.revive(ctx, userID, func(repos *repository.Set, user *model.User) (*model.StreakRevive, error) {
		st, err := s.lifeState(ctx, repos, user, s.Frame(user, now))
		if err != nil {
			return nil, err
		}
		if err := streak.CheckLifeRevive(st); err != nil {
			return nil, err
		}
		return &model.StreakRevive{
			UserID: user.ID,
			Kind:   model.ReviveKindLife,
			Period: st.ReviveDate,
			Cost:   s.cfg.LifeReviveCost,
		}, nil
	})
	if err != nil {
		return streak.LifeState{}, err
	}
	return s.LifeStreak(ctx, userID, now)
}

// ReviveGoalWeek forgives the most recent missed period of a goal.
func (s *EngineService) ReviveGoalWeek(ctx context.Context, userID, goalID uint, now time.Time) (streak.GoalState, error) {
	err := s.revive(ctx, userID, func(repos *repository.Set, user *model.User) (*model.StreakRevive, error) {
		goal, err := repos.Goals.FindByID(ctx, userID, goalID)
		if err != nil {
			return nil, notFound(err)
		}
		st, err := s.goalState(ctx, repos, goal, s.Frame(user, now))
		if err != nil {
			return nil, err
		}
		if err := streak.CheckGoalRevive(st); err != nil {
			return nil, err
		}
		return &model.StreakRevive{
			UserID: user.ID,
			Kind:   model.ReviveKindGoal,
			GoalID: goal.ID,
			Period: st.RevivePeriod,
			Cost:   s.cfg.GoalReviveCost,
		}, nil
	})
	if err != nil {
		return streak.GoalState{}, err
	}
	return s.GoalStreak(ctx, userID, goalID, now)
}

// revive runs eligibility, debit and insert under the user lock in one
// transaction. plan returns the row to insert or the reason it cannot.
func (s *EngineService) revive(ctx context.Context, userID uint, plan func(*repository.Set, *model.User) (*model.StreakRevive, error)) error {
	unlock, err := s.locker.Lock(ctx, userKey(userID))
	if err != nil {
		return err
	}
	defer unlock()

	var row *model.StreakRevive
	err = s.repos.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.WithTx(tx)
		user, err := s.user(ctx, repos, userID)
		if err != nil {
			return err
		}
		row, err = plan(repos, user)
		if err != nil {
			return err
		}
		if err := streak.CheckFunds(user.Diamonds, row.Cost); err != nil {
			return err
		}
		ok, err := repos.Users.DebitDiamonds(ctx, user.ID, row.Cost)
		if err != nil {
			return err
		}
		if !ok {
			return streak.ErrInsufficientFunds
		}
		if err := repos.Revives.Create(ctx, row); err != nil {
			if repository.IsUniqueViolation(err) {
				return streak.ErrAlreadyRevived
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Infow("streak revived", "user_id", userID, "kind", row.Kind, "goal_id", row.GoalID, "period", row.Period, "cost", row.Cost)
	return nil
}

// Reconcile re-evaluates every streak so longest marks reached on days
// nobody looked are persisted.
func (s *EngineService) Reconcile(ctx context.Context, now time.Time) error {
	users, err := s.repos.Users.ListAll(ctx)
	if err != nil {
		return err
	}
	var failed int
	for _, user := range users {
		if _, err := s.LifeStreak(ctx, user.ID, now); err != nil {
			failed++
			s.log.Errorw("reconcile life streak", "user_id", user.ID, "error", err)
			continue
		}
		goals, err := s.repos.Goals.ListActive(ctx, user.ID)
		if err != nil {
			failed++
			s.log.Errorw("list goals", "user_id", user.ID, "error", err)
			continue
		}
		for _, goal := range goals {
			if _, err := s.GoalStreak(ctx, user.ID, goal.ID, now); err != nil {
				failed++
				s.log.Errorw("reconcile goal streak", "user_id", user.ID, "goal_id", goal.ID, "error", err)
			}
		}
	}
	s.log.Infow("streaks reconciled", "users", len(users), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("reconcile: %d failures", failed)
	}
	return nil
}

func (s *EngineService) user(ctx context.Context, repos *repository.Set, userID uint) (*model.User, error) {
	user, err := repos.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

// today builds the plan for frame.Today and loads that day's completions.
func (s *EngineService) today(ctx context.Context, repos *repository.Set, user *model.User, frame recurrence.Frame) ([]recurrence.Planned, []model.Completion, error) {
	tasks, err := repos.Tasks.ListActive(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	from := frame.Today.Start(frame.Loc)
	to := frame.Today.AddDays(1).Start(frame.Loc)
	overrides, err := repos.Overrides.ListBetween(ctx, user.ID, from, to)
	if err != nil {
		return nil, nil, err
	}
	completions, err := repos.Completions.ListBetween(ctx, user.ID, frame.Today.String(), frame.Today.String())
	if err != nil {
		return nil, nil, err
	}
	items := buildItems(tasks, overrides, frame.Loc)
	return s.resolver.Plan(frame.Today, frame.Loc, items), completions, nil
}

// lifeState folds up to HistoryDays of day outcomes ending at frame.Today.
func (s *EngineService) lifeState(ctx context.Context, repos *repository.Set, user *model.User, frame recurrence.Frame) (streak.LifeState, error) {
	tasks, err := repos.Tasks.ListAll(ctx, user.ID)
	if err != nil {
		return streak.LifeState{}, err
	}
	if len(tasks) == 0 {
		return streak.Life(frame.Today, nil, s.cfg.LifeReviveCost), nil
	}

	from := frame.Today.AddDays(-(s.cfg.HistoryDays - 1))
	earliest := frame.Today
	for _, t := range tasks {
		if d := frame.LocalDate(t.CreatedAt); d.Before(earliest) {
			earliest = d
		}
	}
	if earliest.After(from) {
		from = earliest
	}

	completions, err := repos.Completions.ListBetween(ctx, user.ID, from.String(), frame.Today.String())
	if err != nil {
		return streak.LifeState{}, err
	}
	done := make(map[string]map[uint]bool)
	for _, c := range completions {
		if done[c.CompletedOn] == nil {
			done[c.CompletedOn] = make(map[uint]bool)
		}
		done[c.CompletedOn][c.TaskID] = true
	}
	revives, err := repos.Revives.List(ctx, user.ID, model.ReviveKindLife, 0)
	if err != nil {
		return streak.LifeState{}, err
	}
	revived := make(map[string]bool, len(revives))
	for _, rv := range revives {
		revived[rv.Period] = true
	}

	items := buildItems(tasks, nil, frame.Loc)
	history := make([]streak.DayOutcome, 0, frame.Today.DaysSince(from)+1)
	for d := from; !d.After(frame.Today); d = d.AddDays(1) {
		out := streak.DayOutcome{Date: d, Revived: revived[d.String()]}
		for i, item := range items {
			if !existedOn(tasks[i], d, frame) || !s.resolver.IsDue(item, d, frame.Loc) {
				continue
			}
			out.Due++
			if done[d.String()][item.Task.ID] {
				out.Done++
			}
		}
		history = append(history, out)
	}
	return streak.Life(frame.Today, history, s.cfg.LifeReviveCost), nil
}

// goalState buckets the goal's completions into periods against the sum of
// the weekly quotas of its active tasks.
func (s *EngineService) goalState(ctx context.Context, repos *repository.Set, goal *model.Goal, frame recurrence.Frame) (streak.GoalState, error) {
	start, err := recurrence.ParseDate(goal.StartDate)
	if err != nil {
		start = frame.LocalDate(goal.CreatedAt)
	}

	tasks, err := repos.Tasks.ListByGoal(ctx, goal.UserID, goal.ID)
	if err != nil {
		return streak.GoalState{}, err
	}
	quota := 0
	ids := make([]uint, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		if t.Active && t.WeekQuota != nil {
			quota += *t.WeekQuota
		}
	}

	completions, err := repos.Completions.ListForTasks(ctx, goal.UserID, ids, start.String())
	if err != nil {
		return streak.GoalState{}, err
	}
	days := make([]recurrence.Date, 0, len(completions))
	for _, c := range completions {
		d, err := recurrence.ParseDate(c.CompletedOn)
		if err != nil {
			s.log.Warnw("skip completion with malformed day", "completion_id", c.ID, "completed_on", c.CompletedOn)
			continue
		}
		days = append(days, d)
	}

	revives, err := repos.Revives.List(ctx, goal.UserID, model.ReviveKindGoal, goal.ID)
	if err != nil {
		return streak.GoalState{}, err
	}
	revived := make(map[recurrence.Date]bool, len(revives))
	for _, rv := range revives {
		if d, err := recurrence.ParseDate(rv.Period); err == nil {
			revived[d] = true
		}
	}

	weeks, current := streak.GoalWeeks(start, frame.Today, days, quota, revived)
	return streak.Goal(weeks, current, s.cfg.GoalReviveCost), nil
}

// buildItems pairs tasks with their decoded schedule and overrides. Schedules
// without their own zone follow loc. The result is index-aligned with tasks.
func buildItems(tasks []model.Task, overrides []model.EventOverride, loc *time.Location) []recurrence.Item {
	byTask := make(map[uint][]recurrence.Override)
	for _, o := range overrides {
		byTask[o.TaskID] = append(byTask[o.TaskID], o.ResolverOverride())
	}
	items := make([]recurrence.Item, 0, len(tasks))
	for _, t := range tasks {
		item := recurrence.Item{Task: t.ResolverTask(), Overrides: byTask[t.ID]}
		if t.Schedule != nil {
			item.Schedules = []recurrence.Schedule{recurrence.FromRecord(t.Schedule.Record(), loc)}
		}
		items = append(items, item)
	}
	return items
}

// existedOn reports whether the task was live on d: created on or before it
// and not retired on or before it.
func existedOn(t model.Task, d recurrence.Date, frame recurrence.Frame) bool {
	if frame.LocalDate(t.CreatedAt).After(d) {
		return false
	}
	if t.DeactivatedAt != nil && !frame.LocalDate(*t.DeactivatedAt).After(d) {
		return false
	}
	if !t.Active && t.DeactivatedAt == nil {
		return false
	}
	return true
}

func userKey(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// IsUserError reports whether err is a condition the caller caused rather
// than a failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrAlreadyCompleted, ErrTaskInactive, ErrInvalidInput,
		streak.ErrNotEligible, streak.ErrAlreadyRevived, streak.ErrInsufficientFunds,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
