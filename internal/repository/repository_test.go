package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacekeeper/internal/model"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestTaskRepository_CreateWithSchedule(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)
	tasks := repository.NewTaskRepository(db)

	user := &model.User{Name: "ana", Timezone: "Europe/Madrid"}
	require.NoError(t, users.Create(ctx, user))

	task := &model.Task{
		UserID:     user.ID,
		Title:      "Stretch",
		TimeAnchor: "morning",
		Schedule: &model.Schedule{
			Frequency: "weekly",
			ByWeekday: []int{1, 3, 5},
			AtTime:    strPtr("07:30"),
		},
	}
	require.NoError(t, tasks.Create(ctx, task))
	require.NotZero(t, task.ID)

	loaded, err := tasks.FindByID(ctx, user.ID, task.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Schedule)
	assert.Equal(t, []int{1, 3, 5}, loaded.Schedule.ByWeekday)
	assert.Equal(t, "07:30", *loaded.Schedule.AtTime)
	assert.True(t, loaded.Active)
	assert.Equal(t, 1, loaded.EPValue)

	retired := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	ok, err := tasks.Deactivate(ctx, user.ID, task.ID, retired)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := tasks.ListActive(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := tasks.ListAll(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].DeactivatedAt)
	assert.True(t, retired.Equal(*all[0].DeactivatedAt))

	ok, err = tasks.Deactivate(ctx, user.ID+1, task.ID, retired)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompletionRepository_OnePerTaskPerDay(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	completions := repository.NewCompletionRepository(db)

	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	first := &model.Completion{TaskID: 1, UserID: 1, CompletedOn: "2024-06-03", CompletedAt: now, EPAwarded: 1}
	require.NoError(t, completions.Create(ctx, first))

	dup := &model.Completion{TaskID: 1, UserID: 1, CompletedOn: "2024-06-03", CompletedAt: now.Add(time.Hour), EPAwarded: 1}
	err := completions.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))

	next := &model.Completion{TaskID: 1, UserID: 1, CompletedOn: "2024-06-04", CompletedAt: now.Add(24 * time.Hour), EPAwarded: 1}
	require.NoError(t, completions.Create(ctx, next))

	rows, err := completions.ListBetween(ctx, 1, "2024-06-03", "2024-06-03")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = completions.ListForTasks(ctx, 1, []uint{1, 2}, "2024-06-01")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = completions.ListForTasks(ctx, 1, nil, "2024-06-01")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUserRepository_DebitIsConditional(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	user := &model.User{Name: "bo"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.AddProgress(ctx, user.ID, 40, 30))

	ok, err := users.DebitDiamonds(ctx, user.ID, 50)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = users.DebitDiamonds(ctx, user.ID, 20)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), reloaded.Diamonds)
	assert.Equal(t, int64(40), reloaded.TotalEP)
}

func TestUserRepository_LongestIsMonotonic(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	user := &model.User{Name: "cy"}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, users.RaiseLongestLifeStreak(ctx, user.ID, 5))
	require.NoError(t, users.RaiseLongestLifeStreak(ctx, user.ID, 3))

	reloaded, err := users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.LongestLifeStreak)
}

func TestUserRepository_UpsertFromTelegram(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	users := repository.NewUserRepository(db)

	first, err := users.UpsertFromTelegram(ctx, 4242, "dee")
	require.NoError(t, err)
	second, err := users.UpsertFromTelegram(ctx, 4242, "dee k")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	all, err := users.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "dee k", all[0].Name)
}

func TestReviveRepository_PeriodIsUnique(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	revives := repository.NewReviveRepository(db)

	require.NoError(t, revives.Create(ctx, &model.StreakRevive{UserID: 1, Kind: model.ReviveKindLife, Period: "2024-06-02", Cost: 50}))
	err := revives.Create(ctx, &model.StreakRevive{UserID: 1, Kind: model.ReviveKindLife, Period: "2024-06-02", Cost: 50})
	require.Error(t, err)
	assert.True(t, repository.IsUniqueViolation(err))

	require.NoError(t, revives.Create(ctx, &model.StreakRevive{UserID: 1, Kind: model.ReviveKindGoal, GoalID: 3, Period: "2024-06-02", Cost: 80}))

	life, err := revives.List(ctx, 1, model.ReviveKindLife, 0)
	require.NoError(t, err)
	assert.Len(t, life, 1)
}

func TestOverrideRepository_ListBetween(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	overrides := repository.NewOverrideRepository(db)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	require.NoError(t, overrides.Create(ctx, &model.EventOverride{UserID: 1, TaskID: 1, DueAt: day.Add(15 * time.Hour)}))
	require.NoError(t, overrides.Create(ctx, &model.EventOverride{UserID: 1, TaskID: 1, DueAt: day.Add(30 * time.Hour)}))

	rows, err := overrides.ListBetween(ctx, 1, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 15, rows[0].DueAt.UTC().Hour())
}

func TestNewDB_RejectsUnknownDriver(t *testing.T) {
	_, err := repository.NewDB("postgres", "x", nil)
	assert.Error(t, err)
}
