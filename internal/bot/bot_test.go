package bot

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pacekeeper/internal/lock"
	"pacekeeper/internal/model"
	"pacekeeper/internal/progression"
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
	"pacekeeper/internal/testutil"
)

type fakeAPI struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	acks     int
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.messages = append(f.messages, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.messages)
	return f.messages[len(f.messages)-1]
}

type harness struct {
	bot   *Bot
	api   *fakeAPI
	repos *repository.Set
	tasks *service.TaskService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repos := repository.NewSet(testutil.NewDB(t))
	resolver := recurrence.NewResolver(recurrence.DefaultOptions())
	engine := service.NewEngineService(repos, resolver, lock.NewLocal(), service.EngineConfig{
		Curve:          progression.DefaultCurve(),
		LifeReviveCost: 50,
		GoalReviveCost: 100,
	}, nil)
	tasks := service.NewTaskService(repos, resolver)
	api := &fakeAPI{}
	clock := testutil.NewClock(time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC))
	b := newBot(api, Deps{
		Users:  repos.Users,
		Goals:  repos.Goals,
		Engine: engine,
		Tasks:  tasks,
		Report: service.NewReportService(engine),
		Now:    clock.Now,
	})
	return &harness{bot: b, api: api, repos: repos, tasks: tasks}
}

func command(text string) *tgbotapi.Message {
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}},
		Chat:     &tgbotapi.Chat{ID: 500, Type: "private"},
		From:     &tgbotapi.User{ID: 500, FirstName: "Ana"},
	}
}

func TestParseTaskID(t *testing.T) {
	id, err := parseTaskID("complete:42", cbCompletePrefix)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	id, err = parseTaskID(" 7 ", "")
	require.NoError(t, err)
	assert.Equal(t, uint(7), id)

	_, err = parseTaskID("complete:abc", cbCompletePrefix)
	assert.Error(t, err)
	_, err = parseTaskID("0", "")
	assert.Error(t, err)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "walk the dog", shortTitle("  walk\nthe   dog ", 20))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
}

func TestMenuAlias(t *testing.T) {
	cmd, ok := menuAlias(menuLabelToday)
	assert.True(t, ok)
	assert.Equal(t, "today", cmd)
	_, ok = menuAlias("hello")
	assert.False(t, ok)
}

func TestTodayKeyboardSkipsDone(t *testing.T) {
	kb, ok := todayKeyboard(service.Today{Tasks: []service.TodayTask{
		{ID: 1, Title: "walk"},
		{ID: 2, Title: "read", Done: true},
	}})
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "complete:1", *kb.InlineKeyboard[0][0].CallbackData)

	_, ok = todayKeyboard(service.Today{})
	assert.False(t, ok)
}

func TestCommands_TodayAndDone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.bot.handleMessage(ctx, command("/start")))
	assert.Contains(t, h.api.last(t).Text, "Hi, Ana")

	user, err := h.repos.Users.UpsertFromTelegram(ctx, 500, "Ana")
	require.NoError(t, err)
	task, err := h.tasks.CreateTask(ctx, user.ID, service.TaskInput{
		Title:    "walk",
		Schedule: &service.ScheduleInput{Frequency: "daily", AtTime: "08:00"},
	})
	require.NoError(t, err)

	require.NoError(t, h.bot.handleMessage(ctx, command("/today")))
	msg := h.api.last(t)
	assert.Contains(t, msg.Text, "walk")
	assert.Contains(t, msg.Text, "08:00")
	_, isInline := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	assert.True(t, isInline)

	require.NoError(t, h.bot.handleMessage(ctx, command("/done "+itoa(task.ID))))
	assert.Contains(t, h.api.last(t).Text, "+1 EP")

	require.NoError(t, h.bot.handleMessage(ctx, command("/done "+itoa(task.ID))))
	assert.Contains(t, h.api.last(t).Text, "Already done today")

	require.NoError(t, h.bot.handleMessage(ctx, command("/done 999")))
	assert.Contains(t, h.api.last(t).Text, "Task not found")

	require.NoError(t, h.bot.handleMessage(ctx, command("/revive")))
	assert.Contains(t, h.api.last(t).Text, "Nothing to revive")
}

func TestCallbackCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user, err := h.repos.Users.UpsertFromTelegram(ctx, 500, "Ana")
	require.NoError(t, err)
	task, err := h.tasks.CreateTask(ctx, user.ID, service.TaskInput{Title: "read", Schedule: &service.ScheduleInput{Frequency: "daily"}})
	require.NoError(t, err)

	cb := &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: 500, FirstName: "Ana"},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 500, Type: "private"}},
		Data:    "complete:" + itoa(task.ID),
	}
	require.NoError(t, h.bot.handleCallback(ctx, cb))
	assert.Equal(t, 1, h.api.acks)

	var p service.Progress
	p, err = h.bot.engine.Progress(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.TotalEP)
}

func TestTimezoneCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.bot.handleMessage(ctx, command("/tz Asia/Tokyo")))
	assert.Contains(t, h.api.last(t).Text, "Asia/Tokyo")

	require.NoError(t, h.bot.handleMessage(ctx, command("/tz Nowhere/Land")))
	assert.NotContains(t, h.api.last(t).Text, "Timezone set")

	user, err := h.repos.Users.UpsertFromTelegram(ctx, 500, "Ana")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", user.Timezone)
}

func TestSendDailyReports_SkipsUnlinkedUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.repos.Users.UpsertFromTelegram(ctx, 500, "Ana")
	require.NoError(t, err)
	require.NoError(t, h.repos.Users.Create(ctx, &model.User{Name: "api-only"}))

	require.NoError(t, h.bot.SendDailyReports(ctx, time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)))
	require.Len(t, h.api.messages, 1)
	assert.Equal(t, int64(500), h.api.messages[0].ChatID)
	assert.Contains(t, h.api.messages[0].Text, "Daily report")
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
