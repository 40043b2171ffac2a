package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"pacekeeper/internal/model"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
	"pacekeeper/internal/streak"
)

const cbCompletePrefix = "complete:"

const (
	menuLabelToday  = "📋 Today"
	menuLabelShadow = "👤 Shadow"
	menuLabelStreak = "🔥 Streak"
	menuLabelHelp   = "ℹ️ Help"
)

// sender is the part of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Deps are the services the bot talks to.
type Deps struct {
	Users  *repository.UserRepository
	Goals  *repository.GoalRepository
	Engine *service.EngineService
	Tasks  *service.TaskService
	Report *service.ReportService
	Log    *zap.SugaredLogger
	Now    func() time.Time
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api    sender
	self   *tgbotapi.BotAPI
	users  *repository.UserRepository
	goals  *repository.GoalRepository
	engine *service.EngineService
	tasks  *service.TaskService
	report *service.ReportService
	log    *zap.SugaredLogger
	now    func() time.Time
}

func New(token string, d Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(api, d)
	b.self = api
	b.log.Infow("bot authorized", "account", api.Self.UserName)
	return b, nil
}

func newBot(api sender, d Deps) *Bot {
	b := &Bot{api: api, users: d.Users, goals: d.Goals, engine: d.Engine, tasks: d.Tasks, report: d.Report, log: d.Log, now: d.Now}
	if b.log == nil {
		b.log = zap.NewNop().Sugar()
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.self == nil {
		return errors.New("bot is not connected")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.self.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.self.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Errorw("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Errorw("handle message", "error", err)
			}
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if msg.IsCommand() {
		b.log.Infow("command", "from", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg, msg.Command(), strings.TrimSpace(msg.CommandArguments()))
	}
	if cmd, ok := menuAlias(msg.Text); ok {
		return b.handleCommand(ctx, msg, cmd, "")
	}
	return b.sendText(msg.Chat.ID, "I did not get that. Try /today or /help.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, cmd, args string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	chatID := msg.Chat.ID
	now := b.now()

	switch cmd {
	case "start":
		return b.sendText(chatID, startText(msg.From.FirstName))
	case "help":
		return b.sendText(chatID, helpText)
	case "today":
		return b.sendToday(ctx, chatID, user, now)
	case "shadow":
		st, err := b.engine.Shadow(ctx, user.ID, now)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, "👤 <b>Shadow</b>\n"+service.FormatShadow(st))
	case "streak":
		return b.sendStreaks(ctx, chatID, user, now)
	case "revive":
		st, err := b.engine.ReviveLifeStreak(ctx, user.ID, now)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, "💎 Yesterday revived.\n"+service.FormatLife(st))
	case "progress":
		p, err := b.engine.Progress(ctx, user.ID)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, service.FormatProgress(p))
	case "done":
		taskID, err := parseTaskID(args, "")
		if err != nil {
			return b.sendText(chatID, "Give the task id: /done 12")
		}
		return b.complete(ctx, chatID, user, taskID, now)
	case "delete":
		taskID, err := parseTaskID(args, "")
		if err != nil {
			return b.sendText(chatID, "Give the task id: /delete 12")
		}
		if err := b.tasks.DeactivateTask(ctx, user.ID, taskID, now); err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🗑 Task #%d retired.", taskID))
	case "tz":
		if args == "" {
			return b.sendText(chatID, fmt.Sprintf("Your timezone is %s. Change it with /tz Europe/Berlin", escape(zoneName(user))))
		}
		if err := b.tasks.SetTimezone(ctx, user.ID, args); err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, fmt.Sprintf("🌍 Timezone set to %s.", escape(args)))
	case "report":
		text, err := b.report.DailySummary(ctx, *user, now)
		if err != nil {
			return b.sendError(chatID, err)
		}
		return b.sendText(chatID, text)
	default:
		return b.sendText(chatID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warnw("callback ack", "error", err)
	}
	if !strings.HasPrefix(cb.Data, cbCompletePrefix) {
		return nil
	}
	taskID, err := parseTaskID(cb.Data, cbCompletePrefix)
	if err != nil {
		return nil
	}
	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		return err
	}
	now := b.now()
	if err := b.complete(ctx, cb.Message.Chat.ID, user, taskID, now); err != nil {
		return err
	}
	return b.sendToday(ctx, cb.Message.Chat.ID, user, now)
}

func (b *Bot) complete(ctx context.Context, chatID int64, user *model.User, taskID uint, now time.Time) error {
	res, err := b.engine.Complete(ctx, user.ID, taskID, now)
	if err != nil {
		return b.sendError(chatID, err)
	}
	return b.sendText(chatID, completionText(res))
}

func (b *Bot) sendToday(ctx context.Context, chatID int64, user *model.User, now time.Time) error {
	today, err := b.engine.DueToday(ctx, user.ID, now)
	if err != nil {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("📋 <b>Today</b> · %s\n%s", today.Date, service.FormatToday(today))
	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(text))
	msg.ParseMode = tgbotapi.ModeHTML
	if kb, ok := todayKeyboard(today); ok {
		msg.ReplyMarkup = kb
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) sendStreaks(ctx context.Context, chatID int64, user *model.User, now time.Time) error {
	life, err := b.engine.LifeStreak(ctx, user.ID, now)
	if err != nil {
		return b.sendError(chatID, err)
	}
	var sb strings.Builder
	sb.WriteString(service.FormatLife(life))

	goals, err := b.goals.ListActive(ctx, user.ID)
	if err != nil {
		return b.sendError(chatID, err)
	}
	for _, g := range goals {
		st, err := b.engine.GoalStreak(ctx, user.ID, g.ID, now)
		if err != nil {
			b.log.Warnw("goal streak", "goal_id", g.ID, "error", err)
			continue
		}
		sb.WriteString(goalLine(g.Title, st))
	}
	return b.sendText(chatID, sb.String())
}

// SendDailyReports sends a summary to every user linked to Telegram.
func (b *Bot) SendDailyReports(ctx context.Context, now time.Time) error {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return err
	}
	var sent int
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.report.DailySummary(ctx, user, now)
		if err != nil {
			b.log.Errorw("build summary", "user_id", user.ID, "error", err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.log.Errorw("send summary", "user_id", user.ID, "error", err)
			continue
		}
		sent++
	}
	b.log.Infow("daily reports sent", "sent", sent, "users", len(users))
	return nil
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	name := strings.TrimSpace(strings.Join([]string{from.FirstName, from.LastName}, " "))
	if name == "" {
		name = from.UserName
	}
	return b.users.UpsertFromTelegram(ctx, from.ID, name)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

// sendError reports user-caused conditions in chat and returns real failures.
func (b *Bot) sendError(chatID int64, err error) error {
	if !service.IsUserError(err) {
		_ = b.sendText(chatID, "⚠️ Something went wrong, try again later.")
		return err
	}
	return b.sendText(chatID, errorText(err))
}

func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "Task not found."
	case errors.Is(err, service.ErrAlreadyCompleted):
		return "✅ Already done today."
	case errors.Is(err, service.ErrTaskInactive):
		return "That task is retired."
	case errors.Is(err, streak.ErrAlreadyRevived):
		return "Already revived."
	case errors.Is(err, streak.ErrNotEligible):
		return "Nothing to revive: yesterday was not missed."
	case errors.Is(err, streak.ErrInsufficientFunds):
		return "💎 Not enough diamonds."
	default:
		return escape(err.Error())
	}
}
