package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pacekeeper/internal/model"
	"pacekeeper/internal/service"
	"pacekeeper/internal/streak"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /today — tasks due today, tap to complete\n" +
	"• /done &lt;id&gt; — complete a task by id\n" +
	"• /shadow — race against your shadow\n" +
	"• /streak — life and goal streaks\n" +
	"• /revive — spend diamonds to forgive yesterday\n" +
	"• /progress — level, EP and diamonds\n" +
	"• /tz &lt;Zone&gt; — set your timezone, e.g. /tz Europe/Berlin\n" +
	"• /delete &lt;id&gt; — retire a task\n" +
	"• /report — today's summary"

func startText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "friend"
	}
	return fmt.Sprintf("👋 Hi, %s!\n<b>I keep your pace: every task has a deadline and a shadow that never misses one.</b>\n\n%s", escape(name), helpText)
}

func completionText(res service.CompletionResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ Done! +%d EP", res.EPAwarded))
	if len(res.LevelsGained) > 0 {
		sb.WriteString(fmt.Sprintf("\n🎉 Level %d reached, +%d 💎", res.Level.Level, res.DiamondsDelta))
	}
	sb.WriteString(fmt.Sprintf("\n⭐️ Level %d · %d/%d EP", res.Level.Level, res.Level.EPInLevel, res.Level.EPRequired))
	return sb.String()
}

func goalLine(title string, st streak.GoalState) string {
	line := fmt.Sprintf("🎯 %s: %d week(s) in a row (best %d)", escape(strings.TrimSpace(title)), st.ConsecutiveWeeks, st.Longest)
	if st.CanRevive {
		line += fmt.Sprintf(" · week of %s revivable for %d 💎", st.RevivePeriod, st.ReviveCost)
	}
	return line + "\n"
}

// todayKeyboard offers one complete button per open task.
func todayKeyboard(today service.Today) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range today.Tasks {
		if t.Done {
			continue
		}
		label := fmt.Sprintf("✅ #%d · %s", t.ID, shortTitle(t.Title, 24))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbCompletePrefix, t.ID)),
		))
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelToday),
			tgbotapi.NewKeyboardButton(menuLabelShadow),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStreak),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// menuAlias maps a menu button label to its command.
func menuAlias(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(menuLabelToday):
		return "today", true
	case strings.ToLower(menuLabelShadow):
		return "shadow", true
	case strings.ToLower(menuLabelStreak):
		return "streak", true
	case strings.ToLower(menuLabelHelp):
		return "help", true
	default:
		return "", false
	}
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(data, prefix))
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, fmt.Errorf("task id must be positive")
	}
	return uint(value), nil
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func zoneName(user *model.User) string {
	if user.Timezone == "" {
		return "the default"
	}
	return user.Timezone
}

func escape(s string) string {
	return html.EscapeString(s)
}
