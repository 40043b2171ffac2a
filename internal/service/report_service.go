package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"pacekeeper/internal/model"
	"pacekeeper/internal/shadow"
	"pacekeeper/internal/streak"
)

// ReportService builds human-readable summaries for daily notifications.
type ReportService struct {
	engine *EngineService
}

func NewReportService(engine *EngineService) *ReportService {
	return &ReportService{engine: engine}
}

// DailySummary renders today's plan, the shadow race and both balances as
// Telegram HTML.
func (s *ReportService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	today, err := s.engine.DueToday(ctx, user.ID, now)
	if err != nil {
		return "", err
	}
	snap, err := s.engine.Shadow(ctx, user.ID, now)
	if err != nil {
		return "", err
	}
	life, err := s.engine.LifeStreak(ctx, user.ID, now)
	if err != nil {
		return "", err
	}
	progress, err := s.engine.Progress(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("📋 <b>Daily report</b>\n")
	b.WriteString(fmt.Sprintf("🗓 %s (%s)\n\n", today.Date, html.EscapeString(today.Zone)))

	b.WriteString("🔥 <b>Due today</b>\n")
	b.WriteString(FormatToday(today))

	b.WriteString("\n👤 <b>Shadow</b>\n")
	b.WriteString(FormatShadow(snap))

	b.WriteString("\n")
	b.WriteString(FormatLife(life))
	b.WriteString(FormatProgress(progress))
	return strings.TrimSpace(b.String()), nil
}

func FormatToday(today Today) string {
	if len(today.Tasks) == 0 {
		return "— nothing due today\n"
	}
	var b strings.Builder
	for _, t := range today.Tasks {
		icon := "⬜️"
		if t.Done {
			icon = "✅"
		}
		b.WriteString(fmt.Sprintf("%s <code>#%d</code> %s · ⏰ %s\n", icon, t.ID, html.EscapeString(strings.TrimSpace(t.Title)), t.Deadline))
	}
	return b.String()
}

func FormatShadow(st shadow.State) string {
	if st.TotalTasks == 0 {
		return "— no race today\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("You %d / Shadow %d of %d", st.UserDone, st.ShadowDone, st.TotalTasks))
	switch {
	case st.Lead > 0:
		b.WriteString(fmt.Sprintf(" · ahead by %d", st.Lead))
	case st.Lead < 0:
		b.WriteString(fmt.Sprintf(" · behind by %d", -st.Lead))
	default:
		b.WriteString(" · level")
	}
	b.WriteByte('\n')
	if st.TimeSaved != 0 {
		b.WriteString(fmt.Sprintf("⏱ time saved: %+d min\n", st.TimeSaved))
	}
	if st.ShadowNextHour > 0 {
		b.WriteString(fmt.Sprintf("⏳ shadow finishes %d more in the next hour\n", st.ShadowNextHour))
	}
	return b.String()
}

func FormatLife(st streak.LifeState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔥 Life streak: <b>%d</b> (best %d)\n", st.Current, st.Longest))
	if st.CanRevive {
		b.WriteString(fmt.Sprintf("💎 Yesterday can be revived for %d diamonds: streak becomes %d. Use /revive\n", st.ReviveCost, st.CurrentIfRevived))
	}
	return b.String()
}

func FormatProgress(p Progress) string {
	return fmt.Sprintf("⭐️ Level %d · %d/%d EP · 💎 %d\n", p.Level.Level, p.EPInLevel, p.EPRequired, p.Diamonds)
}
