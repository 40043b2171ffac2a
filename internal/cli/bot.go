package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pacekeeper/internal/bot"
)

func NewBotCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot with the daily report push",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.TelegramToken == "" {
				return fmt.Errorf("TELEGRAM_TOKEN is required")
			}
			telegramBot, err := bot.New(a.cfg.TelegramToken, bot.Deps{
				Users:  a.repos.Users,
				Goals:  a.repos.Goals,
				Engine: a.engine,
				Tasks:  a.tasks,
				Report: a.report,
				Log:    a.log,
			})
			if err != nil {
				return err
			}

			scheduler, err := a.scheduler()
			if err != nil {
				return err
			}
			if _, err := scheduler.ScheduleDaily("daily-report", a.cfg.ReportTime, func(ctx context.Context, now time.Time) error {
				return telegramBot.SendDailyReports(ctx, now)
			}); err != nil {
				return fmt.Errorf("schedule reports: %w", err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			a.log.Infow("bot started", "report_time", a.cfg.ReportTime)
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("bot stopped: %w", err)
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
}
