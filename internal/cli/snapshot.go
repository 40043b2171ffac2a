package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/service"
	"pacekeeper/internal/shadow"
	"pacekeeper/internal/streak"
)

// Snapshot is everything derived for one user at one instant.
type Snapshot struct {
	UserID   uint             `json:"user_id"`
	At       time.Time        `json:"at"`
	Today    service.Today    `json:"today"`
	Shadow   shadow.State     `json:"shadow"`
	Life     streak.LifeState `json:"life_streak"`
	Progress service.Progress `json:"progress"`
}

func NewSnapshotCommand(opts *RootOptions) *cobra.Command {
	var (
		userID uint
		at     string
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the plan, shadow, streak and progress of a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC 3339: %w", err)
				}
				now = t
			}

			a, err := newApp(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			snap := Snapshot{UserID: userID, At: now.UTC()}
			if snap.Today, err = a.engine.DueToday(ctx, userID, now); err != nil {
				return err
			}
			if snap.Shadow, err = a.engine.Shadow(ctx, userID, now); err != nil {
				return err
			}
			if snap.Life, err = a.engine.LifeStreak(ctx, userID, now); err != nil {
				return err
			}
			snap.Life.Days = nil
			if snap.Progress, err = a.engine.Progress(ctx, userID); err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), opts.Format, snap)
		},
	}
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC 3339 instant instead of now")
	return cmd
}

func writeSnapshot(w io.Writer, format string, s Snapshot) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "user %d · %s (%s)\n", s.UserID, s.Today.Date, s.Today.Zone)
	for _, t := range s.Today.Tasks {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(w, "  [%s] #%d %s  %s (%s)\n", mark, t.ID, t.Title, t.Deadline, t.Source)
	}
	sh := s.Shadow
	fmt.Fprintf(w, "shadow: you %d / shadow %d of %d, lead %+d, saved %+d min\n", sh.UserDone, sh.ShadowDone, sh.TotalTasks, sh.Lead, sh.TimeSaved)
	if sh.ProjectedUserFinish != nil {
		fmt.Fprintf(w, "projected finish %s, shadow finishes %s\n", recurrence.FormatClock(*sh.ProjectedUserFinish), recurrence.FormatClock(sh.PlannedShadowFinish))
	}
	fmt.Fprintf(w, "life streak: %d (best %d)", s.Life.Current, s.Life.Longest)
	if s.Life.CanRevive {
		fmt.Fprintf(w, ", revive %s for %d", s.Life.ReviveDate, s.Life.ReviveCost)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "level %d: %d/%d EP, %d diamonds\n", s.Progress.Level.Level, s.Progress.EPInLevel, s.Progress.EPRequired, s.Progress.Diamonds)
	return nil
}
