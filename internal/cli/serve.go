package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"pacekeeper/internal/api"
	"pacekeeper/internal/auth"
)

// devSecret signs tokens outside production when no secret is configured.
const devSecret = "pacekeeper-dev"

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the nightly streak reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			secret := a.cfg.JWTSecret
			if secret == "" {
				secret = devSecret
				a.log.Warnw("JWT_SECRET is empty, using the development secret")
			}
			router := api.NewRouter(api.Deps{
				Engine:    a.engine,
				Tasks:     a.tasks,
				Users:     a.repos.Users,
				Issuer:    auth.NewIssuer(secret, a.cfg.TokenLifetime),
				Log:       a.log,
				DevTokens: !a.cfg.IsProduction(),
			})

			scheduler, err := a.scheduler()
			if err != nil {
				return err
			}
			scheduler.Start()
			defer scheduler.Stop()

			srv := &http.Server{
				Addr:              ":" + a.cfg.ServerPort,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Infow("http server listening", "addr", srv.Addr, "environment", a.cfg.Environment)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			a.log.Info("shutdown complete")
			return nil
		},
	}
}
