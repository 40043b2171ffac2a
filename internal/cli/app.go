package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"pacekeeper/internal/config"
	"pacekeeper/internal/lock"
	"pacekeeper/internal/logging"
	"pacekeeper/internal/recurrence"
	"pacekeeper/internal/repository"
	"pacekeeper/internal/service"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg      config.Config
	log      *zap.SugaredLogger
	repos    *repository.Set
	resolver *recurrence.Resolver
	engine   *service.EngineService
	tasks    *service.TaskService
	report   *service.ReportService
	redis    *redis.Client
}

func newApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.EnvDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Options{Level: level, File: cfg.LogFile, Console: logOut})
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, repos: repository.NewSet(db)}

	var locker lock.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		locker = lock.NewRedis(a.redis, "pacekeeper:lock:", 10*time.Second)
		log.Infow("using redis locks", "addr", cfg.RedisAddr)
	}

	a.resolver = recurrence.NewResolver(cfg.Engine.Recurrence())
	a.engine = service.NewEngineService(a.repos, a.resolver, locker, service.EngineConfig{
		Curve:          cfg.Engine.Curve(),
		LifeReviveCost: cfg.Engine.LifeReviveCost,
		GoalReviveCost: cfg.Engine.GoalReviveCost,
		HistoryDays:    cfg.Engine.LifeHistoryDays,
	}, log)
	a.tasks = service.NewTaskService(a.repos, a.resolver)
	a.report = service.NewReportService(a.engine)
	return a, nil
}

// scheduler returns a cron runner in the default engine zone with the
// nightly reconciliation registered.
func (a *app) scheduler() (*service.SchedulerService, error) {
	s := service.NewSchedulerService(a.resolver.Options().Location, a.log)
	if _, err := s.ScheduleDaily("reconcile-streaks", a.cfg.ReconcileTime, a.engine.Reconcile); err != nil {
		return nil, fmt.Errorf("schedule reconcile: %w", err)
	}
	return s, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.repos.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
