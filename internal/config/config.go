package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"pacekeeper/internal/progression"
	"pacekeeper/internal/recurrence"
)

// Config keeps runtime settings for every surface and the engine constants.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	TokenLifetime time.Duration `mapstructure:"TOKEN_LIFETIME"`

	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`
	ReportTime    string `mapstructure:"REPORT_TIME"`
	ReconcileTime string `mapstructure:"RECONCILE_TIME"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`

	Engine Engine `mapstructure:",squash"`
}

// Engine holds the constants injected into the resolver, tracker and
// progression curve.
type Engine struct {
	DefaultTimezone   string `mapstructure:"DEFAULT_TIMEZONE"`
	MorningAt         string `mapstructure:"ANCHOR_MORNING"`
	MiddayAt          string `mapstructure:"ANCHOR_MIDDAY"`
	EveningAt         string `mapstructure:"ANCHOR_EVENING"`
	NightAt           string `mapstructure:"ANCHOR_NIGHT"`
	FallbackStartAt   string `mapstructure:"FALLBACK_START"`
	FallbackSlotMins  int    `mapstructure:"FALLBACK_SLOT_MINUTES"`
	LifeReviveCost    int64  `mapstructure:"LIFE_REVIVE_COST"`
	GoalReviveCost    int64  `mapstructure:"GOAL_REVIVE_COST"`
	LifeHistoryDays   int    `mapstructure:"LIFE_HISTORY_DAYS"`
	LevelBaseEP       int64  `mapstructure:"LEVEL_BASE_EP"`
	LevelStepEP       int64  `mapstructure:"LEVEL_STEP_EP"`
	LevelDiamonds     int64  `mapstructure:"LEVEL_DIAMONDS"`
	LevelDiamondsStep int64  `mapstructure:"LEVEL_DIAMONDS_STEP"`
}

var defaults = map[string]interface{}{
	"ENVIRONMENT":           "development",
	"SERVER_PORT":           "8080",
	"DATABASE_DRIVER":       "sqlite",
	"DATABASE_URL":          "pacekeeper.db",
	"REDIS_ADDR":            "",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"JWT_SECRET":            "",
	"TOKEN_LIFETIME":        "720h",
	"TELEGRAM_TOKEN":        "",
	"REPORT_TIME":           "08:00",
	"RECONCILE_TIME":        "00:05",
	"LOG_LEVEL":             "info",
	"LOG_FILE":              "",
	"DEFAULT_TIMEZONE":      "UTC",
	"ANCHOR_MORNING":        "09:00",
	"ANCHOR_MIDDAY":         "13:00",
	"ANCHOR_EVENING":        "18:00",
	"ANCHOR_NIGHT":          "21:00",
	"FALLBACK_START":        "10:00",
	"FALLBACK_SLOT_MINUTES": 60,
	"LIFE_REVIVE_COST":      50,
	"GOAL_REVIVE_COST":      100,
	"LIFE_HISTORY_DAYS":     365,
	"LEVEL_BASE_EP":         100,
	"LEVEL_STEP_EP":         50,
	"LEVEL_DIAMONDS":        10,
	"LEVEL_DIAMONDS_STEP":   0,
}

// Load reads configuration from an optional .env file in dir and from
// environment variables, which win.
func Load(dir string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if dir != "" {
		v.AddConfigPath(dir)
		v.SetConfigName(".env")
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	if dir != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks the settings every surface needs.
func (c Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if _, ok := recurrence.ParseClock(c.ReportTime); !ok {
		return fmt.Errorf("invalid REPORT_TIME %q, expected HH:MM", c.ReportTime)
	}
	if _, ok := recurrence.ParseClock(c.ReconcileTime); !ok {
		return fmt.Errorf("invalid RECONCILE_TIME %q, expected HH:MM", c.ReconcileTime)
	}
	if c.Engine.LifeReviveCost < 0 || c.Engine.GoalReviveCost < 0 {
		return fmt.Errorf("revive costs must not be negative")
	}
	if c.Engine.LevelBaseEP <= 0 || c.Engine.LevelStepEP < 0 {
		return fmt.Errorf("level curve must be positive and non-decreasing")
	}
	return nil
}

// Recurrence builds resolver options; malformed clock values keep the defaults.
func (e Engine) Recurrence() recurrence.Options {
	opts := recurrence.DefaultOptions()
	opts.Location = recurrence.LoadLocation(e.DefaultTimezone, time.UTC)
	anchors := map[recurrence.Anchor]string{
		recurrence.AnchorMorning: e.MorningAt,
		recurrence.AnchorMidday:  e.MiddayAt,
		recurrence.AnchorEvening: e.EveningAt,
		recurrence.AnchorNight:   e.NightAt,
	}
	for anchor, raw := range anchors {
		if m, ok := recurrence.ParseClock(raw); ok {
			opts.AnchorMinutes[anchor] = m
		}
	}
	if m, ok := recurrence.ParseClock(e.FallbackStartAt); ok {
		opts.FallbackStartMinute = m
	}
	if e.FallbackSlotMins > 0 {
		opts.SlotMinutes = e.FallbackSlotMins
	}
	return opts
}

func (e Engine) Curve() progression.Curve {
	return progression.Curve{
		BaseEP:      e.LevelBaseEP,
		StepEP:      e.LevelStepEP,
		Diamonds:    e.LevelDiamonds,
		DiamondStep: e.LevelDiamondsStep,
	}
}
