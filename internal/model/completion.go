package model

import "time"

// Completion is an immutable record of a task done on a user-local day.
type Completion struct {
	ID          uint      `gorm:"primaryKey"`
	TaskID      uint      `gorm:"uniqueIndex:idx_completion_day"`
	UserID      uint      `gorm:"uniqueIndex:idx_completion_day;index"`
	CompletedOn string    `gorm:"size:10;uniqueIndex:idx_completion_day;index"`
	CompletedAt time.Time
	EPAwarded   int
	CreatedAt   time.Time
}

const (
	ReviveKindLife = "life"
	ReviveKindGoal = "goal"
)

// StreakRevive marks a missed day or goal period as forgiven.
type StreakRevive struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_revive_period"`
	Kind      string `gorm:"size:8;uniqueIndex:idx_revive_period"`
	GoalID    uint   `gorm:"uniqueIndex:idx_revive_period"`
	Period    string `gorm:"size:10;uniqueIndex:idx_revive_period"`
	Cost      int64
	CreatedAt time.Time
}
