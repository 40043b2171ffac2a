package model

import "time"

// Goal groups tasks that share a weekly quota.
type Goal struct {
	ID            uint `gorm:"primaryKey"`
	UserID        uint `gorm:"index"`
	Title         string
	StartDate     string `gorm:"size:10"`
	Active        bool   `gorm:"default:true"`
	LongestStreak int    `gorm:"default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Tasks         []Task `gorm:"foreignKey:GoalID"`
}

// Task is a recurring unit of work. Tasks are deactivated, never deleted.
type Task struct {
	ID         uint  `gorm:"primaryKey"`
	UserID     uint  `gorm:"index"`
	GoalID     *uint `gorm:"index"`
	Title      string
	EPValue    int  `gorm:"default:1"`
	Active     bool `gorm:"default:true"`
	WeekQuota  *int
	TimeAnchor string `gorm:"default:anytime"`
	OrderHint  int    `gorm:"default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// DeactivatedAt keeps history evaluation honest for retired tasks.
	DeactivatedAt *time.Time
	Schedule      *Schedule `gorm:"foreignKey:TaskID"`
}

// Schedule is the recurrence rule of a task (one per task).
type Schedule struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    uint   `gorm:"uniqueIndex"`
	Frequency string `gorm:"size:16"`
	ByWeekday []int  `gorm:"serializer:json"`
	AtTime    *string
	StartDate *string `gorm:"size:10"`
	EndDate   *string `gorm:"size:10"`
	Timezone  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventOverride replaces the schedule-derived deadline of a task on the day
// DueAt falls on.
type EventOverride struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index"`
	TaskID    uint `gorm:"index"`
	DueAt     time.Time
	CreatedAt time.Time
}
