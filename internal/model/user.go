package model

import "time"

// User is the owner of tasks, goals and the progression balance.
type User struct {
	ID                uint   `gorm:"primaryKey"`
	TelegramID        *int64 `gorm:"uniqueIndex"`
	Name              string
	Timezone          string
	TotalEP           int64 `gorm:"default:0"`
	Diamonds          int64 `gorm:"default:0"`
	LongestLifeStreak int   `gorm:"default:0"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
