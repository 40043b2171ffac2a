package repository

import "gorm.io/gorm"

// Set bundles every repository over one connection or transaction.
type Set struct {
	DB          *gorm.DB
	Users       *UserRepository
	Goals       *GoalRepository
	Tasks       *TaskRepository
	Completions *CompletionRepository
	Overrides   *OverrideRepository
	Revives     *ReviveRepository
}

func NewSet(db *gorm.DB) *Set {
	return &Set{
		DB:          db,
		Users:       NewUserRepository(db),
		Goals:       NewGoalRepository(db),
		Tasks:       NewTaskRepository(db),
		Completions: NewCompletionRepository(db),
		Overrides:   NewOverrideRepository(db),
		Revives:     NewReviveRepository(db),
	}
}

// WithTx returns a set whose repositories all run inside tx.
func (s *Set) WithTx(tx *gorm.DB) *Set {
	return NewSet(tx)
}
