package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"pacekeeper/internal/model"
)

// GoalRepository handles CRUD for goals.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) WithTx(tx *gorm.DB) *GoalRepository {
	return &GoalRepository{db: tx}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) FindByID(ctx context.Context, userID, goalID uint) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *GoalRepository) ListActive(ctx context.Context, userID uint) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND active = ?", userID, true).Order("id ASC").Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

// RaiseLongest stores value only when it exceeds the current mark.
func (r *GoalRepository) RaiseLongest(ctx context.Context, goalID uint, value int) error {
	err := r.db.WithContext(ctx).Model(&model.Goal{}).
		Where("id = ? AND longest_streak < ?", goalID, value).
		Update("longest_streak", value).Error
	if err != nil {
		return fmt.Errorf("raise goal longest: %w", err)
	}
	return nil
}
