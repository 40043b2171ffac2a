package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pacekeeper/internal/model"
)

// CompletionRepository stores completion facts. Rows are never updated.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) WithTx(tx *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: tx}
}

func (r *CompletionRepository) Create(ctx context.Context, c *model.Completion) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create completion: %w", err)
	}
	return nil
}

// ListBetween returns completions whose local day is within [from, to].
func (r *CompletionRepository) ListBetween(ctx context.Context, userID uint, from, to string) ([]model.Completion, error) {
	var out []model.Completion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed_on >= ? AND completed_on <= ?", userID, from, to).
		Order("completed_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListForTasks returns completions of the given tasks on or after from.
func (r *CompletionRepository) ListForTasks(ctx context.Context, userID uint, taskIDs []uint, from string) ([]model.Completion, error) {
	if len(taskIDs) == 0 {
		return nil, nil
	}
	var out []model.Completion
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND task_id IN ? AND completed_on >= ?", userID, taskIDs, from).
		Order("completed_on ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// OverrideRepository stores event-driven deadline overrides.
type OverrideRepository struct {
	db *gorm.DB
}

func NewOverrideRepository(db *gorm.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

func (r *OverrideRepository) Create(ctx context.Context, o *model.EventOverride) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("create override: %w", err)
	}
	return nil
}

// ListBetween returns overrides with DueAt in [from, to).
func (r *OverrideRepository) ListBetween(ctx context.Context, userID uint, from, to time.Time) ([]model.EventOverride, error) {
	var out []model.EventOverride
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND due_at >= ? AND due_at < ?", userID, from.UTC(), to.UTC()).
		Order("due_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ReviveRepository stores forgiven streak periods.
type ReviveRepository struct {
	db *gorm.DB
}

func NewReviveRepository(db *gorm.DB) *ReviveRepository {
	return &ReviveRepository{db: db}
}

func (r *ReviveRepository) WithTx(tx *gorm.DB) *ReviveRepository {
	return &ReviveRepository{db: tx}
}

// Create fails with a unique violation when the period was already revived.
func (r *ReviveRepository) Create(ctx context.Context, rv *model.StreakRevive) error {
	if err := r.db.WithContext(ctx).Create(rv).Error; err != nil {
		return fmt.Errorf("create revive: %w", err)
	}
	return nil
}

func (r *ReviveRepository) List(ctx context.Context, userID uint, kind string, goalID uint) ([]model.StreakRevive, error) {
	var out []model.StreakRevive
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND goal_id = ?", userID, kind, goalID).
		Order("period ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
