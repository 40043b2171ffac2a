package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pacekeeper/internal/model"
)

// TaskRepository handles CRUD for tasks and their schedules.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

// Create inserts the task together with its schedule, if set.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListActive returns the user's active tasks with schedules, in stable order.
func (r *TaskRepository) ListActive(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Schedule").
		Where("user_id = ? AND active = ?", userID, true).
		Order("order_hint ASC, created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListByGoal returns every task of a goal, active or not.
func (r *TaskRepository) ListByGoal(ctx context.Context, userID, goalID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND goal_id = ?", userID, goalID).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Preload("Schedule").
		Where("user_id = ? AND id = ?", userID, taskID).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListAll returns every task of the user, including deactivated ones.
func (r *TaskRepository) ListAll(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Preload("Schedule").
		Where("user_id = ?", userID).
		Order("order_hint ASC, created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Deactivate soft-deletes a task; completions keep referencing it.
func (r *TaskRepository) Deactivate(ctx context.Context, userID, taskID uint, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ? AND active = ?", userID, taskID, true).
		Updates(map[string]interface{}{"active": false, "deactivated_at": at.UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("deactivate task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
