package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pacekeeper/internal/model"
)

// UserRepository handles CRUD for users and their progression balance.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertFromTelegram finds or creates a user based on TelegramID and refreshes the display name.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, name string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		if user.Name != name {
			if err := db.Model(&user).Update("name", name).Error; err != nil {
				return nil, fmt.Errorf("update user: %w", err)
			}
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{TelegramID: &telegramID, Name: name}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) UpdateTimezone(ctx context.Context, id uint, tz string) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("timezone", tz).Error; err != nil {
		return fmt.Errorf("update timezone: %w", err)
	}
	return nil
}

// AddProgress credits EP and diamonds in one statement.
func (r *UserRepository) AddProgress(ctx context.Context, id uint, ep, diamonds int64) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_ep": gorm.Expr("total_ep + ?", ep),
		"diamonds": gorm.Expr("diamonds + ?", diamonds),
	}).Error
	if err != nil {
		return fmt.Errorf("add progress: %w", err)
	}
	return nil
}

// DebitDiamonds subtracts amount only if the balance covers it. It returns
// false when the balance was too low.
func (r *UserRepository) DebitDiamonds(ctx context.Context, id uint, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND diamonds >= ?", id, amount).
		Update("diamonds", gorm.Expr("diamonds - ?", amount))
	if res.Error != nil {
		return false, fmt.Errorf("debit diamonds: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// RaiseLongestLifeStreak stores value only when it exceeds the current mark.
func (r *UserRepository) RaiseLongestLifeStreak(ctx context.Context, id uint, value int) error {
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND longest_life_streak < ?", id, value).
		Update("longest_life_streak", value).Error
	if err != nil {
		return fmt.Errorf("raise longest life streak: %w", err)
	}
	return nil
}
