package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("task already completed today")
	ErrTaskInactive     = errors.New("task is inactive")
	ErrInvalidInput     = errors.New("invalid input")
)

// notFound maps a missing row to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
