package streak

import "errors"

// The three revive failures are kept distinct so callers can tell the user
// which one happened.
var (
	ErrNotEligible       = errors.New("streak: period is not eligible for revive")
	ErrAlreadyRevived    = errors.New("streak: period already revived")
	ErrInsufficientFunds = errors.New("streak: insufficient diamonds")
)

// CheckFunds fails with ErrInsufficientFunds when balance cannot cover cost.
func CheckFunds(balance, cost int64) error {
	if balance < cost {
		return ErrInsufficientFunds
	}
	return nil
}

// MergeLongest keeps a persisted longest-streak value monotonic.
func MergeLongest(stored, computed int) int {
	if computed > stored {
		return computed
	}
	return stored
}
