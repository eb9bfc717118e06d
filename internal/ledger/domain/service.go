package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository performs balance mutations. Methods take the *gorm.DB
// handle so callers can run them inside their own transactions; the
// check-then-debit sequence is a single conditional UPDATE, never a
// read followed by a write.
type Repository interface {
	FindUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*User, error)
	Debit(ctx context.Context, db *gorm.DB, userID snowflake.ID, pool Pool, amount float64) (float64, error)
	Credit(ctx context.Context, db *gorm.DB, userID snowflake.ID, pool Pool, amount float64) (float64, error)
	ResetFreeCredits(ctx context.Context, db *gorm.DB, amount float64) (int64, error)
}

// Service is the ledger surface used outside of orchestration
// transactions.
type Service interface {
	Balances(ctx context.Context, userID snowflake.ID) (*User, error)
	Debit(ctx context.Context, userID snowflake.ID, pool Pool, amount float64) (float64, error)
	Credit(ctx context.Context, userID snowflake.ID, pool Pool, amount float64) (float64, error)
	ResetFreeCredits(ctx context.Context, amount float64) (int64, error)
}

var (
	ErrUserNotFound        = errors.New("user_not_found")
	ErrInvalidPool         = errors.New("invalid_pool")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInsufficientCredits = errors.New("insufficient_credits")
)
