package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) FindUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*ledgerdomain.User, error) {
	var user ledgerdomain.User
	err := db.WithContext(ctx).Raw(
		`SELECT id, email, monthly_balance, lifetime_balance, free_credits, created_at, updated_at
		 FROM users WHERE id = ?`,
		userID,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

// Debit subtracts amount from the pool column in one conditional
// statement. Zero rows affected means the guard failed: either the
// user does not exist or the pool cannot cover the amount.
func (r *repo) Debit(ctx context.Context, db *gorm.DB, userID snowflake.ID, pool ledgerdomain.Pool, amount float64) (float64, error) {
	if !pool.Valid() {
		return 0, ledgerdomain.ErrInvalidPool
	}
	if amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}
	amount = ledgerdomain.Round1(amount)

	col := string(pool)
	res := db.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE users SET %s = ROUND(%s - ?, 1), updated_at = ? WHERE id = ? AND %s >= ?`,
			col, col, col,
		),
		amount,
		time.Now().UTC(),
		userID,
		amount,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		user, err := r.FindUser(ctx, db, userID)
		if err != nil {
			return 0, err
		}
		if user == nil {
			return 0, ledgerdomain.ErrUserNotFound
		}
		return user.Balance(pool), ledgerdomain.ErrInsufficientCredits
	}

	return r.balance(ctx, db, userID, pool)
}

func (r *repo) Credit(ctx context.Context, db *gorm.DB, userID snowflake.ID, pool ledgerdomain.Pool, amount float64) (float64, error) {
	if !pool.Valid() {
		return 0, ledgerdomain.ErrInvalidPool
	}
	if amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}
	amount = ledgerdomain.Round1(amount)

	col := string(pool)
	res := db.WithContext(ctx).Exec(
		fmt.Sprintf(
			`UPDATE users SET %s = ROUND(%s + ?, 1), updated_at = ? WHERE id = ?`,
			col, col,
		),
		amount,
		time.Now().UTC(),
		userID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ledgerdomain.ErrUserNotFound
	}

	return r.balance(ctx, db, userID, pool)
}

func (r *repo) ResetFreeCredits(ctx context.Context, db *gorm.DB, amount float64) (int64, error) {
	if amount < 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET free_credits = ?, updated_at = ?`,
		ledgerdomain.Round1(amount),
		time.Now().UTC(),
	)
	return res.RowsAffected, res.Error
}

func (r *repo) balance(ctx context.Context, db *gorm.DB, userID snowflake.ID, pool ledgerdomain.Pool) (float64, error) {
	user, err := r.FindUser(ctx, db, userID)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, ledgerdomain.ErrUserNotFound
	}
	return user.Balance(pool), nil
}
