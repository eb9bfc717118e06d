package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Pool names one of the independently tracked credit balances on a user.
type Pool string

const (
	// PoolMonthly holds subscription credits, reset each billing month.
	PoolMonthly Pool = "monthly_balance"
	// PoolLifetime holds purchased one-time credits, only ever consumed.
	PoolLifetime Pool = "lifetime_balance"
	// PoolFree holds the free-tier allotment, reset on a schedule.
	PoolFree Pool = "free_credits"
)

// Valid reports whether p names a known credit pool.
func (p Pool) Valid() bool {
	switch p {
	case PoolMonthly, PoolLifetime, PoolFree:
		return true
	default:
		return false
	}
}

// User owns all credit pools. Balances carry one fractional digit;
// every arithmetic result is rounded back to that precision.
type User struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Email           string       `gorm:"type:text;not null;uniqueIndex"`
	MonthlyBalance  float64      `gorm:"column:monthly_balance;not null;default:0"`
	LifetimeBalance float64      `gorm:"column:lifetime_balance;not null;default:0"`
	FreeCredits     float64      `gorm:"column:free_credits;not null;default:0"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// Balance returns the amount held in the given pool.
func (u *User) Balance(pool Pool) float64 {
	switch pool {
	case PoolMonthly:
		return u.MonthlyBalance
	case PoolLifetime:
		return u.LifetimeBalance
	case PoolFree:
		return u.FreeCredits
	default:
		return 0
	}
}

// PickPool selects the pool a debit should come from when the caller
// does not name one: monthly first, then lifetime, then free.
func (u *User) PickPool() Pool {
	if u.MonthlyBalance > 0 {
		return PoolMonthly
	}
	if u.LifetimeBalance > 0 {
		return PoolLifetime
	}
	return PoolFree
}

// Round1 rounds v to one decimal place, the ledger's credit precision.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
