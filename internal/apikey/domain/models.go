package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusInactive = 0
	StatusActive   = 1
)

// APIKey stores hashed external-API credentials, one per user.
type APIKey struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;uniqueIndex"`
	KeyHash   string       `gorm:"column:key_hash;type:text;not null;index"`
	Status    int          `gorm:"not null;default:1"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Active reports whether the key can authenticate requests.
func (k *APIKey) Active() bool { return k.Status == StatusActive }
