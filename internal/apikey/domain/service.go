package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*APIKey, error)
	FindByHash(ctx context.Context, db *gorm.DB, hash string) (*APIKey, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, userID snowflake.ID, status int) (int64, error)
}

type Service interface {
	// Create mints the user's key and returns the plain secret; it is
	// never retrievable again.
	Create(ctx context.Context, userID snowflake.ID) (*SecretResponse, error)
	Get(ctx context.Context, userID snowflake.ID) (*Response, error)
	Revoke(ctx context.Context, userID snowflake.ID) error
	// Authenticate resolves an active raw key to its owner.
	Authenticate(ctx context.Context, rawKey string) (snowflake.ID, error)
}

type Response struct {
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type SecretResponse struct {
	APIKey string `json:"api_key"`
}

var (
	ErrKeyExists  = errors.New("api_key_exists")
	ErrNotFound   = errors.New("api_key_not_found")
	ErrInvalidKey = errors.New("invalid_api_key")
)
