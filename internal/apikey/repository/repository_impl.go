package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	apikeydomain "github.com/whoneedsawriter/platform/internal/apikey/domain"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO api_keys (id, user_id, key_hash, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key.ID,
		key.UserID,
		key.KeyHash,
		key.Status,
		key.CreatedAt,
		key.UpdatedAt,
	).Error
}

func (r *repo) FindByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, key_hash, status, created_at, updated_at
		 FROM api_keys WHERE user_id = ?`,
		userID,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, hash string) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, key_hash, status, created_at, updated_at
		 FROM api_keys WHERE key_hash = ?`,
		hash,
	).Scan(&key).Error
	if err != nil {
		return nil, err
	}
	if key.ID == 0 {
		return nil, nil
	}
	return &key, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, userID snowflake.ID, status int) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE api_keys SET status = ?, updated_at = ? WHERE user_id = ?`,
		status,
		time.Now().UTC(),
		userID,
	)
	return res.RowsAffected, res.Error
}
