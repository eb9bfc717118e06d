package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
)

type repo struct{}

func Provide() batchdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, batch *batchdomain.Batch) error {
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	return db.WithContext(ctx).Exec(`
INSERT INTO batches (id, user_id, name, article_type, articles, completed_articles, pending_articles, failed_articles, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.UserID, batch.Name, batch.ArticleType,
		batch.Articles, batch.CompletedArticles, batch.PendingArticles, batch.FailedArticles,
		batch.Status, batch.CreatedAt, batch.UpdatedAt,
	).Error
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*batchdomain.Batch, error) {
	var b batchdomain.Batch
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, name, article_type, articles, completed_articles, pending_articles, failed_articles, status, created_at, updated_at
FROM batches WHERE name = ?`, name).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*batchdomain.Batch, error) {
	var b batchdomain.Batch
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, name, article_type, articles, completed_articles, pending_articles, failed_articles, status, created_at, updated_at
FROM batches WHERE id = ? AND user_id = ?`, id, userID).Scan(&b).Error
	if err != nil {
		return nil, err
	}
	if b.ID == 0 {
		return nil, nil
	}
	return &b, nil
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`
UPDATE batches
SET completed_articles = completed_articles + 1,
    pending_articles = pending_articles - 1,
    status = 1,
    updated_at = ?
WHERE id = ?`, time.Now().UTC(), id).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`
UPDATE batches
SET failed_articles = failed_articles + 1,
    pending_articles = pending_articles - 1,
    updated_at = ?
WHERE id = ?`, time.Now().UTC(), id).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]batchdomain.Batch, error) {
	var batches []batchdomain.Batch
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, name, article_type, articles, completed_articles, pending_articles, failed_articles, status, created_at, updated_at
FROM batches WHERE user_id = ? ORDER BY created_at DESC`, userID).Scan(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

