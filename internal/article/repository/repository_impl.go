package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
)

type repo struct{}

func Provide() articledomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *articledomain.ArticleJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	return db.WithContext(ctx).Exec(`
INSERT INTO articles (id, user_id, batch_id, keyword, content, status, word_limit, featured_image_required, additional_image_required, comment, ai_score, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.BatchID, job.Keyword, job.Content, job.Status,
		job.WordLimit, job.FeaturedImageRequired, job.AdditionalImageRequired,
		job.Comment, job.AIScore, job.CreatedAt, job.UpdatedAt,
	).Error
}

func (r *repo) FillContent(ctx context.Context, db *gorm.DB, id snowflake.ID, content string) (int64, error) {
	res := db.WithContext(ctx).Exec(`
UPDATE articles
SET content = ?, status = ?, updated_at = ?
WHERE id = ? AND (content IS NULL OR content = '')`,
		content, articledomain.StatusComplete, time.Now().UTC(), id)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkComplete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`
UPDATE articles
SET status = ?, updated_at = ?
WHERE id = ? AND status = ? AND content IS NOT NULL AND content != ''`,
		articledomain.StatusComplete, time.Now().UTC(), id, articledomain.StatusPending)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*articledomain.ArticleJob, error) {
	var job articledomain.ArticleJob
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, batch_id, keyword, content, status, word_limit, featured_image_required, additional_image_required, comment, ai_score, created_at, updated_at
FROM articles WHERE id = ? AND user_id = ?`, id, userID).Scan(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) ListByBatch(ctx context.Context, db *gorm.DB, userID, batchID snowflake.ID) ([]articledomain.ArticleJob, error) {
	var jobs []articledomain.ArticleJob
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, batch_id, keyword, content, status, word_limit, featured_image_required, additional_image_required, comment, ai_score, created_at, updated_at
FROM articles WHERE batch_id = ? AND user_id = ? ORDER BY created_at ASC`, batchID, userID).Scan(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) ListByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]articledomain.ArticleJob, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var jobs []articledomain.ArticleJob
	err := db.WithContext(ctx).Raw(`
SELECT id, user_id, batch_id, keyword, content, status, word_limit, featured_image_required, additional_image_required, comment, ai_score, created_at, updated_at
FROM articles WHERE user_id = ? AND id IN ?`, userID, ids).Scan(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM articles WHERE id = ? AND user_id = ?`, id, userID)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateContent(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, content string, aiScore *float64) (int64, error) {
	res := db.WithContext(ctx).Exec(`
UPDATE articles
SET content = ?, ai_score = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		content, aiScore, time.Now().UTC(), id, userID)
	return res.RowsAffected, res.Error
}

func (r *repo) InsertPending(ctx context.Context, db *gorm.DB, pending *articledomain.PendingArticleJob) error {
	now := time.Now().UTC()
	pending.CreatedAt = now
	pending.UpdatedAt = now
	return db.WithContext(ctx).Exec(`
INSERT INTO pending_articles (id, user_id, batch_id, article_id, keyword, cron_request, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pending.ID, pending.UserID, pending.BatchID, pending.ArticleID,
		pending.Keyword, pending.CronRequest, pending.CreatedAt, pending.UpdatedAt,
	).Error
}

func (r *repo) IncrementCronRequest(ctx context.Context, db *gorm.DB, articleIDs []snowflake.ID) error {
	if len(articleIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(`
UPDATE pending_articles
SET cron_request = cron_request + 1, updated_at = ?
WHERE article_id IN ?`, time.Now().UTC(), articleIDs).Error
}

func (r *repo) DeletePendingByArticle(ctx context.Context, db *gorm.DB, articleID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM pending_articles WHERE article_id = ?`, articleID).Error
}
