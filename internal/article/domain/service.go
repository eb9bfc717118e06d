package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, job *ArticleJob) error
	// FillContent sets content and status on a job that has no body
	// yet. Returns the number of rows changed so callers can tell an
	// idempotent no-op from a real completion.
	FillContent(ctx context.Context, db *gorm.DB, id snowflake.ID, content string) (int64, error)
	// MarkComplete flips status on a job whose content has arrived.
	// Returns rows changed; zero means the job was already marked or
	// still has no body.
	MarkComplete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*ArticleJob, error)
	ListByBatch(ctx context.Context, db *gorm.DB, userID, batchID snowflake.ID) ([]ArticleJob, error)
	ListByIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, ids []snowflake.ID) ([]ArticleJob, error)
	Delete(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (int64, error)
	UpdateContent(ctx context.Context, db *gorm.DB, userID, id snowflake.ID, content string, aiScore *float64) (int64, error)

	InsertPending(ctx context.Context, db *gorm.DB, pending *PendingArticleJob) error
	IncrementCronRequest(ctx context.Context, db *gorm.DB, articleIDs []snowflake.ID) error
	DeletePendingByArticle(ctx context.Context, db *gorm.DB, articleID snowflake.ID) error
}

type UpdateContentRequest struct {
	UserID  snowflake.ID
	JobID   snowflake.ID
	Content string
	AIScore *float64
}

type Service interface {
	GetJob(ctx context.Context, userID, jobID snowflake.ID) (*ArticleJob, error)
	ListByBatch(ctx context.Context, userID, batchID snowflake.ID) ([]ArticleJob, error)
	DeleteJob(ctx context.Context, userID, jobID snowflake.ID) error
	UpdateContent(ctx context.Context, req UpdateContentRequest) error
}

var (
	ErrNotFound     = errors.New("article_not_found")
	ErrEmptyKeyword = errors.New("empty_keyword")
	ErrEmptyContent = errors.New("empty_content")
)
