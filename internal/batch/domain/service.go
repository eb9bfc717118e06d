package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, batch *Batch) error
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Batch, error)
	FindByID(ctx context.Context, db *gorm.DB, userID, id snowflake.ID) (*Batch, error)
	// MarkCompleted moves one article from pending to completed and
	// flips status to 1.
	MarkCompleted(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// MarkFailed moves one article from pending to failed.
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Batch, error)
}

type CreateRequest struct {
	UserID       snowflake.ID
	Name         string // optional; auto-generated when empty
	ArticleType  string
	ArticleCount int
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Batch, error)
	GetName(ctx context.Context, userID, batchID snowflake.ID) (string, error)
	ListSummaries(ctx context.Context, userID snowflake.ID) ([]Summary, error)
}

var (
	ErrInvalidArticleCount = errors.New("invalid_article_count")
	ErrNotFound            = errors.New("batch_not_found")
	ErrNameExhausted       = errors.New("batch_name_exhausted")
)
