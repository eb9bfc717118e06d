package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Batch groups one submission's keyword jobs under a human-readable
// name. Counters are mutated by the orchestrator and poller as jobs
// resolve; the registry never changes them on its own.
type Batch struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	UserID            snowflake.ID `gorm:"column:user_id;not null;index"`
	Name              string       `gorm:"type:text;not null;uniqueIndex"`
	ArticleType       string       `gorm:"column:article_type;type:text;not null"`
	Articles          int          `gorm:"not null"`
	CompletedArticles int          `gorm:"column:completed_articles;not null;default:0"`
	PendingArticles   int          `gorm:"column:pending_articles;not null;default:0"`
	FailedArticles    int          `gorm:"column:failed_articles;not null;default:0"`
	Status            int          `gorm:"not null;default:0"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Batch) TableName() string { return "batches" }

// Summary is the batch listing row returned to dashboards.
type Summary struct {
	ID                snowflake.ID `json:"id"`
	Name              string       `json:"name"`
	ArticleType       string       `json:"article_type"`
	Articles          int          `json:"articles"`
	CompletedArticles int          `json:"completed_articles"`
	PendingArticles   int          `json:"pending_articles"`
	FailedArticles    int          `json:"failed_articles"`
	CreatedAt         time.Time    `json:"created_at"`
}
