package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = 0
	StatusComplete = 1
)

// ArticleJob is one keyword's generation job. Content stays empty and
// status stays 0 until the article body arrives, either synchronously
// or via the bulk pipeline.
type ArticleJob struct {
	ID                      snowflake.ID `gorm:"primaryKey"`
	UserID                  snowflake.ID `gorm:"column:user_id;not null;index"`
	BatchID                 snowflake.ID `gorm:"column:batch_id;not null;index"`
	Keyword                 string       `gorm:"type:text;not null"`
	Content                 string       `gorm:"type:text"`
	Status                  int          `gorm:"not null;default:0"`
	WordLimit               int          `gorm:"column:word_limit;not null"`
	FeaturedImageRequired   bool         `gorm:"column:featured_image_required;not null;default:false"`
	AdditionalImageRequired bool         `gorm:"column:additional_image_required;not null;default:false"`
	Comment                 string       `gorm:"type:text"`
	AIScore                 *float64     `gorm:"column:ai_score"`
	CreatedAt               time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt               time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ArticleJob) TableName() string { return "articles" }

// PendingArticleJob tracks a bulk-tier job awaiting out-of-band
// completion. CronRequest counts poller passes that saw it unfinished.
type PendingArticleJob struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	UserID      snowflake.ID `gorm:"column:user_id;not null;index"`
	BatchID     snowflake.ID `gorm:"column:batch_id;not null;index"`
	ArticleID   snowflake.ID `gorm:"column:article_id;not null;uniqueIndex"`
	Keyword     string       `gorm:"type:text;not null"`
	CronRequest int          `gorm:"column:cron_request;not null;default:0"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PendingArticleJob) TableName() string { return "pending_articles" }

// Complete reports whether the job carries a generated body.
func (j *ArticleJob) Complete() bool {
	return j.Status == StatusComplete && j.Content != ""
}

// Ready reports whether a body has arrived. Out-of-band workers write
// content only, so the status flag may lag behind.
func (j *ArticleJob) Ready() bool {
	return j.Content != ""
}
