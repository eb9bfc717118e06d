package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Backend produces article bodies. GenerateSync blocks for one
// article; GenerateBulk hands a whole batch to an out-of-band pipeline
// that fills content later.
type Backend interface {
	GenerateSync(ctx context.Context, prompt string) (string, error)
	GenerateBulk(ctx context.Context, jobs []BulkJob) error
}

type SubmitRequest struct {
	UserID                  snowflake.ID
	BatchName               string // optional; auto-generated when empty
	ArticleType             string
	Model                   Model
	Keywords                []string
	Template                string // empty means the configured default
	SpecialRequests         string // stored on each job as its comment
	WordLimit               int
	FeaturedImageRequired   bool
	AdditionalImageRequired bool

	// OnProgress, when set, is invoked after each keyword on the fast
	// tier with the keyword and whether it completed.
	OnProgress func(keyword string, completed bool)
}

type LiteResult struct {
	BatchID           snowflake.ID
	BatchName         string
	CompletedKeywords []string
	FailedKeywords    []string
	CreditsSpent      float64
}

type GodModeResult struct {
	BatchID      snowflake.ID
	BatchName    string
	JobIDs       []snowflake.ID
	CreditsSpent float64
}

// ExternalRequest is a single-keyword submission from the public API.
// It is priced at a flat one credit against the lifetime pool.
type ExternalRequest struct {
	UserID                  snowflake.ID
	Keyword                 string
	WordLimit               int
	FeaturedImageRequired   bool
	AdditionalImageRequired bool
}

type ExternalResult struct {
	BatchID   snowflake.ID
	BatchName string
	JobID     snowflake.ID
}

type Service interface {
	SubmitLite(ctx context.Context, req SubmitRequest) (*LiteResult, error)
	SubmitGodMode(ctx context.Context, req SubmitRequest) (*GodModeResult, error)
	SubmitExternal(ctx context.Context, req ExternalRequest) (*ExternalResult, error)
}

var (
	ErrUnknownModel           = errors.New("unknown_model")
	ErrEmptyKeywordList       = errors.New("empty_keyword_list")
	ErrBatchTooLarge          = errors.New("batch_too_large")
	ErrTemplateMissingKeyword = errors.New("template_missing_keyword")
	ErrUpstreamGeneration     = errors.New("upstream_generation_failed")
)
