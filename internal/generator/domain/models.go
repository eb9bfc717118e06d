package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Model identifies a generation tier. The identifier doubles as the
// per-article price tag, so unknown values are rejected rather than
// priced at a default.
type Model string

const (
	// ModelLite generates synchronously, one keyword at a time.
	ModelLite Model = "1a-lite"
	// ModelPro queues the whole batch for the bulk pipeline.
	ModelPro Model = "1a-pro"
)

const (
	liteCreditCost = 0.1
	proCreditCost  = 2.0
)

// MaxKeywordsPerBatch bounds a single submission.
const MaxKeywordsPerBatch = 10

// KeywordPlaceholder is the token a prompt template must contain; it
// is replaced with each keyword at generation time.
const KeywordPlaceholder = "{KEYWORD}"

// CreditCost returns the per-article price for the model.
func (m Model) CreditCost() (float64, error) {
	switch m {
	case ModelLite:
		return liteCreditCost, nil
	case ModelPro:
		return proCreditCost, nil
	default:
		return 0, ErrUnknownModel
	}
}

// ValidateTemplate checks that a prompt template carries the keyword
// placeholder.
func ValidateTemplate(template string) error {
	if !strings.Contains(template, KeywordPlaceholder) {
		return ErrTemplateMissingKeyword
	}
	return nil
}

// RenderPrompt substitutes the keyword into the template.
func RenderPrompt(template, keyword string) string {
	return strings.ReplaceAll(template, KeywordPlaceholder, keyword)
}

// BulkJob is one queued article handed to the bulk backend.
type BulkJob struct {
	JobID                   snowflake.ID `json:"job_id"`
	Keyword                 string       `json:"keyword"`
	Prompt                  string       `json:"prompt"`
	WordLimit               int          `json:"word_limit"`
	FeaturedImageRequired   bool         `json:"featured_image_required"`
	AdditionalImageRequired bool         `json:"additional_image_required"`
}
