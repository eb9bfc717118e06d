package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	"github.com/whoneedsawriter/platform/internal/config"
	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
	"github.com/whoneedsawriter/platform/internal/metrics"
)

const (
	defaultWordLimit = 2000

	// externalCreditCost is the flat price of a public API task.
	externalCreditCost = 1.0
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Generation  *config.GenerationConfigHolder
	Backend     generatordomain.Backend
	BatchSvc    batchdomain.Service
	BatchRepo   batchdomain.Repository
	ArticleRepo articledomain.Repository
	LedgerRepo  ledgerdomain.Repository
	Metrics     *metrics.Metrics
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	generation  *config.GenerationConfigHolder
	backend     generatordomain.Backend
	batchSvc    batchdomain.Service
	batchRepo   batchdomain.Repository
	articleRepo articledomain.Repository
	ledgerRepo  ledgerdomain.Repository
	metrics     *metrics.Metrics
}

func New(p Params) generatordomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("generator.service"),
		genID:       p.GenID,
		generation:  p.Generation,
		backend:     p.Backend,
		batchSvc:    p.BatchSvc,
		batchRepo:   p.BatchRepo,
		articleRepo: p.ArticleRepo,
		ledgerRepo:  p.LedgerRepo,
		metrics:     p.Metrics,
	}
}

// validate runs every check that must pass before any persistence or
// debit happens. It returns the resolved template, per-article cost
// and the pool the whole submission will draw from.
func (s *Service) validate(ctx context.Context, req *generatordomain.SubmitRequest) (string, float64, ledgerdomain.Pool, error) {
	if len(req.Keywords) == 0 {
		return "", 0, "", generatordomain.ErrEmptyKeywordList
	}
	if len(req.Keywords) > generatordomain.MaxKeywordsPerBatch {
		return "", 0, "", generatordomain.ErrBatchTooLarge
	}

	cost, err := req.Model.CreditCost()
	if err != nil {
		return "", 0, "", err
	}

	template := req.Template
	if template == "" {
		template = s.generation.Get().DefaultPromptTemplate
	}
	if err := generatordomain.ValidateTemplate(template); err != nil {
		return "", 0, "", err
	}

	user, err := s.ledgerRepo.FindUser(ctx, s.db, req.UserID)
	if err != nil {
		return "", 0, "", err
	}
	if user == nil {
		return "", 0, "", ledgerdomain.ErrUserNotFound
	}

	pool := user.PickPool()
	total := ledgerdomain.Round1(cost * float64(len(req.Keywords)))
	if user.Balance(pool) < total {
		return "", 0, "", ledgerdomain.ErrInsufficientCredits
	}

	if req.WordLimit <= 0 {
		req.WordLimit = defaultWordLimit
	}
	// empty special instructions collapse to "." so downstream
	// consumers always see a non-empty comment
	if strings.TrimSpace(req.SpecialRequests) == "" {
		req.SpecialRequests = "."
	}
	return template, cost, pool, nil
}

func (s *Service) SubmitLite(ctx context.Context, req generatordomain.SubmitRequest) (*generatordomain.LiteResult, error) {
	template, cost, pool, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	batch, err := s.batchSvc.Create(ctx, batchdomain.CreateRequest{
		UserID:       req.UserID,
		Name:         req.BatchName,
		ArticleType:  req.ArticleType,
		ArticleCount: len(req.Keywords),
	})
	if err != nil {
		return nil, err
	}

	result := &generatordomain.LiteResult{
		BatchID:   batch.ID,
		BatchName: batch.Name,
	}

	for _, keyword := range req.Keywords {
		content, genErr := s.backend.GenerateSync(ctx, generatordomain.RenderPrompt(template, keyword))
		if genErr == nil {
			genErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				job := &articledomain.ArticleJob{
					ID:                      s.genID.Generate(),
					UserID:                  req.UserID,
					BatchID:                 batch.ID,
					Keyword:                 keyword,
					Content:                 content,
					Status:                  articledomain.StatusComplete,
					WordLimit:               req.WordLimit,
					FeaturedImageRequired:   req.FeaturedImageRequired,
					AdditionalImageRequired: req.AdditionalImageRequired,
					Comment:                 req.SpecialRequests,
				}
				if err := s.articleRepo.Insert(ctx, tx, job); err != nil {
					return err
				}
				if err := s.batchRepo.MarkCompleted(ctx, tx, batch.ID); err != nil {
					return err
				}
				_, err := s.ledgerRepo.Debit(ctx, tx, req.UserID, pool, cost)
				return err
			})
		}

		if genErr != nil {
			s.log.Warn("keyword generation failed",
				zap.String("keyword", keyword),
				zap.Int64("batch_id", batch.ID.Int64()),
				zap.Error(genErr),
			)
			if err := s.batchRepo.MarkFailed(ctx, s.db, batch.ID); err != nil {
				return nil, err
			}
			s.metrics.GenerationFailed("lite")
			result.FailedKeywords = append(result.FailedKeywords, keyword)
		} else {
			s.metrics.ArticleGenerated("lite")
			s.metrics.CreditsDebited(string(pool), cost)
			result.CompletedKeywords = append(result.CompletedKeywords, keyword)
			result.CreditsSpent = ledgerdomain.Round1(result.CreditsSpent + cost)
		}

		if req.OnProgress != nil {
			req.OnProgress(keyword, genErr == nil)
		}
	}

	s.log.Info("lite batch finished",
		zap.Int64("batch_id", batch.ID.Int64()),
		zap.Int("completed", len(result.CompletedKeywords)),
		zap.Int("failed", len(result.FailedKeywords)),
	)
	return result, nil
}

func (s *Service) SubmitGodMode(ctx context.Context, req generatordomain.SubmitRequest) (*generatordomain.GodModeResult, error) {
	template, cost, pool, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}

	batch, err := s.batchSvc.Create(ctx, batchdomain.CreateRequest{
		UserID:       req.UserID,
		Name:         req.BatchName,
		ArticleType:  req.ArticleType,
		ArticleCount: len(req.Keywords),
	})
	if err != nil {
		return nil, err
	}

	total := ledgerdomain.Round1(cost * float64(len(req.Keywords)))
	bulkJobs := make([]generatordomain.BulkJob, 0, len(req.Keywords))
	jobIDs := make([]snowflake.ID, 0, len(req.Keywords))

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, keyword := range req.Keywords {
			job := &articledomain.ArticleJob{
				ID:                      s.genID.Generate(),
				UserID:                  req.UserID,
				BatchID:                 batch.ID,
				Keyword:                 keyword,
				WordLimit:               req.WordLimit,
				FeaturedImageRequired:   req.FeaturedImageRequired,
				AdditionalImageRequired: req.AdditionalImageRequired,
				Comment:                 req.SpecialRequests,
			}
			if err := s.articleRepo.Insert(ctx, tx, job); err != nil {
				return err
			}
			if err := s.articleRepo.InsertPending(ctx, tx, &articledomain.PendingArticleJob{
				ID:        s.genID.Generate(),
				UserID:    req.UserID,
				BatchID:   batch.ID,
				ArticleID: job.ID,
				Keyword:   keyword,
			}); err != nil {
				return err
			}

			jobIDs = append(jobIDs, job.ID)
			bulkJobs = append(bulkJobs, generatordomain.BulkJob{
				JobID:                   job.ID,
				Keyword:                 keyword,
				Prompt:                  generatordomain.RenderPrompt(template, keyword),
				WordLimit:               req.WordLimit,
				FeaturedImageRequired:   req.FeaturedImageRequired,
				AdditionalImageRequired: req.AdditionalImageRequired,
			})
		}

		_, err := s.ledgerRepo.Debit(ctx, tx, req.UserID, pool, total)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CreditsDebited(string(pool), total)

	if err := s.backend.GenerateBulk(ctx, bulkJobs); err != nil {
		s.log.Error("bulk submission failed, refunding",
			zap.Int64("batch_id", batch.ID.Int64()),
			zap.Float64("amount", total),
			zap.Error(err),
		)
		s.metrics.GenerationFailed("godmode")

		refundErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.ledgerRepo.Credit(ctx, tx, req.UserID, pool, total); err != nil {
				return err
			}
			for range req.Keywords {
				if err := s.batchRepo.MarkFailed(ctx, tx, batch.ID); err != nil {
					return err
				}
			}
			return nil
		})
		if refundErr != nil {
			s.log.Error("refund failed", zap.Int64("batch_id", batch.ID.Int64()), zap.Error(refundErr))
			return nil, refundErr
		}
		return nil, generatordomain.ErrUpstreamGeneration
	}

	s.log.Info("godmode batch queued",
		zap.Int64("batch_id", batch.ID.Int64()),
		zap.Int("jobs", len(jobIDs)),
		zap.Float64("credits", total),
	)
	return &generatordomain.GodModeResult{
		BatchID:      batch.ID,
		BatchName:    batch.Name,
		JobIDs:       jobIDs,
		CreditsSpent: total,
	}, nil
}

func (s *Service) SubmitExternal(ctx context.Context, req generatordomain.ExternalRequest) (*generatordomain.ExternalResult, error) {
	if req.Keyword == "" {
		return nil, articledomain.ErrEmptyKeyword
	}

	user, err := s.ledgerRepo.FindUser(ctx, s.db, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ledgerdomain.ErrUserNotFound
	}
	if user.LifetimeBalance <= 0 {
		return nil, ledgerdomain.ErrInsufficientCredits
	}

	if req.WordLimit <= 0 {
		req.WordLimit = defaultWordLimit
	}

	batch, err := s.batchSvc.Create(ctx, batchdomain.CreateRequest{
		UserID:       req.UserID,
		ArticleType:  "api",
		ArticleCount: 1,
	})
	if err != nil {
		return nil, err
	}

	jobID := s.genID.Generate()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		job := &articledomain.ArticleJob{
			ID:                      jobID,
			UserID:                  req.UserID,
			BatchID:                 batch.ID,
			Keyword:                 req.Keyword,
			WordLimit:               req.WordLimit,
			FeaturedImageRequired:   req.FeaturedImageRequired,
			AdditionalImageRequired: req.AdditionalImageRequired,
		}
		if err := s.articleRepo.Insert(ctx, tx, job); err != nil {
			return err
		}
		if err := s.articleRepo.InsertPending(ctx, tx, &articledomain.PendingArticleJob{
			ID:        s.genID.Generate(),
			UserID:    req.UserID,
			BatchID:   batch.ID,
			ArticleID: jobID,
			Keyword:   req.Keyword,
		}); err != nil {
			return err
		}
		_, err := s.ledgerRepo.Debit(ctx, tx, req.UserID, ledgerdomain.PoolLifetime, externalCreditCost)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CreditsDebited(string(ledgerdomain.PoolLifetime), externalCreditCost)

	s.log.Info("external task queued",
		zap.Int64("batch_id", batch.ID.Int64()),
		zap.Int64("job_id", jobID.Int64()),
	)
	return &generatordomain.ExternalResult{
		BatchID:   batch.ID,
		BatchName: batch.Name,
		JobID:     jobID,
	}, nil
}
