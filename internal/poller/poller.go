package poller

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	"github.com/whoneedsawriter/platform/internal/clock"
	"github.com/whoneedsawriter/platform/internal/config"
	"github.com/whoneedsawriter/platform/internal/metrics"
)

// State classifies a batch's completion progress.
type State string

const (
	StateIncomplete State = "incomplete"
	StatePartial    State = "partial"
	StateFull       State = "full"
)

type Progress struct {
	State          State
	ReadyKeywords  []string
	RemainingCount int
}

// Service inspects bulk-tier jobs for out-of-band completion. Once a
// batch reaches StateFull it stays there.
type Service interface {
	Check(ctx context.Context, userID snowflake.ID, jobIDs []snowflake.ID) (*Progress, error)
	Watch(ctx context.Context, userID snowflake.ID, jobIDs []snowflake.ID, onProgress func(Progress)) (*Progress, error)
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Generation  *config.GenerationConfigHolder
	ArticleRepo articledomain.Repository
	BatchRepo   batchdomain.Repository
	Metrics     *metrics.Metrics
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	generation  *config.GenerationConfigHolder
	articleRepo articledomain.Repository
	batchRepo   batchdomain.Repository
	metrics     *metrics.Metrics
}

func New(p Params) Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("poller.service"),
		clock:       p.Clock,
		generation:  p.Generation,
		articleRepo: p.ArticleRepo,
		batchRepo:   p.BatchRepo,
		metrics:     p.Metrics,
	}
}

func (s *service) Check(ctx context.Context, userID snowflake.ID, jobIDs []snowflake.ID) (*Progress, error) {
	s.metrics.PollerPass()

	jobs, err := s.articleRepo.ListByIDs(ctx, s.db, userID, jobIDs)
	if err != nil {
		return nil, err
	}

	progress := &Progress{}
	var waiting []snowflake.ID

	for i := range jobs {
		job := &jobs[i]
		if job.Content == "" {
			waiting = append(waiting, job.ID)
			continue
		}

		if job.Status == articledomain.StatusPending {
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				affected, err := s.articleRepo.MarkComplete(ctx, tx, job.ID)
				if err != nil {
					return err
				}
				if affected == 0 {
					return nil
				}
				if err := s.batchRepo.MarkCompleted(ctx, tx, job.BatchID); err != nil {
					return err
				}
				return s.articleRepo.DeletePendingByArticle(ctx, tx, job.ID)
			})
			if err != nil {
				return nil, err
			}
			s.metrics.ArticleGenerated("godmode")
		}
		progress.ReadyKeywords = append(progress.ReadyKeywords, job.Keyword)
	}

	if err := s.articleRepo.IncrementCronRequest(ctx, s.db, waiting); err != nil {
		return nil, err
	}

	progress.RemainingCount = len(jobIDs) - len(progress.ReadyKeywords)
	switch {
	case progress.RemainingCount == 0:
		progress.State = StateFull
	case len(progress.ReadyKeywords) == 0:
		progress.State = StateIncomplete
	default:
		progress.State = StatePartial
	}
	return progress, nil
}

func (s *service) Watch(ctx context.Context, userID snowflake.ID, jobIDs []snowflake.ID, onProgress func(Progress)) (*Progress, error) {
	start := s.clock.Now()

	for {
		progress, err := s.Check(ctx, userID, jobIDs)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(*progress)
		}

		if progress.State == StateFull {
			return progress, nil
		}

		// interval and timeout can be hot-reloaded mid-watch
		cfg := s.generation.Get()
		if s.clock.Now().Sub(start) >= cfg.PollTimeout {
			s.log.Warn("poll window expired",
				zap.Int("remaining", progress.RemainingCount),
				zap.String("state", string(progress.State)),
			)
			return progress, nil
		}

		select {
		case <-ctx.Done():
			return progress, ctx.Err()
		case <-s.clock.After(cfg.PollInterval):
		}
	}
}

var Module = fx.Module("poller.service",
	fx.Provide(New),
)
