package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	"github.com/whoneedsawriter/platform/pkg/db"
)

// maxNameAttempts caps the collision-suffix loop so a pathological
// namespace cannot spin forever.
const maxNameAttempts = 1000

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  batchdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  batchdomain.Repository
}

func New(p Params) batchdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("batch.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req batchdomain.CreateRequest) (*batchdomain.Batch, error) {
	if req.ArticleCount <= 0 {
		return nil, batchdomain.ErrInvalidArticleCount
	}

	base := req.Name
	if base == "" {
		base = fmt.Sprintf("Batch_%d", 1000+rand.Intn(9000))
	}

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s%d", base, attempt)
		}

		existing, err := s.repo.FindByName(ctx, s.db, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		batch := &batchdomain.Batch{
			ID:              s.genID.Generate(),
			UserID:          req.UserID,
			Name:            name,
			ArticleType:     req.ArticleType,
			Articles:        req.ArticleCount,
			PendingArticles: req.ArticleCount,
		}

		if err := s.repo.Insert(ctx, s.db, batch); err != nil {
			// Another request won the name between the lookup and the
			// insert. The unique index catches it; try the next suffix.
			if db.IsDuplicateKeyErr(err) {
				continue
			}
			return nil, err
		}

		s.log.Info("batch created",
			zap.Int64("batch_id", batch.ID.Int64()),
			zap.String("name", batch.Name),
			zap.Int("articles", batch.Articles),
		)
		return batch, nil
	}

	return nil, batchdomain.ErrNameExhausted
}

func (s *Service) GetName(ctx context.Context, userID, batchID snowflake.ID) (string, error) {
	batch, err := s.repo.FindByID(ctx, s.db, userID, batchID)
	if err != nil {
		return "", err
	}
	if batch == nil {
		return "", batchdomain.ErrNotFound
	}
	return batch.Name, nil
}

func (s *Service) ListSummaries(ctx context.Context, userID snowflake.ID) ([]batchdomain.Summary, error) {
	batches, err := s.repo.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]batchdomain.Summary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, batchdomain.Summary{
			ID:                b.ID,
			Name:              b.Name,
			ArticleType:       b.ArticleType,
			Articles:          b.Articles,
			CompletedArticles: b.CompletedArticles,
			PendingArticles:   b.PendingArticles,
			FailedArticles:    b.FailedArticles,
			CreatedAt:         b.CreatedAt,
		})
	}
	return summaries, nil
}
