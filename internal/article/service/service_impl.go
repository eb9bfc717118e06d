package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo articledomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo articledomain.Repository
}

func New(p Params) articledomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("article.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetJob(ctx context.Context, userID, jobID snowflake.ID) (*articledomain.ArticleJob, error) {
	job, err := s.repo.FindByID(ctx, s.db, userID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, articledomain.ErrNotFound
	}
	return job, nil
}

func (s *Service) ListByBatch(ctx context.Context, userID, batchID snowflake.ID) ([]articledomain.ArticleJob, error) {
	return s.repo.ListByBatch(ctx, s.db, userID, batchID)
}

func (s *Service) DeleteJob(ctx context.Context, userID, jobID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(ctx, tx, userID, jobID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return articledomain.ErrNotFound
		}
		return s.repo.DeletePendingByArticle(ctx, tx, jobID)
	})
}

func (s *Service) UpdateContent(ctx context.Context, req articledomain.UpdateContentRequest) error {
	if req.Content == "" {
		return articledomain.ErrEmptyContent
	}
	affected, err := s.repo.UpdateContent(ctx, s.db, req.UserID, req.JobID, req.Content, req.AIScore)
	if err != nil {
		return err
	}
	if affected == 0 {
		return articledomain.ErrNotFound
	}
	return nil
}
