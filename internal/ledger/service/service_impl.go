package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo ledgerdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo ledgerdomain.Repository
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("ledger.service"),
		repo: p.Repo,
	}
}

func (s *Service) Balances(ctx context.Context, userID snowflake.ID) (*ledgerdomain.User, error) {
	user, err := s.repo.FindUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ledgerdomain.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) Debit(ctx context.Context, userID snowflake.ID, pool ledgerdomain.Pool, amount float64) (float64, error) {
	balance, err := s.repo.Debit(ctx, s.db, userID, pool, amount)
	if err != nil {
		return balance, err
	}
	s.log.Debug("credits debited",
		zap.String("user_id", userID.String()),
		zap.String("pool", string(pool)),
		zap.Float64("amount", amount),
		zap.Float64("balance", balance),
	)
	return balance, nil
}

func (s *Service) Credit(ctx context.Context, userID snowflake.ID, pool ledgerdomain.Pool, amount float64) (float64, error) {
	return s.repo.Credit(ctx, s.db, userID, pool, amount)
}

func (s *Service) ResetFreeCredits(ctx context.Context, amount float64) (int64, error) {
	affected, err := s.repo.ResetFreeCredits(ctx, s.db, amount)
	if err != nil {
		return 0, err
	}
	s.log.Info("free credits reset", zap.Int64("users", affected), zap.Float64("amount", amount))
	return affected, nil
}
