package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apikeydomain "github.com/whoneedsawriter/platform/internal/apikey/domain"
	"github.com/whoneedsawriter/platform/internal/cache"
)

const (
	apiKeyPrefix      = "wnw_"
	apiKeySecretBytes = 20
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  apikeydomain.Repository

	Cache *cache.KeyResolverCache `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  apikeydomain.Repository
	genID *snowflake.Node
	cache *cache.KeyResolverCache
}

func New(p Params) apikeydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		repo:  p.Repo,
		genID: p.GenID,
		cache: p.Cache,
	}
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID) (*apikeydomain.SecretResponse, error) {
	existing, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apikeydomain.ErrKeyExists
	}

	plain, hash, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := &apikeydomain.APIKey{
		ID:        s.genID.Generate(),
		UserID:    userID,
		KeyHash:   hash,
		Status:    apikeydomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return nil, err
	}

	s.log.Info("api key created", zap.Int64("user_id", userID.Int64()))
	return &apikeydomain.SecretResponse{APIKey: plain}, nil
}

func (s *Service) Get(ctx context.Context, userID snowflake.ID) (*apikeydomain.Response, error) {
	key, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, apikeydomain.ErrNotFound
	}
	return &apikeydomain.Response{
		Active:    key.Active(),
		CreatedAt: key.CreatedAt,
	}, nil
}

func (s *Service) Revoke(ctx context.Context, userID snowflake.ID) error {
	key, err := s.repo.FindByUser(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if key == nil {
		return apikeydomain.ErrNotFound
	}

	affected, err := s.repo.UpdateStatus(ctx, s.db, userID, apikeydomain.StatusInactive)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apikeydomain.ErrNotFound
	}
	if s.cache != nil {
		s.cache.Invalidate(key.KeyHash)
	}
	return nil
}

func (s *Service) Authenticate(ctx context.Context, rawKey string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(rawKey)
	if !strings.HasPrefix(trimmed, apiKeyPrefix) {
		return 0, apikeydomain.ErrInvalidKey
	}

	hash := apikeydomain.HashAPIKey(trimmed)
	if s.cache != nil {
		if owner, ok := s.cache.GetOwner(hash); ok {
			return owner, nil
		}
	}

	key, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil {
		return 0, err
	}
	if key == nil || !key.Active() {
		return 0, apikeydomain.ErrInvalidKey
	}
	if subtle.ConstantTimeCompare([]byte(key.KeyHash), []byte(hash)) != 1 {
		return 0, apikeydomain.ErrInvalidKey
	}
	if s.cache != nil {
		s.cache.SetOwner(hash, key.UserID)
	}
	return key.UserID, nil
}

func generateAPIKey() (string, string, error) {
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	plain := apiKeyPrefix + hex.EncodeToString(secret)
	return plain, apikeydomain.HashAPIKey(plain), nil
}
