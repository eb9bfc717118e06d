package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/whoneedsawriter/platform/internal/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

// Session is a server-side login session. The raw bearer token is
// never stored, only its hash.
type Session struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	TokenHash string       `gorm:"column:token_hash;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "sessions" }

// Resolver maps a bearer session token to the owning user. Login and
// session issuance live outside this service.
type Resolver interface {
	Resolve(ctx context.Context, token string) (snowflake.ID, error)
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type resolver struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

func NewResolver(p Params) Resolver {
	return &resolver{
		db:    p.DB,
		log:   p.Log.Named("auth.resolver"),
		clock: p.Clock,
	}
}

func (r *resolver) Resolve(ctx context.Context, token string) (snowflake.ID, error) {
	if token == "" {
		return 0, ErrUnauthorized
	}

	var session Session
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, user_id, token_hash, expires_at, created_at
		 FROM sessions WHERE token_hash = ?`,
		HashToken(token),
	).Scan(&session).Error
	if err != nil {
		return 0, err
	}
	if session.ID == 0 || r.clock.Now().After(session.ExpiresAt) {
		return 0, ErrUnauthorized
	}
	return session.UserID, nil
}

// HashToken hashes a session token the way session issuance stores it.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var Module = fx.Module("auth.resolver",
	fx.Provide(NewResolver),
)
