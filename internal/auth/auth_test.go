package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/whoneedsawriter/platform/internal/clock"
)

func setupResolver(t *testing.T) (Resolver, *gorm.DB, *snowflake.Node, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := NewResolver(Params{DB: db, Log: zap.NewNop(), Clock: fake})
	return r, db, node, fake
}

func seedSession(t *testing.T, db *gorm.DB, node *snowflake.Node, token string, expiresAt time.Time) snowflake.ID {
	t.Helper()

	userID := node.Generate()
	err := db.Exec(
		`INSERT INTO sessions (id, user_id, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		node.Generate(), userID, HashToken(token), expiresAt,
	).Error
	require.NoError(t, err)
	return userID
}

func TestResolveValidToken(t *testing.T) {
	r, db, node, fake := setupResolver(t)
	userID := seedSession(t, db, node, "session-token", fake.Now().Add(time.Hour))

	got, err := r.Resolve(context.Background(), "session-token")
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestResolveExpiredToken(t *testing.T) {
	r, db, node, fake := setupResolver(t)
	seedSession(t, db, node, "session-token", fake.Now().Add(time.Hour))
	fake.Advance(2 * time.Hour)

	_, err := r.Resolve(context.Background(), "session-token")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveUnknownOrEmptyToken(t *testing.T) {
	r, _, _, _ := setupResolver(t)

	_, err := r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
