package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	"github.com/whoneedsawriter/platform/internal/article/repository"
)

func setupArticleService(t *testing.T) (articledomain.Service, articledomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(&articledomain.ArticleJob{}, &articledomain.PendingArticleJob{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repo,
	})
	return svc, repo, db, node
}

func seedJob(t *testing.T, repo articledomain.Repository, db *gorm.DB, node *snowflake.Node, userID snowflake.ID, content string) *articledomain.ArticleJob {
	t.Helper()

	job := &articledomain.ArticleJob{
		ID:        node.Generate(),
		UserID:    userID,
		BatchID:   node.Generate(),
		Keyword:   "best hiking boots",
		Content:   content,
		WordLimit: 2000,
	}
	if content != "" {
		job.Status = articledomain.StatusComplete
	}
	require.NoError(t, repo.Insert(context.Background(), db, job))
	return job
}

func TestGetJobRoundTrip(t *testing.T) {
	svc, repo, db, node := setupArticleService(t)
	userID := node.Generate()

	job := seedJob(t, repo, db, node, userID, "<h1>Boots</h1>")

	got, err := svc.GetJob(context.Background(), userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Keyword, got.Keyword)
	assert.Equal(t, "<h1>Boots</h1>", got.Content)
	assert.True(t, got.Complete())
}

func TestGetJobScopedToOwner(t *testing.T) {
	svc, repo, db, node := setupArticleService(t)
	owner := node.Generate()
	stranger := node.Generate()

	job := seedJob(t, repo, db, node, owner, "")

	_, err := svc.GetJob(context.Background(), stranger, job.ID)
	assert.ErrorIs(t, err, articledomain.ErrNotFound)

	_, err = svc.GetJob(context.Background(), owner, node.Generate())
	assert.ErrorIs(t, err, articledomain.ErrNotFound)
}

func TestFillContentIdempotent(t *testing.T) {
	_, repo, db, node := setupArticleService(t)
	userID := node.Generate()

	job := seedJob(t, repo, db, node, userID, "")

	affected, err := repo.FillContent(context.Background(), db, job.ID, "first body")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.FillContent(context.Background(), db, job.ID, "second body")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	got, err := repo.FindByID(context.Background(), db, userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "first body", got.Content)
	assert.Equal(t, articledomain.StatusComplete, got.Status)
}

func TestDeleteJobRemovesPendingRow(t *testing.T) {
	svc, repo, db, node := setupArticleService(t)
	userID := node.Generate()

	job := seedJob(t, repo, db, node, userID, "")
	require.NoError(t, repo.InsertPending(context.Background(), db, &articledomain.PendingArticleJob{
		ID:        node.Generate(),
		UserID:    userID,
		BatchID:   job.BatchID,
		ArticleID: job.ID,
		Keyword:   job.Keyword,
	}))

	require.NoError(t, svc.DeleteJob(context.Background(), userID, job.ID))

	_, err := svc.GetJob(context.Background(), userID, job.ID)
	assert.ErrorIs(t, err, articledomain.ErrNotFound)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM pending_articles WHERE article_id = ?`, job.ID).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpdateContentOverwrites(t *testing.T) {
	svc, repo, db, node := setupArticleService(t)
	userID := node.Generate()

	job := seedJob(t, repo, db, node, userID, "draft body")

	score := 87.5
	err := svc.UpdateContent(context.Background(), articledomain.UpdateContentRequest{
		UserID:  userID,
		JobID:   job.ID,
		Content: "edited body",
		AIScore: &score,
	})
	require.NoError(t, err)

	got, err := svc.GetJob(context.Background(), userID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited body", got.Content)
	require.NotNil(t, got.AIScore)
	assert.InDelta(t, 87.5, *got.AIScore, 0.0001)
}

func TestUpdateContentRejectsEmpty(t *testing.T) {
	svc, _, _, node := setupArticleService(t)

	err := svc.UpdateContent(context.Background(), articledomain.UpdateContentRequest{
		UserID: node.Generate(),
		JobID:  node.Generate(),
	})
	assert.ErrorIs(t, err, articledomain.ErrEmptyContent)
}
