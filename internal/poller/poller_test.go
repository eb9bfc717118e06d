package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	articlerepo "github.com/whoneedsawriter/platform/internal/article/repository"
	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	batchrepo "github.com/whoneedsawriter/platform/internal/batch/repository"
	"github.com/whoneedsawriter/platform/internal/clock"
	"github.com/whoneedsawriter/platform/internal/config"
	"github.com/whoneedsawriter/platform/internal/metrics"
)

type fixture struct {
	svc    Service
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	holder *config.GenerationConfigHolder
}

func setupPoller(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&batchdomain.Batch{},
		&articledomain.ArticleJob{},
		&articledomain.PendingArticleJob{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	holder := &config.GenerationConfigHolder{}
	cfg := config.DefaultGenerationConfig()
	cfg.PollInterval = time.Millisecond
	holder.Set(cfg)

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fake,
		Generation:  holder,
		ArticleRepo: articlerepo.Provide(),
		BatchRepo:   batchrepo.Provide(),
		Metrics:     metrics.New(prometheus.NewRegistry()),
	})
	return &fixture{svc: svc, db: db, node: node, clock: fake, holder: holder}
}

// seedBulkBatch creates a batch with n pending jobs and returns the
// batch and job IDs in creation order.
func (f *fixture) seedBulkBatch(t *testing.T, userID snowflake.ID, n int) (snowflake.ID, []snowflake.ID) {
	t.Helper()

	bRepo := batchrepo.Provide()
	aRepo := articlerepo.Provide()
	ctx := context.Background()

	batchID := f.node.Generate()
	require.NoError(t, bRepo.Insert(ctx, f.db, &batchdomain.Batch{
		ID:              batchID,
		UserID:          userID,
		Name:            fmt.Sprintf("bulk-%d", batchID),
		ArticleType:     "informational",
		Articles:        n,
		PendingArticles: n,
	}))

	jobIDs := make([]snowflake.ID, 0, n)
	for i := 0; i < n; i++ {
		jobID := f.node.Generate()
		require.NoError(t, aRepo.Insert(ctx, f.db, &articledomain.ArticleJob{
			ID:        jobID,
			UserID:    userID,
			BatchID:   batchID,
			Keyword:   fmt.Sprintf("keyword %d", i),
			WordLimit: 2000,
		}))
		require.NoError(t, aRepo.InsertPending(ctx, f.db, &articledomain.PendingArticleJob{
			ID:        f.node.Generate(),
			UserID:    userID,
			BatchID:   batchID,
			ArticleID: jobID,
			Keyword:   fmt.Sprintf("keyword %d", i),
		}))
		jobIDs = append(jobIDs, jobID)
	}
	return batchID, jobIDs
}

func (f *fixture) fillContent(t *testing.T, jobIDs ...snowflake.ID) {
	t.Helper()
	for _, id := range jobIDs {
		require.NoError(t, f.db.Exec(`UPDATE articles SET content = '<h1>done</h1>' WHERE id = ?`, id).Error)
	}
}

func TestCheckIncomplete(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	_, jobIDs := f.seedBulkBatch(t, userID, 5)

	progress, err := f.svc.Check(context.Background(), userID, jobIDs)
	require.NoError(t, err)

	assert.Equal(t, StateIncomplete, progress.State)
	assert.Empty(t, progress.ReadyKeywords)
	assert.Equal(t, 5, progress.RemainingCount)

	var maxCron int
	require.NoError(t, f.db.Raw(`SELECT MAX(cron_request) FROM pending_articles`).Scan(&maxCron).Error)
	assert.Equal(t, 1, maxCron)
}

func TestCheckPartial(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	batchID, jobIDs := f.seedBulkBatch(t, userID, 5)
	f.fillContent(t, jobIDs[0], jobIDs[1], jobIDs[2])

	progress, err := f.svc.Check(context.Background(), userID, jobIDs)
	require.NoError(t, err)

	assert.Equal(t, StatePartial, progress.State)
	assert.Len(t, progress.ReadyKeywords, 3)
	assert.Equal(t, 2, progress.RemainingCount)

	var batch batchdomain.Batch
	require.NoError(t, f.db.Raw(`SELECT * FROM batches WHERE id = ?`, batchID).Scan(&batch).Error)
	assert.Equal(t, 3, batch.CompletedArticles)
	assert.Equal(t, 2, batch.PendingArticles)

	var pending int64
	require.NoError(t, f.db.Raw(`SELECT COUNT(*) FROM pending_articles WHERE batch_id = ?`, batchID).Scan(&pending).Error)
	assert.Equal(t, int64(2), pending)
}

func TestCheckFullIsStable(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	batchID, jobIDs := f.seedBulkBatch(t, userID, 3)
	f.fillContent(t, jobIDs...)

	first, err := f.svc.Check(context.Background(), userID, jobIDs)
	require.NoError(t, err)
	assert.Equal(t, StateFull, first.State)
	assert.Equal(t, 0, first.RemainingCount)

	second, err := f.svc.Check(context.Background(), userID, jobIDs)
	require.NoError(t, err)
	assert.Equal(t, StateFull, second.State)

	// counters must not double-bump on repeated checks
	var batch batchdomain.Batch
	require.NoError(t, f.db.Raw(`SELECT * FROM batches WHERE id = ?`, batchID).Scan(&batch).Error)
	assert.Equal(t, 3, batch.CompletedArticles)
	assert.Equal(t, 0, batch.PendingArticles)
	assert.Equal(t, 1, batch.Status)
}

func TestWatchStopsOnFull(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	_, jobIDs := f.seedBulkBatch(t, userID, 2)

	passes := 0
	progress, err := f.svc.Watch(context.Background(), userID, jobIDs, func(p Progress) {
		passes++
		if passes == 2 {
			f.fillContent(t, jobIDs...)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, StateFull, progress.State)
	assert.GreaterOrEqual(t, passes, 3)
}

func TestWatchStopsOnTimeout(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	_, jobIDs := f.seedBulkBatch(t, userID, 2)
	f.fillContent(t, jobIDs[0])

	progress, err := f.svc.Watch(context.Background(), userID, jobIDs, func(p Progress) {
		f.clock.Advance(time.Hour)
	})
	require.NoError(t, err)
	assert.Equal(t, StatePartial, progress.State)
	assert.Equal(t, 1, progress.RemainingCount)
}

func TestWatchPicksUpReloadedTimeout(t *testing.T) {
	f := setupPoller(t)
	userID := f.node.Generate()
	_, jobIDs := f.seedBulkBatch(t, userID, 2)

	// shrink the window mid-watch; the loop re-reads the holder every
	// pass, so the new timeout applies without restarting the watch
	passes := 0
	progress, err := f.svc.Watch(context.Background(), userID, jobIDs, func(p Progress) {
		passes++
		if passes == 1 {
			cfg := f.holder.Get()
			cfg.PollTimeout = time.Minute
			f.holder.Set(cfg)
			f.clock.Advance(2 * time.Minute)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, StateIncomplete, progress.State)
	assert.Equal(t, 1, passes)
}
