package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

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
	batchservice "github.com/whoneedsawriter/platform/internal/batch/service"
	"github.com/whoneedsawriter/platform/internal/config"
	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
	ledgerrepo "github.com/whoneedsawriter/platform/internal/ledger/repository"
	"github.com/whoneedsawriter/platform/internal/metrics"
)

type backendStub struct {
	failKeyword string
	bulkErr     error
	bulkCalls   [][]generatordomain.BulkJob
}

func (b *backendStub) GenerateSync(ctx context.Context, prompt string) (string, error) {
	if b.failKeyword != "" && strings.Contains(prompt, b.failKeyword) {
		return "", errors.New("model overloaded")
	}
	return "<h1>generated</h1>", nil
}

func (b *backendStub) GenerateBulk(ctx context.Context, jobs []generatordomain.BulkJob) error {
	b.bulkCalls = append(b.bulkCalls, jobs)
	return b.bulkErr
}

func setupGenerator(t *testing.T, backend generatordomain.Backend) (generatordomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, db.AutoMigrate(
		&ledgerdomain.User{},
		&batchdomain.Batch{},
		&articledomain.ArticleJob{},
		&articledomain.PendingArticleJob{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := &config.GenerationConfigHolder{}
	holder.Set(config.DefaultGenerationConfig())

	bRepo := batchrepo.Provide()
	bSvc := batchservice.New(batchservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  bRepo,
	})

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Generation:  holder,
		Backend:     backend,
		BatchSvc:    bSvc,
		BatchRepo:   bRepo,
		ArticleRepo: articlerepo.Provide(),
		LedgerRepo:  ledgerrepo.Provide(),
		Metrics:     metrics.New(prometheus.NewRegistry()),
	})
	return svc, db, node
}

func seedUser(t *testing.T, db *gorm.DB, node *snowflake.Node, monthly, lifetime, free float64) snowflake.ID {
	t.Helper()

	id := node.Generate()
	err := db.Exec(`
INSERT INTO users (id, email, monthly_balance, lifetime_balance, free_credits, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		id, fmt.Sprintf("user-%d@example.com", id), monthly, lifetime, free).Error
	require.NoError(t, err)
	return id
}

func userBalance(t *testing.T, db *gorm.DB, id snowflake.ID, column string) float64 {
	t.Helper()

	var v float64
	require.NoError(t, db.Raw(fmt.Sprintf(`SELECT %s FROM users WHERE id = ?`, column), id).Scan(&v).Error)
	return v
}

func TestSubmitLiteContinuesOnError(t *testing.T) {
	backend := &backendStub{failKeyword: "broken keyword"}
	svc, db, node := setupGenerator(t, backend)
	userID := seedUser(t, db, node, 5, 0, 0)

	var progress []string
	result, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelLite,
		Keywords:    []string{"first keyword", "broken keyword", "third keyword"},
		OnProgress: func(keyword string, completed bool) {
			progress = append(progress, fmt.Sprintf("%s=%t", keyword, completed))
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"first keyword", "third keyword"}, result.CompletedKeywords)
	assert.Equal(t, []string{"broken keyword"}, result.FailedKeywords)
	assert.InDelta(t, 0.2, result.CreditsSpent, 0.0001)
	assert.Equal(t, []string{"first keyword=true", "broken keyword=false", "third keyword=true"}, progress)

	assert.InDelta(t, 4.8, userBalance(t, db, userID, "monthly_balance"), 0.0001)

	var batch batchdomain.Batch
	require.NoError(t, db.Raw(`SELECT * FROM batches WHERE id = ?`, result.BatchID).Scan(&batch).Error)
	assert.Equal(t, 2, batch.CompletedArticles)
	assert.Equal(t, 1, batch.FailedArticles)
	assert.Equal(t, 0, batch.PendingArticles)
}

func TestSubmitLiteInsufficientCreditsNoSideEffects(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 0.1, 0, 0)

	_, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelLite,
		Keywords:    []string{"one", "two", "three"},
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)

	var count int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM batches`).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.InDelta(t, 0.1, userBalance(t, db, userID, "monthly_balance"), 0.0001)
}

func TestSubmitRejectsKeywordBounds(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 100, 0, 0)

	_, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID: userID,
		Model:  generatordomain.ModelLite,
	})
	assert.ErrorIs(t, err, generatordomain.ErrEmptyKeywordList)

	keywords := make([]string, 11)
	for i := range keywords {
		keywords[i] = fmt.Sprintf("keyword %d", i)
	}
	_, err = svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:   userID,
		Model:    generatordomain.ModelLite,
		Keywords: keywords,
	})
	assert.ErrorIs(t, err, generatordomain.ErrBatchTooLarge)
}

func TestSubmitRejectsUnknownModel(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 100, 0, 0)

	_, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:   userID,
		Model:    "2b-ultra",
		Keywords: []string{"keyword"},
	})
	assert.ErrorIs(t, err, generatordomain.ErrUnknownModel)
}

func TestSubmitLiteDrawsFromLifetimeWhenMonthlyEmpty(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 0, 5, 30)

	_, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelLite,
		Keywords:    []string{"keyword"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 4.9, userBalance(t, db, userID, "lifetime_balance"), 0.0001)
	assert.InDelta(t, 30, userBalance(t, db, userID, "free_credits"), 0.0001)
}

func TestSubmitGodModeDebitsUpfrontAndQueues(t *testing.T) {
	backend := &backendStub{}
	svc, db, node := setupGenerator(t, backend)
	userID := seedUser(t, db, node, 10, 0, 0)

	result, err := svc.SubmitGodMode(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelPro,
		Keywords:    []string{"alpha keyword", "beta keyword", "gamma keyword"},
	})
	require.NoError(t, err)

	require.Len(t, result.JobIDs, 3)
	assert.InDelta(t, 6.0, result.CreditsSpent, 0.0001)
	assert.InDelta(t, 4.0, userBalance(t, db, userID, "monthly_balance"), 0.0001)

	require.Len(t, backend.bulkCalls, 1)
	require.Len(t, backend.bulkCalls[0], 3)
	assert.Contains(t, backend.bulkCalls[0][0].Prompt, "alpha keyword")
	assert.Equal(t, result.JobIDs[0], backend.bulkCalls[0][0].JobID)

	var pending int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM pending_articles WHERE batch_id = ?`, result.BatchID).Scan(&pending).Error)
	assert.Equal(t, int64(3), pending)

	var jobs int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM articles WHERE batch_id = ? AND status = 0`, result.BatchID).Scan(&jobs).Error)
	assert.Equal(t, int64(3), jobs)
}

func TestSubmitExternalFlatDebit(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 50, 3, 0)

	result, err := svc.SubmitExternal(context.Background(), generatordomain.ExternalRequest{
		UserID:  userID,
		Keyword: "api keyword",
	})
	require.NoError(t, err)

	// external tasks always bill the lifetime pool
	assert.InDelta(t, 2.0, userBalance(t, db, userID, "lifetime_balance"), 0.0001)
	assert.InDelta(t, 50.0, userBalance(t, db, userID, "monthly_balance"), 0.0001)

	var job articledomain.ArticleJob
	require.NoError(t, db.Raw(`SELECT * FROM articles WHERE id = ?`, result.JobID).Scan(&job).Error)
	assert.Equal(t, "api keyword", job.Keyword)
	assert.Equal(t, 2000, job.WordLimit)
	assert.Equal(t, articledomain.StatusPending, job.Status)
}

func TestSubmitExternalRequiresLifetimeBalance(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 100, 0, 30)

	_, err := svc.SubmitExternal(context.Background(), generatordomain.ExternalRequest{
		UserID:  userID,
		Keyword: "api keyword",
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)

	// a positive but sub-credit balance passes the gate and then fails
	// the atomic debit, never going negative
	poorUser := seedUser(t, db, node, 0, 0.5, 0)
	_, err = svc.SubmitExternal(context.Background(), generatordomain.ExternalRequest{
		UserID:  poorUser,
		Keyword: "api keyword",
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInsufficientCredits)
	assert.InDelta(t, 0.5, userBalance(t, db, poorUser, "lifetime_balance"), 0.0001)
}

func TestSubmitGodModeRefundsOnBulkFailure(t *testing.T) {
	backend := &backendStub{bulkErr: errors.New("pipeline down")}
	svc, db, node := setupGenerator(t, backend)
	userID := seedUser(t, db, node, 10, 0, 0)

	_, err := svc.SubmitGodMode(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelPro,
		Keywords:    []string{"alpha keyword", "beta keyword"},
	})
	assert.ErrorIs(t, err, generatordomain.ErrUpstreamGeneration)

	assert.InDelta(t, 10.0, userBalance(t, db, userID, "monthly_balance"), 0.0001)

	var batch batchdomain.Batch
	require.NoError(t, db.Raw(`SELECT * FROM batches ORDER BY id LIMIT 1`).Scan(&batch).Error)
	assert.Equal(t, 2, batch.FailedArticles)
	assert.Equal(t, 0, batch.PendingArticles)
}

func TestSubmitCarriesSpecialRequests(t *testing.T) {
	svc, db, node := setupGenerator(t, &backendStub{})
	userID := seedUser(t, db, node, 10, 0, 0)

	lite, err := svc.SubmitLite(context.Background(), generatordomain.SubmitRequest{
		UserID:          userID,
		ArticleType:     "informational",
		Model:           generatordomain.ModelLite,
		Keywords:        []string{"first keyword"},
		SpecialRequests: "mention the brand once",
	})
	require.NoError(t, err)

	var comment string
	require.NoError(t, db.Raw(`SELECT comment FROM articles WHERE batch_id = ?`, lite.BatchID).Scan(&comment).Error)
	assert.Equal(t, "mention the brand once", comment)

	// omitted instructions collapse to "."
	pro, err := svc.SubmitGodMode(context.Background(), generatordomain.SubmitRequest{
		UserID:      userID,
		ArticleType: "informational",
		Model:       generatordomain.ModelPro,
		Keywords:    []string{"second keyword"},
	})
	require.NoError(t, err)

	require.NoError(t, db.Raw(`SELECT comment FROM articles WHERE batch_id = ?`, pro.BatchID).Scan(&comment).Error)
	assert.Equal(t, ".", comment)
}
