package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
)

type submitGenerationRequest struct {
	BatchName       string   `json:"batchName"`
	ArticleType     string   `json:"articleType"`
	Model           string   `json:"model"`
	Keywords        []string `json:"keywords"`
	Template        string   `json:"template"`
	SpecialRequests string   `json:"specialRequests"`
	WordLimit       int      `json:"wordLimit"`
	FeaturedImage   bool     `json:"featuredImage"`
	ImageInArticle  bool     `json:"imageInArticle"`
}

type submitGenerationResponse struct {
	BatchID           string   `json:"batchId"`
	BatchName         string   `json:"batchName"`
	CompletedKeywords []string `json:"completedKeywords,omitempty"`
	FailedKeywords    []string `json:"failedKeywords,omitempty"`
	JobIDs            []string `json:"jobIds,omitempty"`
	CreditsSpent      float64  `json:"creditsSpent"`
}

func (s *Server) SubmitGeneration(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req submitGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	submit := generatordomain.SubmitRequest{
		UserID:                  userID,
		BatchName:               req.BatchName,
		ArticleType:             req.ArticleType,
		Model:                   generatordomain.Model(req.Model),
		Keywords:                req.Keywords,
		Template:                req.Template,
		SpecialRequests:         req.SpecialRequests,
		WordLimit:               req.WordLimit,
		FeaturedImageRequired:   req.FeaturedImage,
		AdditionalImageRequired: req.ImageInArticle,
	}

	switch submit.Model {
	case generatordomain.ModelPro:
		result, err := s.generatorSvc.SubmitGodMode(c.Request.Context(), submit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, submitGenerationResponse{
			BatchID:      result.BatchID.String(),
			BatchName:    result.BatchName,
			JobIDs:       idStrings(result.JobIDs),
			CreditsSpent: result.CreditsSpent,
		})
	default:
		result, err := s.generatorSvc.SubmitLite(c.Request.Context(), submit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, submitGenerationResponse{
			BatchID:           result.BatchID.String(),
			BatchName:         result.BatchName,
			CompletedKeywords: result.CompletedKeywords,
			FailedKeywords:    result.FailedKeywords,
			CreditsSpent:      result.CreditsSpent,
		})
	}
}

type createBatchRequest struct {
	Name         string `json:"name"`
	ArticleType  string `json:"articleType"`
	ArticleCount int    `json:"articleCount"`
}

func (s *Server) CreateBatch(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.batchSvc.Create(c.Request.Context(), batchdomain.CreateRequest{
		UserID:       userID,
		Name:         req.Name,
		ArticleType:  req.ArticleType,
		ArticleCount: req.ArticleCount,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batchId": created.ID.String(),
		"name":    created.Name,
	})
}

type checkCompletionRequest struct {
	JobIDs []string `json:"jobIds"`
}

func (s *Server) CheckGodModeCompletion(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req checkCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.JobIDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	jobIDs, err := parseIDs(req.JobIDs)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	progress, err := s.pollerSvc.Check(c.Request.Context(), userID, jobIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":          progress.State,
		"readyKeywords":  progress.ReadyKeywords,
		"remainingCount": progress.RemainingCount,
	})
}

func (s *Server) GetBatchName(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	batchID, err := snowflake.ParseString(c.Query("batchId"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	name, err := s.batchSvc.GetName(c.Request.Context(), userID, batchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"name": name})
}

func (s *Server) ListBatches(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	summaries, err := s.batchSvc.ListSummaries(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

func (s *Server) GetCredits(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.ledgerSvc.Balances(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"monthlyBalance":  user.MonthlyBalance,
		"lifetimeBalance": user.LifetimeBalance,
		"freeCredits":     user.FreeCredits,
	})
}

func idStrings(ids []snowflake.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	out := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		id, err := snowflake.ParseString(r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
