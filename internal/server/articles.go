package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
)

type articleResponse struct {
	ID        string    `json:"id"`
	BatchID   string    `json:"batchId"`
	Keyword   string    `json:"keyword"`
	Content   string    `json:"content,omitempty"`
	Status    int       `json:"status"`
	WordLimit int       `json:"wordLimit"`
	AIScore   *float64  `json:"aiScore,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toArticleResponse(job *articledomain.ArticleJob) articleResponse {
	return articleResponse{
		ID:        job.ID.String(),
		BatchID:   job.BatchID.String(),
		Keyword:   job.Keyword,
		Content:   job.Content,
		Status:    job.Status,
		WordLimit: job.WordLimit,
		AIScore:   job.AIScore,
		CreatedAt: job.CreatedAt,
	}
}

// GetArticles serves a single article by id or all articles of a
// batch, depending on the query parameter.
func (s *Server) GetArticles(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if raw := c.Query("id"); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		job, err := s.articleSvc.GetJob(c.Request.Context(), userID, id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, toArticleResponse(job))
		return
	}

	raw := c.Query("batchId")
	if raw == "" {
		AbortWithError(c, invalidRequestError())
		return
	}
	batchID, err := snowflake.ParseString(raw)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	jobs, err := s.articleSvc.ListByBatch(c.Request.Context(), userID, batchID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]articleResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, toArticleResponse(&jobs[i]))
	}
	c.JSON(http.StatusOK, out)
}

type updateArticleRequest struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	AIScore *float64 `json:"aiScore"`
}

func (s *Server) UpdateArticle(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id, err := snowflake.ParseString(req.ID)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.articleSvc.UpdateContent(c.Request.Context(), articledomain.UpdateContentRequest{
		UserID:  userID,
		JobID:   id,
		Content: req.Content,
		AIScore: req.AIScore,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (s *Server) DeleteArticle(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := snowflake.ParseString(c.Query("id"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.articleSvc.DeleteJob(c.Request.Context(), userID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
