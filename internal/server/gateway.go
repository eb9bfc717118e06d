package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
)

type externalTaskRequest struct {
	Keyword        string `json:"keyword"`
	WordLimit      int    `json:"wordLimit"`
	FeaturedImage  string `json:"featuredImage"`
	ImageInArticle string `json:"imageInArticle"`
}

func (s *Server) CreateExternalTask(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req externalTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.generatorSvc.SubmitExternal(c.Request.Context(), generatordomain.ExternalRequest{
		UserID:                  userID,
		Keyword:                 strings.TrimSpace(req.Keyword),
		WordLimit:               req.WordLimit,
		FeaturedImageRequired:   yesNo(req.FeaturedImage, true),
		AdditionalImageRequired: yesNo(req.ImageInArticle, false),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articleId": result.JobID.String()})
}

func (s *Server) ExternalTaskStatus(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	articleID, err := snowflake.ParseString(c.Query("articleId"))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// cross-user lookups answer exactly like missing ones
	job, err := s.articleSvc.GetJob(c.Request.Context(), userID, articleID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if job.Ready() {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "content": job.Content})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pending"})
}

// yesNo parses the external API's Yes/No flags.
func yesNo(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes":
		return true
	case "no":
		return false
	default:
		return def
	}
}
