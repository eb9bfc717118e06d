package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetAPIKey(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.apiKeySvc.Get(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateAPIKey(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	secret, err := s.apiKeySvc.Create(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	// the plain key is shown exactly once
	c.JSON(http.StatusOK, secret)
}

func (s *Server) RevokeAPIKey(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.apiKeySvc.Revoke(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
