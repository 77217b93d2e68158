package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat routes a message through the assistant. Assistant failures are
// part of the reply text, so this only fails on a malformed request.
func (s *Server) handleChat(c *gin.Context) {
	if s.chat == nil {
		s.respondError(c, http.StatusServiceUnavailable, errors.New("chat assistant not configured"))
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, s.chat.Route(c.Request.Context(), req.Message))
}
