package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/share"
)

// handleCreateShare encodes the current collection into a share token and,
// when a public URL is configured, a ready-to-copy link.
func (s *Server) handleCreateShare(c *gin.Context) {
	token, err := share.Encode(s.store.All())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	payload := gin.H{"token": token}
	if s.publicURL != "" {
		link, err := share.Link(s.publicURL, token)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
		payload["url"] = link
	}
	respondSuccess(c, http.StatusOK, payload)
}
