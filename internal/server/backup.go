package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/tasks"
)

// handleExport streams the full collection as a dated JSON attachment.
func (s *Server) handleExport(c *gin.Context) {
	name := tasks.BackupFilename(s.now())
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if err := s.store.Export(c.Writer); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}

// handleImport replaces the collection with an uploaded backup document.
func (s *Server) handleImport(c *gin.Context) {
	n, err := s.store.Import(c.Request.Context(), c.Request.Body)
	if err != nil {
		s.respondError(c, statusFor(err), err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"imported": n})
}
