package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskdesk/internal/storage"
)

type preferences struct {
	DarkMode      *bool `json:"darkMode"`
	Notifications *bool `json:"notifications"`
}

// handleGetPreferences returns the display and notification preferences.
func (s *Server) handleGetPreferences(c *gin.Context) {
	prefs, err := s.loadPreferences(c)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, prefs)
}

// handleUpdatePreferences stores the preferences present in the body.
func (s *Server) handleUpdatePreferences(c *gin.Context) {
	if s.prefs == nil {
		s.respondError(c, http.StatusServiceUnavailable, errors.New("preferences not available"))
		return
	}
	var req preferences
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	if req.DarkMode != nil {
		if err := storage.SetBool(ctx, s.prefs, storage.DarkModeKey, *req.DarkMode); err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	if req.Notifications != nil {
		if err := storage.SetBool(ctx, s.prefs, storage.NotificationsKey, *req.Notifications); err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
	}
	s.handleGetPreferences(c)
}

func (s *Server) loadPreferences(c *gin.Context) (preferences, error) {
	off := false
	if s.prefs == nil {
		return preferences{DarkMode: &off, Notifications: &off}, nil
	}
	ctx := c.Request.Context()
	dark, err := storage.GetBool(ctx, s.prefs, storage.DarkModeKey, false)
	if err != nil {
		return preferences{}, err
	}
	notify, err := storage.GetBool(ctx, s.prefs, storage.NotificationsKey, false)
	if err != nil {
		return preferences{}, err
	}
	return preferences{DarkMode: &dark, Notifications: &notify}, nil
}

// handleAlerts returns sweep alerts newer than the optional since parameter.
func (s *Server) handleAlerts(c *gin.Context) {
	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		since = t
	}
	respondSuccess(c, http.StatusOK, gin.H{"alerts": s.alerts.Since(since)})
}
