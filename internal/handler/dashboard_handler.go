package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/raccommode/P-StreamRec/internal/backend"
	"github.com/raccommode/P-StreamRec/internal/errs"
	"github.com/raccommode/P-StreamRec/internal/model"
)

// Engine is what the dashboard handler needs from the refresh cycle.
type Engine interface {
	Current() *model.ViewModel
	RefreshOnce(ctx context.Context) []model.Patch
}

// Syncer is the cache-aware read side used for model list and status.
type Syncer interface {
	Models(ctx context.Context) ([]model.Model, error)
	ModelStatus(ctx context.Context, username string, bypassCache bool) (*model.ModelStatus, error)
	InvalidateAfterMutation()
}

// DashboardHandler handles the local REST API for the dashboard.
type DashboardHandler struct {
	engine Engine
	syncer Syncer
	gw     backend.Gateway
	log    *zap.Logger
}

// NewDashboardHandler creates the dashboard handler.
func NewDashboardHandler(engine Engine, syncer Syncer, gw backend.Gateway, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{engine: engine, syncer: syncer, gw: gw, log: log}
}

// GetDashboard godoc
// GET /api/dashboard — the last rendered ViewModel.
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	vm := h.engine.Current()
	if vm == nil {
		// First cycle has not run yet; do it on demand.
		h.engine.RefreshOnce(c.Request.Context())
		vm = h.engine.Current()
	}
	c.JSON(http.StatusOK, vm)
}

// ListModels godoc
// GET /api/models
func (h *DashboardHandler) ListModels(c *gin.Context) {
	models, err := h.syncer.Models(c.Request.Context())
	if err != nil {
		if errors.Is(err, errs.ErrBackendUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list models"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// AddModel godoc
// POST /api/models — user-initiated, so domain conflicts are surfaced,
// unlike the silent background paths.
func (h *DashboardHandler) AddModel(c *gin.Context) {
	var req model.AddModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "message": err.Error()})
		return
	}
	req.Username = model.Key(req.Username)
	if req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	if req.AddedAt.IsZero() {
		req.AddedAt = time.Now()
	}

	added, err := h.gw.AddModel(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrDuplicateModel):
			// Cache and ViewModel stay untouched: nothing changed upstream.
			c.JSON(http.StatusConflict, gin.H{"error": "model already exists"})
		case errors.Is(err, errs.ErrBackendUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		default:
			h.log.Warn("add model failed", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add model"})
		}
		return
	}

	// Force the next read to the backend so the new card shows up now.
	h.syncer.InvalidateAfterMutation()
	h.engine.RefreshOnce(c.Request.Context())

	c.JSON(http.StatusCreated, added)
}

// GetModelStatus godoc
// GET /api/model/:username/status — cached liveness probe.
func (h *DashboardHandler) GetModelStatus(c *gin.Context) {
	username := model.Key(c.Param("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	st, err := h.syncer.ModelStatus(c.Request.Context(), username, false)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrModelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "model not found"})
		case errors.Is(err, errs.ErrBackendUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch status"})
		}
		return
	}
	c.JSON(http.StatusOK, st)
}
