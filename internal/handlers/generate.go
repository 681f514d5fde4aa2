package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier-backend/internal/database"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
	"atelier-backend/internal/workflow"
)

type GenerateHandler struct {
	db           *database.Client
	orchestrator *workflow.Orchestrator
	settings     *settings.Resolver
	log          *logger.Logger
}

func NewGenerateHandler(db *database.Client, orchestrator *workflow.Orchestrator, resolver *settings.Resolver, log *logger.Logger) *GenerateHandler {
	return &GenerateHandler{
		db:           db,
		orchestrator: orchestrator,
		settings:     resolver,
		log:          log,
	}
}

// Generate starts (or with regenerate=true, restarts) design generation.
// The call returns immediately with status generating; the client polls
// the aggregate for completion. A duplicate submit gets a 409, never a
// second external call.
func (h *GenerateHandler) Generate(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	var req models.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	snap := h.settings.Current(c.Request.Context())
	err := h.orchestrator.Start(c.Request.Context(), app, snap, req.Regenerate)
	switch {
	case errors.Is(err, workflow.ErrGenerationInFlight):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, workflow.ErrNoInput), errors.Is(err, workflow.ErrNotRegenerable):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to start generation",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, models.GenerateResponse{
		ApplicationID: app.ID.String(),
		Status:        models.StatusGenerating,
	})
}
