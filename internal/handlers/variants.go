package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier-backend/internal/database"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/workflow"
)

type VariantHandler struct {
	db      *database.Client
	tracker *workflow.Tracker
	log     *logger.Logger
}

func NewVariantHandler(db *database.Client, tracker *workflow.Tracker, log *logger.Logger) *VariantHandler {
	return &VariantHandler{db: db, tracker: tracker, log: log}
}

// Select records the chosen variant and kicks off the 3D build for its
// image. Re-selecting replaces the previous choice and its 3D job; the
// kickoff runs in the background so selection never waits on the build
// service.
func (h *VariantHandler) Select(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	if app.Status == models.StatusGenerating {
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "generation is still in flight"})
		return
	}

	var req models.SelectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	candidates := app.CandidateURLs()
	if len(candidates) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "no candidates to select from"})
		return
	}
	if req.Variant < 0 || req.Variant >= len(candidates) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "variant index out of range"})
		return
	}

	imageURL := candidates[req.Variant]
	if err := h.db.SetSelectedVariant(app.ID, req.Variant, imageURL); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to save selection",
			Message: err.Error(),
		})
		return
	}

	// Off the request context: the build job outlives this request.
	go h.tracker.Kickoff(context.Background(), app.ID, imageURL)

	h.log.Info("variant selected", "application_id", app.ID, "variant", req.Variant)
	c.JSON(http.StatusOK, models.SelectVariantResponse{
		ApplicationID:    app.ID.String(),
		Status:           models.StatusSelected,
		SelectedVariant:  req.Variant,
		SelectedImageURL: imageURL,
		ReconStatus:      models.ReconPending,
	})
}

// ModelStatus is the 3D polling endpoint. It also resumes tracking for
// builds that were kicked off by a previous process or whose kickoff
// failed and is due a lazy retry.
func (h *VariantHandler) ModelStatus(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	h.tracker.EnsureStarted(c.Request.Context(), app)

	// Re-read: EnsureStarted may have just created the job.
	app, err := h.db.GetApplication(app.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load application",
			Message: err.Error(),
		})
		return
	}

	resp := models.ModelStatusResponse{
		ApplicationID: app.ID.String(),
		ReconStatus:   app.ReconStatus,
		ModelURLs:     app.ModelURLList(),
		Progress:      h.tracker.Progress(app),
	}
	if app.ReconJobID.Valid {
		resp.ReconJobID = app.ReconJobID.String
	}
	c.JSON(http.StatusOK, resp)
}
