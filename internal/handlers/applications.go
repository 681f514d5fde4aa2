package handlers

import (
	"database/sql"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atelier-backend/internal/database"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/middleware"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
	"atelier-backend/internal/storage"
	"atelier-backend/internal/workflow"
)

type ApplicationHandler struct {
	db           *database.Client
	storage      *storage.Client
	orchestrator *workflow.Orchestrator
	sequencer    *workflow.Sequencer
	settings     *settings.Resolver
	log          *logger.Logger
}

func NewApplicationHandler(db *database.Client, storageClient *storage.Client, orchestrator *workflow.Orchestrator, sequencer *workflow.Sequencer, resolver *settings.Resolver, log *logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		db:           db,
		storage:      storageClient,
		orchestrator: orchestrator,
		sequencer:    sequencer,
		settings:     resolver,
		log:          log,
	}
}

// Create starts a new draft application scoped to the caller's session.
// The input image, when inlined, is uploaded to storage first so the
// aggregate only ever references a durable URL.
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req models.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	snap := h.settings.Current(c.Request.Context())
	if req.Material != "" && !snap.MaterialEnabled(req.Material) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown or disabled material"})
		return
	}
	if req.FormFactor != "" {
		if _, ok := snap.FormFactor(req.FormFactor); !ok {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown form factor"})
			return
		}
	}

	app := &models.Application{
		ID:         uuid.New(),
		SessionID:  middleware.SessionID(c),
		Comment:    nullable(req.Comment),
		FormFactor: nullable(req.FormFactor),
		Material:   nullable(req.Material),
		Size:       nullable(req.Size),
	}

	if req.ImageBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid base64 image data",
				Message: err.Error(),
			})
			return
		}
		url, err := h.storage.UploadInputImage(app.ID, "input"+extensionFor(req.ImageMime), data, req.ImageMime)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to upload input image",
				Message: err.Error(),
			})
			return
		}
		app.InputImageURL = sql.NullString{String: url, Valid: true}
	}

	created, err := h.db.CreateApplication(app)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create application",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("application created", "application_id", created.ID, "session_id", created.SessionID)
	c.JSON(http.StatusCreated, toApplicationResponse(created, 0))
}

// Get returns the aggregate with live progress estimates. This is the
// resume/poll endpoint: fetching never triggers generation or any other
// side effect.
func (h *ApplicationHandler) Get(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toApplicationResponse(app, h.orchestrator.Progress(app)))
}

// Update moves the application through the step pipeline and persists the
// accompanying configuration patch. direction "back" is a pure step
// decrement; forward transitions are guard-checked.
func (h *ApplicationHandler) Update(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	var req models.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	if req.Direction == "back" {
		updated, err := h.sequencer.Back(c.Request.Context(), app)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to step back",
				Message: err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, toApplicationResponse(updated, h.orchestrator.Progress(updated)))
		return
	}

	target := workflow.Step(app.CurrentStep)
	if req.Step != "" {
		var known bool
		target, known = workflow.StepFromName(req.Step)
		if !known {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown step: " + req.Step})
			return
		}
	}

	patch := workflow.ConfigPatch{
		FormFactor:    req.FormFactor,
		Material:      req.Material,
		Size:          req.Size,
		Comment:       req.Comment,
		EngravingText: req.EngravingText,
	}

	snap := h.settings.Current(c.Request.Context())
	updated, err := h.sequencer.Advance(c.Request.Context(), app, target, patch, snap)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "transition rejected",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, toApplicationResponse(updated, h.orchestrator.Progress(updated)))
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}
