package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atelier-backend/internal/database"
	"atelier-backend/internal/decorations"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/settings"
)

type DecorationHandler struct {
	db       *database.Client
	settings *settings.Resolver
	log      *logger.Logger
}

func NewDecorationHandler(db *database.Client, resolver *settings.Resolver, log *logger.Logger) *DecorationHandler {
	return &DecorationHandler{db: db, settings: resolver, log: log}
}

// Place normalizes the pointer position against the preview bounds, adds
// the placement and persists the list together with the recomputed cost.
func (h *DecorationHandler) Place(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	var req models.PlaceDecorationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	snap := h.settings.Current(c.Request.Context())
	if _, ok := snap.DecorationType(req.DecorationType); !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unknown decoration type"})
		return
	}

	placement, err := decorations.Place(req.PointerX, req.PointerY, req.BoundsWidth, req.BoundsHeight, req.DecorationType)
	if err != nil {
		if errors.Is(err, decorations.ErrInvalidBounds) ||
			errors.Is(err, decorations.ErrOutOfBounds) ||
			errors.Is(err, decorations.ErrEdgeMargin) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to place decoration",
			Message: err.Error(),
		})
		return
	}

	placements, err := decorations.Decode(app.Decorations)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to decode stored decorations",
			Message: err.Error(),
		})
		return
	}
	placements = append(placements, placement)

	updated, ok := h.persist(c, app, placements, snap)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Remove deletes a placement by id. An unknown id is a no-op so a client
// retry after a lost response converges to the same state.
func (h *DecorationHandler) Remove(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	placementID, err := uuid.Parse(c.Param("placement_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid placement id"})
		return
	}

	placements, err := decorations.Decode(app.Decorations)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to decode stored decorations",
			Message: err.Error(),
		})
		return
	}
	placements = decorations.Remove(placements, placementID)

	snap := h.settings.Current(c.Request.Context())
	updated, ok := h.persist(c, app, placements, snap)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, updated)
}

// persist writes the placement list and the recomputed costs back to the
// aggregate and returns the fresh projection. Errors are written to the
// response; the bool mirrors loadOwnedApplication's convention.
func (h *DecorationHandler) persist(c *gin.Context, app *models.Application, placements []decorations.Placement, snap *settings.Snapshot) (models.ApplicationResponse, bool) {
	encoded, err := decorations.Encode(placements)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to encode decorations",
			Message: err.Error(),
		})
		return models.ApplicationResponse{}, false
	}

	unitPrices := make(map[string]int64, len(snap.Decorations))
	for id, d := range snap.Decorations {
		unitPrices[id] = d.UnitPriceCents
	}
	decorationCents := decorations.CostByType(placements, unitPrices)
	totalCents := app.BaseCostCents + decorationCents

	if err := h.db.UpdateDecorations(app.ID, encoded, decorationCents, totalCents); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to save decorations",
			Message: err.Error(),
		})
		return models.ApplicationResponse{}, false
	}

	fresh, err := h.db.GetApplication(app.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to load application",
			Message: err.Error(),
		})
		return models.ApplicationResponse{}, false
	}

	// Decorations only exist past generation, so progress is settled.
	progress := 0
	if len(fresh.CandidateURLs()) > 0 {
		progress = 100
	}
	return toApplicationResponse(fresh, progress), true
}
