package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atelier-backend/internal/database"
	"atelier-backend/internal/decorations"
	"atelier-backend/internal/middleware"
	"atelier-backend/internal/models"
	"atelier-backend/internal/workflow"
)

// loadOwnedApplication fetches the aggregate and enforces that the caller
// owns it, either through the draft session scope or the verified user id.
// Writes the error response itself and returns false on any failure.
func loadOwnedApplication(c *gin.Context, db *database.Client) (*models.Application, bool) {
	appID, err := uuid.Parse(c.Param("application_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid application id"})
		return nil, false
	}

	app, err := db.GetApplication(appID)
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "application not found",
			Message: err.Error(),
		})
		return nil, false
	}

	if app.SessionID == middleware.SessionID(c) {
		return app, true
	}
	if userID, ok := middleware.VerifiedUserID(c); ok && app.UserID.Valid && app.UserID.UUID == userID {
		return app, true
	}

	c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "application belongs to a different session"})
	return nil, false
}

func toApplicationResponse(app *models.Application, generationProgress int) models.ApplicationResponse {
	resp := models.ApplicationResponse{
		ID:          app.ID.String(),
		SessionID:   app.SessionID.String(),
		Status:      app.Status,
		CurrentStep: app.CurrentStep,
		StepName:    workflow.Step(app.CurrentStep).String(),

		Candidates:         app.CandidateURLs(),
		GenerationProgress: generationProgress,

		ReconStatus: app.ReconStatus,
		ModelURLs:   app.ModelURLList(),

		BaseCostCents:       app.BaseCostCents,
		DecorationCostCents: app.DecorationCostCents,
		TotalCostCents:      app.TotalCostCents,

		Decorations: []models.PlacementResponse{},

		CreatedAt: app.CreatedAt,
		UpdatedAt: app.UpdatedAt,
	}

	if app.UserID.Valid {
		resp.UserID = app.UserID.UUID.String()
	}
	if app.InputImageURL.Valid {
		resp.InputImageURL = app.InputImageURL.String
	}
	if app.Comment.Valid {
		resp.Comment = app.Comment.String
	}
	if app.FormFactor.Valid {
		resp.FormFactor = app.FormFactor.String
	}
	if app.Material.Valid {
		resp.Material = app.Material.String
	}
	if app.Size.Valid {
		resp.Size = app.Size.String
	}
	if app.ResolvedPrompt.Valid {
		resp.ResolvedPrompt = app.ResolvedPrompt.String
	}
	if app.SelectedVariant.Valid {
		v := int(app.SelectedVariant.Int64)
		resp.SelectedVariant = &v
	}
	if app.SelectedImageURL.Valid {
		resp.SelectedImageURL = app.SelectedImageURL.String
	}
	if app.ReconJobID.Valid {
		resp.ReconJobID = app.ReconJobID.String
	}
	if app.PaymentStatus.Valid {
		resp.PaymentStatus = app.PaymentStatus.String
	}
	if app.EngravingText.Valid {
		resp.EngravingText = app.EngravingText.String
	}
	if app.ErrorMessage.Valid {
		resp.ErrorMessage = app.ErrorMessage.String
	}

	if placements, err := decorations.Decode(app.Decorations); err == nil {
		for _, p := range placements {
			resp.Decorations = append(resp.Decorations, models.PlacementResponse{
				ID:             p.ID.String(),
				X:              p.X,
				Y:              p.Y,
				DecorationType: p.DecorationType,
			})
		}
	}

	return resp
}
