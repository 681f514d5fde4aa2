package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"atelier-backend/internal/database"
	"atelier-backend/internal/logger"
	"atelier-backend/internal/middleware"
	"atelier-backend/internal/models"
	"atelier-backend/internal/payments"
)

type OrderHandler struct {
	db       *database.Client
	payments *payments.Client
	log      *logger.Logger
}

func NewOrderHandler(db *database.Client, paymentsClient *payments.Client, log *logger.Logger) *OrderHandler {
	return &OrderHandler{db: db, payments: paymentsClient, log: log}
}

// Submit creates the order from the application's current configuration.
// A verified identity is required; a failed or still-running 3D build is
// not, the 3D artifact is a preview and never gates checkout.
func (h *OrderHandler) Submit(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	userID, verified := middleware.VerifiedUserID(c)
	if !verified || !app.UserID.Valid || app.UserID.UUID != userID {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "email verification required before ordering"})
		return
	}

	var req models.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}
	if req.Contact.Name == "" || req.Contact.Email == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "contact name and email are required"})
		return
	}

	if !app.SelectedVariant.Valid {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "a design variant must be selected first"})
		return
	}
	if !app.Material.Valid || !app.Size.Valid {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "material and size must be configured first"})
		return
	}

	contact, err := json.Marshal(req.Contact)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to encode contact",
			Message: err.Error(),
		})
		return
	}

	order, err := h.db.CreateOrder(&models.Order{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		UserID:        userID,
		Contact:       contact,
		Material:      app.Material.String,
		Size:          app.Size.String,
		Decorations:   app.Decorations,
		TotalCents:    app.TotalCostCents,
		Status:        "submitted",
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to create order",
			Message: err.Error(),
		})
		return
	}

	if err := h.db.SetApplicationStatus(app.ID, models.StatusFinalized); err != nil {
		h.log.Error("failed to finalize application", "application_id", app.ID, "error", err)
	}

	h.log.Info("order submitted", "application_id", app.ID, "order_id", order.ID, "total_cents", order.TotalCents)
	c.JSON(http.StatusCreated, models.OrderConfirmationResponse{
		OrderID:       order.ID.String(),
		ApplicationID: app.ID.String(),
		Status:        order.Status,
		TotalCents:    order.TotalCents,
		CreatedAt:     order.CreatedAt,
	})
}

// CreatePayment creates a payment session for the submitted order and
// returns the gateway redirect URL. A gateway failure marks the
// application payment_failed but never touches the order row, so payment
// can be retried.
func (h *OrderHandler) CreatePayment(c *gin.Context) {
	app, ok := loadOwnedApplication(c, h.db)
	if !ok {
		return
	}

	userID, verified := middleware.VerifiedUserID(c)
	if !verified || !app.UserID.Valid || app.UserID.UUID != userID {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "email verification required before payment"})
		return
	}

	order, err := h.db.GetOrderByApplication(app.ID)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "no submitted order for this application",
			Message: err.Error(),
		})
		return
	}

	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}
	contact := req.Contact
	if contact.Email == "" {
		if err := json.Unmarshal(order.Contact, &contact); err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "failed to decode order contact",
				Message: err.Error(),
			})
			return
		}
	}

	redirectURL, err := h.payments.CreatePayment(c.Request.Context(), order.ID.String(), order.TotalCents, contact)
	if err != nil {
		h.log.Warn("payment creation failed", "application_id", app.ID, "order_id", order.ID, "error", err)
		if dbErr := h.db.SetPaymentStatus(app.ID, models.StatusPaymentFailed, "failed"); dbErr != nil {
			h.log.Error("failed to persist payment failure", "application_id", app.ID, "error", dbErr)
		}
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "payment gateway rejected the request",
			Message: err.Error(),
		})
		return
	}

	if err := h.db.SetPaymentStatus(app.ID, models.StatusPaid, "completed"); err != nil {
		h.log.Error("failed to persist payment status", "application_id", app.ID, "error", err)
	}

	c.JSON(http.StatusOK, models.PaymentResponse{
		ApplicationID: app.ID.String(),
		RedirectURL:   redirectURL,
		AmountCents:   order.TotalCents,
	})
}
