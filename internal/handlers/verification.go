package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier-backend/internal/logger"
	"atelier-backend/internal/models"
	"atelier-backend/internal/verification"
)

type VerificationHandler struct {
	svc *verification.Service
	log *logger.Logger
}

func NewVerificationHandler(svc *verification.Service, log *logger.Logger) *VerificationHandler {
	return &VerificationHandler{svc: svc, log: log}
}

// RequestCode issues an email challenge. For the configured test sentinel
// the response already carries the verified identity and token.
func (h *VerificationHandler) RequestCode(c *gin.Context) {
	var req models.RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	result, err := h.svc.RequestCode(c.Request.Context(), req.Email, req.Name, req.ApplicationID)
	switch {
	case errors.Is(err, verification.ErrInvalidEmail):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, verification.ErrCooldown):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to request verification code",
			Message: err.Error(),
		})
		return
	}

	if result.Verified {
		c.JSON(http.StatusOK, models.RequestCodeResponse{
			Status:   "verified",
			Verified: true,
			UserID:   result.UserID.String(),
			Token:    result.Token,
		})
		return
	}
	c.JSON(http.StatusOK, models.RequestCodeResponse{Status: "sent"})
}

// VerifyCode consumes the challenge. Wrong, expired and replayed codes all
// fail the same way.
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid request body",
			Message: err.Error(),
		})
		return
	}

	result, err := h.svc.VerifyCode(c.Request.Context(), req.Email, req.Code)
	if errors.Is(err, verification.ErrInvalidCode) {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "failed to verify code",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.VerifyCodeResponse{
		UserID: result.UserID.String(),
		Token:  result.Token,
	})
}
