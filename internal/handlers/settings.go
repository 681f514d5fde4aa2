package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atelier-backend/internal/settings"
)

type SettingsHandler struct {
	settings *settings.Resolver
}

func NewSettingsHandler(resolver *settings.Resolver) *SettingsHandler {
	return &SettingsHandler{settings: resolver}
}

// Get returns the resolved settings snapshot. Always complete: the
// resolver fills gaps from its fallback chain, so clients never need
// their own defaults.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current(c.Request.Context()))
}
