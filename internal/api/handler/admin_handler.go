package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/editor-bot/internal/api/domain"
	"github.com/cuongbtq/editor-bot/internal/api/dto"
	"github.com/gin-gonic/gin"
)

// GetSettings handles GET /api/v1/admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, dto.SettingsResponse{Settings: h.settings.All(c.Request.Context())})
}

// UpdateSetting handles PUT /api/v1/admin/settings/:key
func (h *AdminHandler) UpdateSetting(c *gin.Context) {
	key := c.Param("key")

	var req dto.UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	value, err := h.settings.Set(c.Request.Context(), key, req.Value)
	switch {
	case errors.Is(err, domain.ErrUnknownSetting):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrInvalidSettingValue):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	case err != nil:
		h.logger.Error("Failed to update setting", slog.String("key", key), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to update setting"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.jobs.CountUsers(ctx)
	if err != nil {
		h.logger.Error("Failed to count users", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	stats, err := h.stats.Stats(ctx)
	if err != nil {
		h.logger.Error("Failed to load job stats", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		Users:       users,
		Jobs:        stats,
		QueueLength: h.queue.QueueLen(),
		Workers:     h.queue.Concurrency(),
	})
}

// ReloadKeys handles POST /api/v1/admin/keys/reload
func (h *AdminHandler) ReloadKeys(c *gin.Context) {
	counts := h.keys.ReloadKeys()
	h.logger.Info("Provider keys reloaded", slog.Any("keys", counts))
	c.JSON(http.StatusOK, dto.ReloadKeysResponse{Keys: counts})
}
