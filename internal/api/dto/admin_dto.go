package dto

import (
	"github.com/cuongbtq/editor-bot/internal/settings"
	"github.com/cuongbtq/editor-bot/internal/worker/storage"
)

type SettingsResponse struct {
	Settings []settings.KeyValue `json:"settings"`
}

type UpdateSettingRequest struct {
	Value string `json:"value" binding:"required"`
}

type StatsResponse struct {
	Users       int64          `json:"users"`
	Jobs        *storage.Stats `json:"jobs"`
	QueueLength int            `json:"queue_length"`
	Workers     int            `json:"workers"`
}

type ReloadKeysResponse struct {
	Keys map[string]int `json:"keys"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
