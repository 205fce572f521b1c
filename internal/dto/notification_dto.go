package dto

import "github.com/tasknest/tasknest-backend/internal/models"

type TestSendRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type NotificationListResponse struct {
	Logs       []models.NotificationLog `json:"logs"`
	Pagination Pagination               `json:"pagination"`
}

// NotificationStats counts log rows by status and channel for the caller.
type NotificationStats struct {
	ByStatus  map[string]int64 `json:"by_status"`
	ByChannel map[string]int64 `json:"by_channel"`
	Total     int64            `json:"total"`
}
