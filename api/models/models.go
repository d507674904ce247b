// Package models tracks all api models for request and responses
package models

import (
	"encoding/json"

	"inkframe/store"
)

type PhotoListResponse struct {
	Photos []store.PhotoRef `json:"photos"`
}

type UploadResponse struct {
	Name    string `json:"name"`
	Success bool   `json:"success"`
}

// CroppedUploadRequest carries a client-side crop as a base64 data URL.
type CroppedUploadRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
	IsRecrop bool   `json:"is_recrop"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type DisplayResponse struct {
	Success   bool   `json:"success"`
	Displayed string `json:"displayed"`
}

type ThumbnailResponse struct {
	Thumbnail string `json:"thumbnail"`
}

// UpdateConfigRequest is a partial update: only fields present in the body
// are applied to the stored document.
type UpdateConfigRequest struct {
	CycleEnabled  *bool             `json:"cycle_enabled,omitempty"`
	CycleInterval *int              `json:"cycle_interval,omitempty"`
	Orientation   *string           `json:"orientation,omitempty"`
	PhotoOrder    *[]string         `json:"photo_order,omitempty"`
	QuietHours    *store.QuietHours `json:"quiet_hours,omitempty"`
}

type AvailableWidget struct {
	Name          string          `json:"name"`
	DefaultConfig json.RawMessage `json:"default_config"`
}

type WidgetListResponse struct {
	Current   map[string]json.RawMessage `json:"current"`
	Available map[string]AvailableWidget `json:"available"`
}

type WidgetUpdateResponse struct {
	Success bool            `json:"success"`
	Config  json.RawMessage `json:"config"`
}

type WidgetOptionsResponse struct {
	PositionPresets []string `json:"position_presets"`
	StylePresets    []string `json:"style_presets"`
}

// WidgetPreviewRequest composites the given widget configs onto a photo
// without persisting anything.
type WidgetPreviewRequest struct {
	Photo       string                     `json:"photo"`
	Widgets     map[string]json.RawMessage `json:"widgets"`
	Orientation string                     `json:"orientation"`
}

type PreviewResponse struct {
	Preview string `json:"preview"`
}

type StatusResponse struct {
	SchedulerRunning bool   `json:"scheduler_running"`
	DisplayAvailable bool   `json:"display_available"`
	PhotoCount       int    `json:"photo_count"`
	CurrentPhoto     string `json:"current_photo"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
