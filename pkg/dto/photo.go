package dto

import "github.com/google/uuid"

type PhotoResponse struct {
	ID        uuid.UUID `json:"id"`
	PinID     uuid.UUID `json:"pin_id"`
	SourceURL string    `json:"source_url,omitempty"`
	HasData   bool      `json:"has_data"`
	ImageURL  string    `json:"image_url,omitempty"` // local proxy URL, set once filled
}

type PhotoListResponse struct {
	PinID  uuid.UUID       `json:"pin_id"`
	Photos []PhotoResponse `json:"photos"`
	Total  int             `json:"total"`
}

// WSEvent is a WebSocket message for real-time album delivery.
type WSEvent struct {
	Type    string     `json:"type"` // photo_filled, photo_failed, album_reloaded, album_error
	PinID   uuid.UUID  `json:"pin_id"`
	PhotoID *uuid.UUID `json:"photo_id,omitempty"`
	Error   string     `json:"error,omitempty"`
}
