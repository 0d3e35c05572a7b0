package models

import "github.com/google/uuid"

// AlbumAction is the verb of a control command sent to the worker.
type AlbumAction string

const (
	AlbumActionLoad     AlbumAction = "load"
	AlbumActionRefresh  AlbumAction = "refresh"
	AlbumActionDownload AlbumAction = "download"
)

// AlbumCommand is published on the album.control subject by the API and
// handled by the worker's acquisition manager.
type AlbumCommand struct {
	Action  AlbumAction `json:"action"`
	PinID   uuid.UUID   `json:"pin_id"`
	PhotoID *uuid.UUID  `json:"photo_id,omitempty"` // download only
}

// PhotoEventType classifies events published by the worker.
type PhotoEventType string

const (
	EventPhotoFilled   PhotoEventType = "photo_filled"
	EventPhotoFailed   PhotoEventType = "photo_failed"
	EventAlbumReloaded PhotoEventType = "album_reloaded"
	EventAlbumError    PhotoEventType = "album_error"
)

// PhotoEvent is the message published to the EVENTS stream after the
// worker changes a pin's photo set. The API feeds these into the
// per-pin projections and the WebSocket hub.
type PhotoEvent struct {
	Type    PhotoEventType `json:"type"`
	PinID   uuid.UUID      `json:"pin_id"`
	PhotoID *uuid.UUID     `json:"photo_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}
