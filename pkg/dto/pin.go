package dto

import "github.com/google/uuid"

type CreatePinRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"required,gte=-180,lte=180"`
	// LocationName is the optional "City, Country" label produced by the
	// caller's reverse-geocoding step.
	LocationName string `json:"location_name,omitempty"`
}

type PinResponse struct {
	ID           uuid.UUID `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	LocationName string    `json:"location_name,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

type PinListResponse struct {
	Pins  []PinResponse `json:"pins"`
	Total int           `json:"total"`
}
