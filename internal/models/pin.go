package models

import (
	"time"

	"github.com/google/uuid"
)

// Pin is a saved map location. Deleting a pin deletes its photos.
type Pin struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	LocationName string    `json:"location_name,omitempty" db:"location_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
