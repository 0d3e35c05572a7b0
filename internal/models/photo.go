package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is one cached image belonging to exactly one pin. A photo with an
// ObjectKey is filled; one without is pending (downloading, or failed and
// eligible for a render-triggered retry).
type Photo struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PinID     uuid.UUID `json:"pin_id" db:"pin_id"`
	ImageURL  string    `json:"image_url,omitempty" db:"image_url"`
	ObjectKey string    `json:"-" db:"object_key"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// HasData reports whether the image bytes have been stored.
func (p Photo) HasData() bool {
	return p.ObjectKey != ""
}
