package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
)

// ErrNotFound is returned when a pin or photo no longer exists. A fill
// hitting ErrNotFound is the normal outcome of a download completing
// after its photo was deleted; callers discard the result silently.
var ErrNotFound = errors.New("storage: not found")

// Store is the durable entity store for pins and their cached photos.
// Mutating calls are safe from concurrent download completions; a photo's
// bytes, once filled, are never replaced except by deleting the photo.
type Store interface {
	CreatePin(ctx context.Context, lat, lon float64, name string) (*models.Pin, error)
	GetPin(ctx context.Context, id uuid.UUID) (*models.Pin, error)
	ListPins(ctx context.Context) ([]models.Pin, error)
	// DeletePin removes the pin and cascades to its photos and their bytes.
	DeletePin(ctx context.Context, id uuid.UUID) error

	CreatePendingPhoto(ctx context.Context, pinID uuid.UUID, imageURL string) (*models.Photo, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	// FillPhotoData stores the downloaded bytes for a pending photo.
	FillPhotoData(ctx context.Context, photoID uuid.UUID, data []byte) error
	// PhotoData returns the stored bytes; ErrNotFound while still pending.
	PhotoData(ctx context.Context, photoID uuid.UUID) ([]byte, error)
	// PhotosForPin returns the pin's photos ordered by id descending.
	PhotosForPin(ctx context.Context, pinID uuid.UUID) ([]models.Photo, error)
	DeletePhoto(ctx context.Context, photoID uuid.UUID) error
	// DeleteAllPhotosForPin bulk-deletes the pin's current photo set and
	// returns the removed photo ids. Used by new-collection refresh.
	DeleteAllPhotosForPin(ctx context.Context, pinID uuid.UUID) ([]uuid.UUID, error)
}
