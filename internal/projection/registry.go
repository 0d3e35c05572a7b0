package projection

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

// Registry hands out one Album per pin and routes worker photo events
// into them.
type Registry struct {
	store     storage.Store
	requester DownloadRequester

	mu     sync.Mutex
	albums map[uuid.UUID]*Album
}

func NewRegistry(store storage.Store, requester DownloadRequester) *Registry {
	return &Registry{
		store:     store,
		requester: requester,
		albums:    make(map[uuid.UUID]*Album),
	}
}

// Album returns the pin's album, creating and loading it on first use.
func (r *Registry) Album(ctx context.Context, pinID uuid.UUID) (*Album, error) {
	r.mu.Lock()
	a, ok := r.albums[pinID]
	if !ok {
		a = NewAlbum(pinID, r.store, r.requester)
		r.albums[pinID] = a
	}
	r.mu.Unlock()

	if !ok {
		if err := a.Reload(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Lookup returns the album only if it already exists.
func (r *Registry) Lookup(pinID uuid.UUID) (*Album, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.albums[pinID]
	return a, ok
}

// Drop forgets a pin's album after the pin is deleted.
func (r *Registry) Drop(pinID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.albums, pinID)
}

// HandleEvent applies one worker event to the affected album. Events
// for pins nobody is viewing are ignored; the album is rebuilt from the
// store when first requested.
func (r *Registry) HandleEvent(ctx context.Context, ev models.PhotoEvent) {
	a, ok := r.Lookup(ev.PinID)
	if !ok {
		return
	}

	switch ev.Type {
	case models.EventAlbumReloaded, models.EventAlbumError:
		if err := a.Reload(ctx); err != nil {
			return
		}
	case models.EventPhotoFilled:
		if ev.PhotoID != nil {
			a.ApplyFill(ctx, *ev.PhotoID)
		}
	case models.EventPhotoFailed:
		// Entry stays pending; the next render pass retries.
	}
}
