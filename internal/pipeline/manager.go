package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/flickr"
	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/observability"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

// Searcher finds photo records near a coordinate.
type Searcher interface {
	PickPage() int
	Search(ctx context.Context, lat, lon float64, page int) ([]flickr.PhotoRecord, error)
}

// Fetcher downloads image bytes from a resolved asset URL.
type Fetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// Publisher emits photo events after the store changes.
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.PhotoEvent) error
}

// Manager runs the per-pin photo acquisition state machine: it decides
// between serving the cached set and searching fresh, creates pending
// photos, and fills them from background downloads.
//
// Load and Refresh for one pin are serialized against each other;
// different pins proceed fully in parallel. Each photo has at most one
// download in flight at any time. There is no cancellation primitive: a
// download that outlives its photo (individual delete, or a refresh that
// replaced the whole set) finds the row gone and discards its result.
type Manager struct {
	search Searcher
	fetch  Fetcher
	store  storage.Store
	events Publisher

	mu         sync.Mutex
	inflight   map[uuid.UUID]struct{}
	generation map[uuid.UUID]uint64
	pinLocks   map[uuid.UUID]*sync.Mutex

	wg sync.WaitGroup
}

func NewManager(search Searcher, fetch Fetcher, store storage.Store, events Publisher) *Manager {
	return &Manager{
		search:     search,
		fetch:      fetch,
		store:      store,
		events:     events,
		inflight:   make(map[uuid.UUID]struct{}),
		generation: make(map[uuid.UUID]uint64),
		pinLocks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// HandleCommand processes an album control command.
func (m *Manager) HandleCommand(ctx context.Context, cmd models.AlbumCommand) error {
	switch cmd.Action {
	case models.AlbumActionLoad:
		return m.Load(ctx, cmd.PinID)
	case models.AlbumActionRefresh:
		return m.Refresh(ctx, cmd.PinID)
	case models.AlbumActionDownload:
		if cmd.PhotoID == nil {
			return fmt.Errorf("download command without photo id")
		}
		return m.RequestDownload(ctx, cmd.PinID, *cmd.PhotoID)
	default:
		return fmt.Errorf("unknown action: %s", cmd.Action)
	}
}

// Load populates the photo set for a pin that has none. A pin whose
// cache is already populated is left alone: no search, no downloads.
func (m *Manager) Load(ctx context.Context, pinID uuid.UUID) error {
	lock := m.pinLock(pinID)
	lock.Lock()
	defer lock.Unlock()

	pin, err := m.store.GetPin(ctx, pinID)
	if err != nil {
		return fmt.Errorf("load album: %w", err)
	}

	photos, err := m.store.PhotosForPin(ctx, pinID)
	if err != nil {
		return fmt.Errorf("load album: %w", err)
	}
	if len(photos) > 0 {
		return nil
	}

	return m.runAlbum(ctx, pin)
}

// Refresh is the new-collection request: the current photo set is
// discarded wholesale and a fresh page is fetched. Bumping the pin's
// generation first guarantees downloads still in flight for the old set
// cannot resurrect a deleted photo.
func (m *Manager) Refresh(ctx context.Context, pinID uuid.UUID) error {
	lock := m.pinLock(pinID)
	lock.Lock()
	defer lock.Unlock()

	pin, err := m.store.GetPin(ctx, pinID)
	if err != nil {
		return fmt.Errorf("refresh album: %w", err)
	}

	m.mu.Lock()
	m.generation[pinID]++
	m.mu.Unlock()

	if _, err := m.store.DeleteAllPhotosForPin(ctx, pinID); err != nil {
		return fmt.Errorf("refresh album: %w", err)
	}
	observability.AlbumRefreshes.Inc()

	return m.runAlbum(ctx, pin)
}

// RequestDownload starts a download for a pending photo unless one is
// already in flight. The projection calls this on render passes over
// entries that still have no data, which is the only retry path.
func (m *Manager) RequestDownload(ctx context.Context, pinID, photoID uuid.UUID) error {
	photo, err := m.store.GetPhoto(ctx, photoID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("request download: %w", err)
	}
	if photo.HasData() || photo.ImageURL == "" {
		return nil
	}

	m.startDownload(ctx, pinID, photoID, photo.ImageURL, m.currentGeneration(pinID))
	return nil
}

// Wait blocks until all in-flight downloads have settled. Used on
// worker shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runAlbum(ctx context.Context, pin *models.Pin) error {
	gen := m.currentGeneration(pin.ID)
	page := m.search.PickPage()

	observability.SearchesTotal.Inc()
	records, err := m.search.Search(ctx, pin.Latitude, pin.Longitude, page)
	if err != nil {
		m.publish(ctx, models.PhotoEvent{
			Type:  models.EventAlbumError,
			PinID: pin.ID,
			Error: err.Error(),
		})
		return fmt.Errorf("search photos: %w", err)
	}

	slog.Info("photo search complete", "pin_id", pin.ID, "page", page, "records", len(records))

	type pending struct {
		photoID uuid.UUID
		url     string
	}
	var created []pending
	for _, rec := range records {
		imageURL, err := flickr.ResolveImageURL(rec)
		if err != nil {
			slog.Debug("skipping unresolvable record", "external_id", rec.ExternalID, "error", err)
			continue
		}
		photo, err := m.store.CreatePendingPhoto(ctx, pin.ID, imageURL)
		if err != nil {
			slog.Error("create pending photo", "pin_id", pin.ID, "error", err)
			continue
		}
		created = append(created, pending{photoID: photo.ID, url: imageURL})
	}

	m.publish(ctx, models.PhotoEvent{Type: models.EventAlbumReloaded, PinID: pin.ID})

	for _, p := range created {
		m.startDownload(ctx, pin.ID, p.photoID, p.url, gen)
	}
	return nil
}

func (m *Manager) startDownload(ctx context.Context, pinID, photoID uuid.UUID, imageURL string, gen uint64) {
	m.mu.Lock()
	if _, running := m.inflight[photoID]; running {
		m.mu.Unlock()
		return
	}
	m.inflight[photoID] = struct{}{}
	m.mu.Unlock()

	observability.InflightDownloads.Inc()
	m.wg.Add(1)

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.inflight, photoID)
			m.mu.Unlock()
			observability.InflightDownloads.Dec()
			m.wg.Done()
		}()

		data, err := m.fetch.FetchImage(ctx, imageURL)
		if err != nil {
			observability.DownloadFailures.Inc()
			slog.Warn("image download failed", "photo_id", photoID, "error", err)
			m.publish(ctx, models.PhotoEvent{
				Type:    models.EventPhotoFailed,
				PinID:   pinID,
				PhotoID: &photoID,
				Error:   err.Error(),
			})
			return
		}

		if m.currentGeneration(pinID) != gen {
			// The photo set was replaced while we were downloading.
			slog.Debug("discarding download for replaced photo set", "photo_id", photoID)
			return
		}

		if err := m.store.FillPhotoData(ctx, photoID, data); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Photo deleted mid-download; the result is simply dropped.
				slog.Debug("discarding download for deleted photo", "photo_id", photoID)
				return
			}
			slog.Error("fill photo data", "photo_id", photoID, "error", err)
			return
		}

		observability.PhotosDownloaded.Inc()
		m.publish(ctx, models.PhotoEvent{
			Type:    models.EventPhotoFilled,
			PinID:   pinID,
			PhotoID: &photoID,
		})
	}()
}

func (m *Manager) publish(ctx context.Context, ev models.PhotoEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishEvent(ctx, ev); err != nil {
		slog.Warn("publish photo event", "type", ev.Type, "pin_id", ev.PinID, "error", err)
	}
}

func (m *Manager) currentGeneration(pinID uuid.UUID) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation[pinID]
}

func (m *Manager) pinLock(pinID uuid.UUID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.pinLocks[pinID]
	if !ok {
		lock = &sync.Mutex{}
		m.pinLocks[pinID] = lock
	}
	return lock
}
