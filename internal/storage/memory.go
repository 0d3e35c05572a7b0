package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
)

// MemoryStore is an in-memory Store used by tests and local development.
// It mirrors the PostgresStore semantics: cascade on pin delete,
// fill-once bytes, ErrNotFound for entities that are gone.
type MemoryStore struct {
	mu     sync.RWMutex
	pins   map[uuid.UUID]models.Pin
	photos map[uuid.UUID]models.Photo
	data   map[uuid.UUID][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pins:   make(map[uuid.UUID]models.Pin),
		photos: make(map[uuid.UUID]models.Photo),
		data:   make(map[uuid.UUID][]byte),
	}
}

func (s *MemoryStore) CreatePin(_ context.Context, lat, lon float64, name string) (*models.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := models.Pin{
		ID:           uuid.New(),
		Latitude:     lat,
		Longitude:    lon,
		LocationName: name,
		CreatedAt:    time.Now(),
	}
	s.pins[p.ID] = p
	return &p, nil
}

func (s *MemoryStore) GetPin(_ context.Context, id uuid.UUID) (*models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pins[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) ListPins(_ context.Context) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pins := make([]models.Pin, 0, len(s.pins))
	for _, p := range s.pins {
		pins = append(pins, p)
	}
	sort.Slice(pins, func(i, j int) bool { return pins[i].CreatedAt.After(pins[j].CreatedAt) })
	return pins, nil
}

func (s *MemoryStore) DeletePin(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pins[id]; !ok {
		return ErrNotFound
	}
	delete(s.pins, id)
	for photoID, p := range s.photos {
		if p.PinID == id {
			delete(s.photos, photoID)
			delete(s.data, photoID)
		}
	}
	return nil
}

func (s *MemoryStore) CreatePendingPhoto(_ context.Context, pinID uuid.UUID, imageURL string) (*models.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pins[pinID]; !ok {
		return nil, ErrNotFound
	}
	p := models.Photo{
		ID:        uuid.New(),
		PinID:     pinID,
		ImageURL:  imageURL,
		CreatedAt: time.Now(),
	}
	s.photos[p.ID] = p
	return &p, nil
}

func (s *MemoryStore) GetPhoto(_ context.Context, id uuid.UUID) (*models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) FillPhotoData(_ context.Context, photoID uuid.UUID, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.photos[photoID]
	if !ok {
		return ErrNotFound
	}
	if p.ObjectKey != "" {
		// Already filled; first download wins.
		return nil
	}
	p.ObjectKey = photoObjectKey(p.PinID, p.ID)
	s.photos[photoID] = p
	s.data[photoID] = data
	return nil
}

func (s *MemoryStore) PhotoData(_ context.Context, photoID uuid.UUID) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[photoID]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *MemoryStore) PhotosForPin(_ context.Context, pinID uuid.UUID) ([]models.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var photos []models.Photo
	for _, p := range s.photos {
		if p.PinID == pinID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].ID.String() > photos[j].ID.String()
	})
	return photos, nil
}

func (s *MemoryStore) DeletePhoto(_ context.Context, photoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[photoID]; !ok {
		return ErrNotFound
	}
	delete(s.photos, photoID)
	delete(s.data, photoID)
	return nil
}

func (s *MemoryStore) DeleteAllPhotosForPin(_ context.Context, pinID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for photoID, p := range s.photos {
		if p.PinID == pinID {
			ids = append(ids, photoID)
			delete(s.photos, photoID)
			delete(s.data, photoID)
		}
	}
	return ids, nil
}
