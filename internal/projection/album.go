package projection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

// DownloadRequester triggers a (re)download for a pending photo. The
// acquisition manager implements it directly; in the API process it is
// a thin adapter publishing a download command.
type DownloadRequester interface {
	RequestDownload(ctx context.Context, pinID, photoID uuid.UUID) error
}

// PhotoEntry is one renderable slot of an album: either a filled photo
// or a placeholder still waiting for its bytes.
type PhotoEntry struct {
	PhotoID   uuid.UUID
	SourceURL string
	HasData   bool
}

type ChangeKind int

const (
	// ChangeReload invalidates the whole list (initial load or refresh).
	ChangeReload ChangeKind = iota
	// ChangeInsert adds one entry at Index.
	ChangeInsert
	// ChangeUpdate fills one entry in place; no other index moves.
	ChangeUpdate
	// ChangeRemove drops the entry that was at Index.
	ChangeRemove
)

// Change describes one mutation of an album's entry list.
type Change struct {
	Kind  ChangeKind
	Index int
	Entry PhotoEntry
}

// Album is the observable, render-order-stable photo list for one pin.
// Entries keep the store's id-descending order; filling an entry's data
// never moves any index. Only Reload replaces the list wholesale.
type Album struct {
	pinID     uuid.UUID
	store     storage.Store
	requester DownloadRequester

	mu      sync.RWMutex
	entries []PhotoEntry
	subs    map[int]func(Change)
	nextSub int
}

func NewAlbum(pinID uuid.UUID, store storage.Store, requester DownloadRequester) *Album {
	return &Album{
		pinID:     pinID,
		store:     store,
		requester: requester,
		subs:      make(map[int]func(Change)),
	}
}

// Reload rebuilds the entry list from the store.
func (a *Album) Reload(ctx context.Context) error {
	photos, err := a.store.PhotosForPin(ctx, a.pinID)
	if err != nil {
		return err
	}

	entries := make([]PhotoEntry, 0, len(photos))
	for _, p := range photos {
		entries = append(entries, PhotoEntry{
			PhotoID:   p.ID,
			SourceURL: p.ImageURL,
			HasData:   p.HasData(),
		})
	}

	a.mu.Lock()
	a.entries = entries
	a.mu.Unlock()

	a.notify(Change{Kind: ChangeReload})
	return nil
}

func (a *Album) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// EntryAt returns the entry at index i. Touching a pending entry that
// has a source URL requests its download; this render-time check is the
// only retry path for failed downloads, and the manager ensures a second
// render pass cannot start a duplicate request.
func (a *Album) EntryAt(ctx context.Context, i int) (PhotoEntry, bool) {
	a.mu.RLock()
	if i < 0 || i >= len(a.entries) {
		a.mu.RUnlock()
		return PhotoEntry{}, false
	}
	entry := a.entries[i]
	a.mu.RUnlock()

	if !entry.HasData && entry.SourceURL != "" && a.requester != nil {
		if err := a.requester.RequestDownload(ctx, a.pinID, entry.PhotoID); err != nil {
			slog.Warn("request photo download", "photo_id", entry.PhotoID, "error", err)
		}
	}
	return entry, true
}

// Entries returns a snapshot of the whole list, requesting downloads for
// pending entries the same way EntryAt does.
func (a *Album) Entries(ctx context.Context) []PhotoEntry {
	a.mu.RLock()
	snapshot := make([]PhotoEntry, len(a.entries))
	copy(snapshot, a.entries)
	a.mu.RUnlock()

	for _, entry := range snapshot {
		if !entry.HasData && entry.SourceURL != "" && a.requester != nil {
			if err := a.requester.RequestDownload(ctx, a.pinID, entry.PhotoID); err != nil {
				slog.Warn("request photo download", "photo_id", entry.PhotoID, "error", err)
			}
		}
	}
	return snapshot
}

// ApplyFill marks one photo as filled, in place. A fill for a photo the
// album has not seen yet (an event that raced a reload) is inserted in
// id order instead.
func (a *Album) ApplyFill(ctx context.Context, photoID uuid.UUID) {
	a.mu.Lock()
	for i := range a.entries {
		if a.entries[i].PhotoID == photoID {
			a.entries[i].HasData = true
			entry := a.entries[i]
			a.mu.Unlock()
			a.notify(Change{Kind: ChangeUpdate, Index: i, Entry: entry})
			return
		}
	}
	a.mu.Unlock()

	photo, err := a.store.GetPhoto(ctx, photoID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("lookup filled photo", "photo_id", photoID, "error", err)
		}
		return
	}
	if photo.PinID != a.pinID {
		return
	}

	entry := PhotoEntry{PhotoID: photo.ID, SourceURL: photo.ImageURL, HasData: photo.HasData()}

	a.mu.Lock()
	// Entries are ordered by id descending, matching the store.
	idx := len(a.entries)
	for i := range a.entries {
		if a.entries[i].PhotoID.String() < entry.PhotoID.String() {
			idx = i
			break
		}
	}
	a.entries = append(a.entries[:idx], append([]PhotoEntry{entry}, a.entries[idx:]...)...)
	a.mu.Unlock()

	a.notify(Change{Kind: ChangeInsert, Index: idx, Entry: entry})
}

// ApplyRemove drops one photo from the list, honoring a user delete
// immediately even while its download is still in flight.
func (a *Album) ApplyRemove(photoID uuid.UUID) {
	a.mu.Lock()
	for i := range a.entries {
		if a.entries[i].PhotoID == photoID {
			entry := a.entries[i]
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			a.mu.Unlock()
			a.notify(Change{Kind: ChangeRemove, Index: i, Entry: entry})
			return
		}
	}
	a.mu.Unlock()
}

// Subscribe registers a callback for entry changes and returns an
// unsubscribe func.
func (a *Album) Subscribe(fn func(Change)) func() {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func (a *Album) notify(ch Change) {
	a.mu.RLock()
	fns := make([]func(Change), 0, len(a.subs))
	for _, fn := range a.subs {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()

	for _, fn := range fns {
		fn(ch)
	}
}
