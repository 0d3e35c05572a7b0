package projection

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

// recordingRequester notes which photos a render pass asked to download.
type recordingRequester struct {
	mu       sync.Mutex
	requests []uuid.UUID
}

func (r *recordingRequester) RequestDownload(_ context.Context, _, photoID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, photoID)
	return nil
}

func (r *recordingRequester) requested() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.requests...)
}

func seedAlbum(t *testing.T) (*Album, *storage.MemoryStore, *recordingRequester, uuid.UUID, []models.Photo) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	req := &recordingRequester{}

	pin, err := store.CreatePin(ctx, 48.8584, 2.2945, "Paris, France")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := store.CreatePendingPhoto(ctx, pin.ID, "https://farm7.staticflickr.com/66/x.jpg")
		require.NoError(t, err)
	}
	photos, err := store.PhotosForPin(ctx, pin.ID)
	require.NoError(t, err)

	a := NewAlbum(pin.ID, store, req)
	require.NoError(t, a.Reload(ctx))
	return a, store, req, pin.ID, photos
}

func TestReloadMatchesStoreOrder(t *testing.T) {
	a, _, _, _, photos := seedAlbum(t)

	require.Equal(t, len(photos), a.Count())
	for i, p := range photos {
		entry, ok := a.EntryAt(context.Background(), i)
		require.True(t, ok)
		assert.Equal(t, p.ID, entry.PhotoID)
		assert.False(t, entry.HasData)
	}
}

func TestEntryAtOutOfRange(t *testing.T) {
	a, _, _, _, _ := seedAlbum(t)
	_, ok := a.EntryAt(context.Background(), -1)
	assert.False(t, ok)
	_, ok = a.EntryAt(context.Background(), a.Count())
	assert.False(t, ok)
}

func TestRenderRequestsPendingDownloads(t *testing.T) {
	a, store, req, _, photos := seedAlbum(t)
	ctx := context.Background()

	// Fill one photo; rendering must only request the still-pending two.
	require.NoError(t, store.FillPhotoData(ctx, photos[0].ID, []byte("jpeg")))
	require.NoError(t, a.Reload(ctx))

	a.Entries(ctx)

	requested := req.requested()
	assert.Len(t, requested, 2)
	assert.NotContains(t, requested, photos[0].ID)
}

func TestApplyFillKeepsIndexes(t *testing.T) {
	a, store, _, _, photos := seedAlbum(t)
	ctx := context.Background()

	var changes []Change
	unsub := a.Subscribe(func(ch Change) { changes = append(changes, ch) })
	defer unsub()

	target := photos[1]
	require.NoError(t, store.FillPhotoData(ctx, target.ID, []byte("jpeg")))
	a.ApplyFill(ctx, target.ID)

	// The filled entry stays at index 1; neighbors do not move.
	entry, ok := a.EntryAt(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, target.ID, entry.PhotoID)
	assert.True(t, entry.HasData)

	for i, p := range photos {
		entry, ok := a.EntryAt(ctx, i)
		require.True(t, ok)
		assert.Equal(t, p.ID, entry.PhotoID)
	}

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeUpdate, changes[0].Kind)
	assert.Equal(t, 1, changes[0].Index)
}

func TestApplyFillUnknownPhotoInsertsInOrder(t *testing.T) {
	a, store, _, pinID, _ := seedAlbum(t)
	ctx := context.Background()

	// A photo created after the last reload (event raced the reload).
	late, err := store.CreatePendingPhoto(ctx, pinID, "https://farm7.staticflickr.com/66/late.jpg")
	require.NoError(t, err)
	require.NoError(t, store.FillPhotoData(ctx, late.ID, []byte("jpeg")))

	a.ApplyFill(ctx, late.ID)

	require.Equal(t, 4, a.Count())
	entries := a.Entries(ctx)
	assert.True(t, sortedByIDDesc(entries))
}

func TestApplyFillIgnoresOtherPins(t *testing.T) {
	a, store, _, _, _ := seedAlbum(t)
	ctx := context.Background()

	other, err := store.CreatePin(ctx, 51.5007, -0.1246, "London, UK")
	require.NoError(t, err)
	photo, err := store.CreatePendingPhoto(ctx, other.ID, "https://farm7.staticflickr.com/66/y.jpg")
	require.NoError(t, err)
	require.NoError(t, store.FillPhotoData(ctx, photo.ID, []byte("jpeg")))

	a.ApplyFill(ctx, photo.ID)
	assert.Equal(t, 3, a.Count())
}

func TestApplyRemove(t *testing.T) {
	a, _, _, _, photos := seedAlbum(t)
	ctx := context.Background()

	var changes []Change
	unsub := a.Subscribe(func(ch Change) { changes = append(changes, ch) })
	defer unsub()

	a.ApplyRemove(photos[1].ID)

	require.Equal(t, 2, a.Count())
	entry, ok := a.EntryAt(ctx, 1)
	require.True(t, ok)
	assert.Equal(t, photos[2].ID, entry.PhotoID)

	require.Len(t, changes, 1)
	assert.Equal(t, ChangeRemove, changes[0].Kind)
	assert.Equal(t, 1, changes[0].Index)

	// Removing an unknown photo is a no-op.
	a.ApplyRemove(uuid.New())
	assert.Equal(t, 2, a.Count())
	assert.Len(t, changes, 1)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	a, _, _, _, photos := seedAlbum(t)

	var count int
	unsub := a.Subscribe(func(Change) { count++ })
	a.ApplyRemove(photos[0].ID)
	unsub()
	a.ApplyRemove(photos[1].ID)

	assert.Equal(t, 1, count)
}

func sortedByIDDesc(entries []PhotoEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].PhotoID.String() < entries[i].PhotoID.String() {
			return false
		}
	}
	return true
}
