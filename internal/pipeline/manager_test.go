package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgunnelsporter/VirtualTourist/internal/flickr"
	"github.com/sgunnelsporter/VirtualTourist/internal/models"
	"github.com/sgunnelsporter/VirtualTourist/internal/storage"
)

// fakeSearcher serves a fixed record list and counts searches.
type fakeSearcher struct {
	mu      sync.Mutex
	records []flickr.PhotoRecord
	err     error
	calls   int
}

func (f *fakeSearcher) PickPage() int { return 1 }

func (f *fakeSearcher) Search(_ context.Context, _, _ float64, _ int) ([]flickr.PhotoRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSearcher) searchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeFetcher returns fixed bytes, optionally blocking until released so
// tests can hold a download in flight.
type fakeFetcher struct {
	mu      sync.Mutex
	data    []byte
	err     error
	calls   int
	started chan string
	release chan struct{}
}

func (f *fakeFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	started, release := f.started, f.release
	data, err := f.data, f.err
	f.mu.Unlock()

	if started != nil {
		started <- imageURL
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *fakeFetcher) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// eventRecorder collects published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []models.PhotoEvent
}

func (r *eventRecorder) PublishEvent(_ context.Context, ev models.PhotoEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *eventRecorder) byType(t models.PhotoEventType) []models.PhotoEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PhotoEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func parisRecords() []flickr.PhotoRecord {
	return []flickr.PhotoRecord{
		{ExternalID: "5001", Secret: "s1", ServerID: "66", FarmID: 7, Title: "Tour Eiffel"},
		{ExternalID: "5002", Secret: "s2", ServerID: "67", FarmID: 8, Title: "Louvre"},
		{ExternalID: "5003", Secret: "s3", ServerID: "68", FarmID: 9, Title: "Seine"},
	}
}

func newTestManager(t *testing.T, search *fakeSearcher, fetch *fakeFetcher) (*Manager, *storage.MemoryStore, *eventRecorder, uuid.UUID) {
	t.Helper()
	store := storage.NewMemoryStore()
	events := &eventRecorder{}
	m := NewManager(search, fetch, store, events)

	pin, err := store.CreatePin(context.Background(), 48.8584, 2.2945, "Paris, France")
	require.NoError(t, err)
	return m, store, events, pin.ID
}

func TestLoadPopulatesEmptyPin(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, events, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	require.Len(t, photos, 3)
	for _, p := range photos {
		assert.True(t, p.HasData())
	}
	assert.Len(t, events.byType(models.EventAlbumReloaded), 1)
	assert.Len(t, events.byType(models.EventPhotoFilled), 3)
}

func TestLoadIsIdempotent(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, _, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()
	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()

	// A populated pin is served from cache; no second search runs.
	assert.Equal(t, 1, search.searchCalls())

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	assert.Len(t, photos, 3)
}

func TestLoadUnknownPin(t *testing.T) {
	m, _, _, _ := newTestManager(t, &fakeSearcher{}, &fakeFetcher{})
	err := m.Load(context.Background(), uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadSearchFailure(t *testing.T) {
	search := &fakeSearcher{err: flickr.ErrNetwork}
	m, store, events, pinID := newTestManager(t, search, &fakeFetcher{})

	err := m.Load(context.Background(), pinID)
	require.ErrorIs(t, err, flickr.ErrNetwork)

	// The pin stays empty and recoverable; the failure is reported.
	photos, err2 := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err2)
	assert.Empty(t, photos)
	assert.Len(t, events.byType(models.EventAlbumError), 1)
}

func TestLoadSkipsUnresolvableRecords(t *testing.T) {
	records := parisRecords()
	records[1].FarmID = 0
	search := &fakeSearcher{records: records}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, _, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	assert.Len(t, photos, 2)
}

func TestRefreshReplacesPhotoSet(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, _, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()
	before, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)

	require.NoError(t, m.Refresh(context.Background(), pinID))
	m.Wait()
	after, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)

	require.Len(t, after, 3)
	for _, old := range before {
		for _, p := range after {
			assert.NotEqual(t, old.ID, p.ID)
		}
	}
	assert.Equal(t, 2, search.searchCalls())
}

func TestRefreshDiscardsInflightDownloads(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()[:1]}
	fetch := &fakeFetcher{
		data:    []byte("stale"),
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
	m, store, _, pinID := newTestManager(t, search, fetch)

	done := make(chan error, 1)
	go func() { done <- m.Load(context.Background(), pinID) }()
	<-fetch.started
	require.NoError(t, <-done)

	// Refresh while the first download is still in flight. Its photo row
	// is deleted and its generation is stale.
	fetch.mu.Lock()
	oldRelease := fetch.release
	fetch.started = nil
	fetch.release = nil
	fetch.data = []byte("fresh")
	fetch.mu.Unlock()
	require.NoError(t, m.Refresh(context.Background(), pinID))

	// Let the stale download finish; its result must be discarded.
	close(oldRelease)
	m.Wait()

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	data, err := store.PhotoData(context.Background(), photos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), data)
}

func TestDeleteMidDownloadStaysDeleted(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()[:1]}
	fetch := &fakeFetcher{
		data:    []byte("jpeg"),
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	m, store, _, pinID := newTestManager(t, search, fetch)

	done := make(chan error, 1)
	go func() { done <- m.Load(context.Background(), pinID) }()
	<-fetch.started
	require.NoError(t, <-done)

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	require.NoError(t, store.DeletePhoto(context.Background(), photos[0].ID))

	close(fetch.release)
	m.Wait()

	// The late completion must not bring the photo back.
	photos, err = store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func TestRequestDownloadAtMostOneInFlight(t *testing.T) {
	store := storage.NewMemoryStore()
	fetch := &fakeFetcher{
		data:    []byte("jpeg"),
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	m := NewManager(&fakeSearcher{}, fetch, store, &eventRecorder{})

	pin, err := store.CreatePin(context.Background(), 48.8584, 2.2945, "")
	require.NoError(t, err)
	photo, err := store.CreatePendingPhoto(context.Background(), pin.ID, "https://farm7.staticflickr.com/66/5001_s1.jpg")
	require.NoError(t, err)

	require.NoError(t, m.RequestDownload(context.Background(), pin.ID, photo.ID))
	<-fetch.started

	// Repeated render passes while the download runs do not start more.
	for i := 0; i < 5; i++ {
		require.NoError(t, m.RequestDownload(context.Background(), pin.ID, photo.ID))
	}
	assert.Equal(t, 1, fetch.fetchCalls())

	close(fetch.release)
	m.Wait()

	// Once filled, further requests are no-ops too.
	require.NoError(t, m.RequestDownload(context.Background(), pin.ID, photo.ID))
	m.Wait()
	assert.Equal(t, 1, fetch.fetchCalls())
}

func TestRequestDownloadDeletedPhoto(t *testing.T) {
	m, _, _, pinID := newTestManager(t, &fakeSearcher{}, &fakeFetcher{})
	// Deleted or unknown photos are silently skipped.
	require.NoError(t, m.RequestDownload(context.Background(), pinID, uuid.New()))
}

func TestFailedDownloadLeavesPhotoPending(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()[:1]}
	fetch := &fakeFetcher{err: errors.New("timeout")}
	m, store, events, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.Load(context.Background(), pinID))
	m.Wait()

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.False(t, photos[0].HasData())
	assert.Len(t, events.byType(models.EventPhotoFailed), 1)

	// The pending entry can be retried and then succeeds.
	fetch.mu.Lock()
	fetch.err = nil
	fetch.data = []byte("jpeg")
	fetch.mu.Unlock()
	require.NoError(t, m.RequestDownload(context.Background(), pinID, photos[0].ID))
	m.Wait()

	got, err := store.GetPhoto(context.Background(), photos[0].ID)
	require.NoError(t, err)
	assert.True(t, got.HasData())
}

func TestHandleCommand(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, _, pinID := newTestManager(t, search, fetch)

	require.NoError(t, m.HandleCommand(context.Background(), models.AlbumCommand{
		Action: models.AlbumActionLoad,
		PinID:  pinID,
	}))
	m.Wait()
	require.NoError(t, m.HandleCommand(context.Background(), models.AlbumCommand{
		Action: models.AlbumActionRefresh,
		PinID:  pinID,
	}))
	m.Wait()
	assert.Equal(t, 2, search.searchCalls())

	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	require.NotEmpty(t, photos)

	err = m.HandleCommand(context.Background(), models.AlbumCommand{
		Action: models.AlbumActionDownload,
		PinID:  pinID,
	})
	require.Error(t, err) // missing photo id

	err = m.HandleCommand(context.Background(), models.AlbumCommand{Action: "dance", PinID: pinID})
	require.Error(t, err)
}

func TestConcurrentLoadsSearchOnce(t *testing.T) {
	search := &fakeSearcher{records: parisRecords()}
	fetch := &fakeFetcher{data: []byte("jpeg")}
	m, store, _, pinID := newTestManager(t, search, fetch)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Load(context.Background(), pinID)
		}()
	}
	wg.Wait()
	m.Wait()

	// Per-pin serialization: the first load populates, the rest see the
	// cached set.
	assert.Equal(t, 1, search.searchCalls())
	photos, err := store.PhotosForPin(context.Background(), pinID)
	require.NoError(t, err)
	assert.Len(t, photos, 3)
}
