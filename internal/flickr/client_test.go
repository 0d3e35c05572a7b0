package flickr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgunnelsporter/VirtualTourist/internal/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.FlickrConfig{
		BaseURL:  baseURL,
		APIKey:   "test-key",
		RadiusKM: 5,
		PerPage:  30,
		MaxPage:  10,
		Timeout:  5 * time.Second,
	})
}

func TestSearchURL(t *testing.T) {
	c := testClient("https://example.test/rest/")

	raw := c.SearchURL(48.8584, 2.2945, 4)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "flickr.photos.search", q.Get("method"))
	assert.Equal(t, "test-key", q.Get("api_key"))
	assert.Equal(t, "48.8584", q.Get("lat"))
	assert.Equal(t, "2.2945", q.Get("lon"))
	assert.Equal(t, "5", q.Get("radius"))
	assert.Equal(t, "km", q.Get("radius_units"))
	assert.Equal(t, "30", q.Get("per_page"))
	assert.Equal(t, "4", q.Get("page"))
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "1", q.Get("nojsoncallback"))
}

func TestPickPagePinned(t *testing.T) {
	c := NewClient(config.FlickrConfig{Page: 4, MaxPage: 10})
	for i := 0; i < 20; i++ {
		assert.Equal(t, 4, c.PickPage())
	}
}

func TestPickPageRandomBounds(t *testing.T) {
	c := NewClient(config.FlickrConfig{MaxPage: 10})
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		page := c.PickPage()
		require.GreaterOrEqual(t, page, 1)
		require.LessOrEqual(t, page, 10)
		seen[page] = true
	}
	// 200 uniform draws from 10 pages land on more than one page.
	assert.Greater(t, len(seen), 1)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "flickr.photos.search", r.URL.Query().Get("method"))
		w.Write([]byte(`{"photos":{"photo":[
			{"id": "5001", "secret": "s1", "server": "66", "farm": 7, "title": "Tour Eiffel"}
		]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	records, err := c.Search(context.Background(), 48.8584, 2.2945, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Tour Eiffel", records[0].Title)
}

func TestSearchEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"photos":{"photo":[]}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), 48.8584, 2.2945, 1)
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestSearchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not a listing`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), 48.8584, 2.2945, 1)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), 48.8584, 2.2945, 1)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestSearchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).Search(context.Background(), 48.8584, 2.2945, 1)
	require.ErrorIs(t, err, ErrNetwork)
}

func TestFetchImage(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	data, err := testClient(srv.URL).FetchImage(context.Background(), srv.URL+"/5001_s1.jpg")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestFetchImageFailures(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL).FetchImage(context.Background(), srv.URL+"/nope.jpg")
		require.ErrorIs(t, err, ErrNetwork)
	})

	t.Run("empty body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		_, err := testClient(srv.URL).FetchImage(context.Background(), srv.URL+"/empty.jpg")
		require.ErrorIs(t, err, ErrNetwork)
	})
}
