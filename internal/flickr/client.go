package flickr

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sgunnelsporter/VirtualTourist/internal/config"
)

// Client performs photo searches and image downloads against the Flickr
// REST API. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	radius  int
	perPage int
	page    int
	maxPage int
}

func NewClient(cfg config.FlickrConfig) *Client {
	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		radius:  cfg.RadiusKM,
		perPage: cfg.PerPage,
		page:    cfg.Page,
		maxPage: cfg.MaxPage,
	}
}

// PickPage returns the page to request. A configured page pins every
// search to that page; otherwise a page is drawn uniformly from
// [1, maxPage] so a new-collection request gets a different result set.
func (c *Client) PickPage() int {
	if c.page > 0 {
		return c.page
	}
	return 1 + rand.Intn(c.maxPage)
}

// SearchURL builds the deterministic request URL for a coordinate and page.
func (c *Client) SearchURL(lat, lon float64, page int) string {
	q := url.Values{}
	q.Set("method", "flickr.photos.search")
	q.Set("api_key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(c.radius))
	q.Set("radius_units", "km")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("format", "json")
	q.Set("nojsoncallback", "1")
	return c.baseURL + "?" + q.Encode()
}

// Search fetches one page of photo records near the coordinate.
func (c *Client) Search(ctx context.Context, lat, lon float64, page int) ([]PhotoRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SearchURL(lat, lon, page), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: search returned status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	records, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyResponse
	}
	return records, nil
}

// FetchImage downloads the raw image bytes for a resolved asset URL.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image returned status %d", ErrNetwork, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image body", ErrNetwork)
	}
	return data, nil
}
