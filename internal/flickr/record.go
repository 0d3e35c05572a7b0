package flickr

import "errors"

// Sentinel errors for the search, decode and resolve failure modes.
var (
	// ErrMalformed means the response body parsed as neither of the two
	// wire shapes the search API serves.
	ErrMalformed = errors.New("flickr: malformed search response")
	// ErrEmptyResponse means the search succeeded but returned no records.
	ErrEmptyResponse = errors.New("flickr: empty search response")
	// ErrMissingFarm means the record cannot be resolved to an image URL.
	ErrMissingFarm = errors.New("flickr: record has no farm id")
	// ErrNetwork wraps transport-level failures, including non-2xx replies.
	ErrNetwork = errors.New("flickr: network failure")
)

// PhotoRecord is one decoded search result, not yet resolved to an image
// URL. FarmID is 0 when the API variant omits it; such records cannot be
// resolved and are skipped by callers.
type PhotoRecord struct {
	ExternalID string
	Owner      string
	Secret     string
	ServerID   string
	FarmID     int
	Title      string
	IsPublic   bool
	IsFriend   bool
	IsFamily   bool
}

// valid reports whether the record carries every field resolution and
// caching depend on.
func (r PhotoRecord) valid() bool {
	return r.ExternalID != "" && r.Secret != "" && r.ServerID != ""
}
