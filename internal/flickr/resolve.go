package flickr

import "fmt"

// ResolveImageURL maps a record to its static image asset URL:
//
//	https://farm{farm}.staticflickr.com/{server}/{id}_{secret}.jpg
//
// Records without a farm id cannot be resolved; callers skip them rather
// than guessing a default farm.
func ResolveImageURL(rec PhotoRecord) (string, error) {
	if rec.FarmID == 0 {
		return "", ErrMissingFarm
	}
	return fmt.Sprintf("https://farm%d.staticflickr.com/%s/%s_%s.jpg",
		rec.FarmID, rec.ServerID, rec.ExternalID, rec.Secret), nil
}
