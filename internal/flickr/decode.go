package flickr

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Decode turns a raw photos.search response into an ordered record list.
// Both wire shapes the API serves are accepted: the JSON document (either
// the nested {"photos":{"photo":[...]}} envelope or the flattened
// {"photos":[...]} variant) and the XML listing with one <photo> element
// per record. Records missing a required field are skipped individually;
// only a document that parses as neither shape is an error.
func Decode(data []byte) ([]PhotoRecord, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if trimmed[0] == '<' {
		return decodeXML(trimmed)
	}
	return decodeJSON(trimmed)
}

// --- JSON shape ---

// wireString tolerates fields the API serves either quoted or bare
// (server ids in particular have shipped as both).
type wireString string

func (s *wireString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = wireString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = wireString(n.String())
	return nil
}

type wireInt int

func (i *wireInt) UnmarshalJSON(b []byte) error {
	v := strings.Trim(string(b), `"`)
	if v == "" || v == "null" {
		*i = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*i = wireInt(n)
	return nil
}

type wireBool bool

func (v *wireBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(b), `"`) {
	case "true", "1":
		*v = true
	case "false", "0", "", "null":
		*v = false
	default:
		return fmt.Errorf("invalid flag value %s", b)
	}
	return nil
}

type jsonPhoto struct {
	ID       wireString `json:"id"`
	Owner    string     `json:"owner"`
	Secret   string     `json:"secret"`
	Server   wireString `json:"server"`
	Farm     wireInt    `json:"farm"`
	Title    string     `json:"title"`
	IsPublic wireBool   `json:"ispublic"`
	IsFriend wireBool   `json:"isfriend"`
	IsFamily wireBool   `json:"isfamily"`
}

func (p jsonPhoto) record() PhotoRecord {
	return PhotoRecord{
		ExternalID: string(p.ID),
		Owner:      p.Owner,
		Secret:     p.Secret,
		ServerID:   string(p.Server),
		FarmID:     int(p.Farm),
		Title:      p.Title,
		IsPublic:   bool(p.IsPublic),
		IsFriend:   bool(p.IsFriend),
		IsFamily:   bool(p.IsFamily),
	}
}

func decodeJSON(data []byte) ([]PhotoRecord, error) {
	var env struct {
		Photos json.RawMessage `json:"photos"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(env.Photos) == 0 {
		return nil, fmt.Errorf("%w: no photos field", ErrMalformed)
	}

	var wire []jsonPhoto
	if env.Photos[0] == '[' {
		if err := json.Unmarshal(env.Photos, &wire); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	} else {
		var inner struct {
			Photo []jsonPhoto `json:"photo"`
		}
		if err := json.Unmarshal(env.Photos, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		wire = inner.Photo
	}

	records := make([]PhotoRecord, 0, len(wire))
	for _, p := range wire {
		rec := p.record()
		if !rec.valid() {
			slog.Debug("skipping malformed photo record", "id", rec.ExternalID)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// --- XML shape ---

type xmlPhoto struct {
	ID       string `xml:"id,attr"`
	Owner    string `xml:"owner,attr"`
	Secret   string `xml:"secret,attr"`
	Server   string `xml:"server,attr"`
	Farm     int    `xml:"farm,attr"`
	Title    string `xml:"title,attr"`
	IsPublic int    `xml:"ispublic,attr"`
	IsFriend int    `xml:"isfriend,attr"`
	IsFamily int    `xml:"isfamily,attr"`
}

func (p xmlPhoto) record() PhotoRecord {
	return PhotoRecord{
		ExternalID: p.ID,
		Owner:      p.Owner,
		Secret:     p.Secret,
		ServerID:   p.Server,
		FarmID:     p.Farm,
		Title:      p.Title,
		IsPublic:   p.IsPublic == 1,
		IsFriend:   p.IsFriend == 1,
		IsFamily:   p.IsFamily == 1,
	}
}

type xmlListing struct {
	Photo []xmlPhoto `xml:"photo"`
}

func decodeXML(data []byte) ([]PhotoRecord, error) {
	// The listing either sits inside an <rsp> envelope or is the root
	// element itself.
	var env struct {
		Photos xmlListing `xml:"photos"`
	}
	var wire []xmlPhoto
	if err := xml.Unmarshal(data, &env); err == nil && len(env.Photos.Photo) > 0 {
		wire = env.Photos.Photo
	} else {
		var root xmlListing
		if err := xml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		wire = root.Photo
	}

	records := make([]PhotoRecord, 0, len(wire))
	for _, p := range wire {
		rec := p.record()
		if !rec.valid() {
			slog.Debug("skipping malformed photo record", "id", rec.ExternalID)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
