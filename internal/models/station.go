package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BasicStationInfo is one element of the GBFS station_information feed.
type BasicStationInfo struct {
	StationID        string   `json:"station_id"`
	Name             string   `json:"name"`
	ShortName        string   `json:"short_name,omitempty"`
	Address          string   `json:"address,omitempty"`
	CrossStreet      string   `json:"cross_street,omitempty"`
	Lat              float64  `json:"lat"`
	Lon              float64  `json:"lon"`
	PostCode         string   `json:"post_code,omitempty"`
	Capacity         int      `json:"capacity"`
	RentalMethods    []string `json:"rental_methods,omitempty"`
	IsVirtualStation bool     `json:"is_virtual_station,omitempty"`

	// Extra holds the feed keys that have no typed field above, with each
	// value as it appeared in the feed (strings unquoted).
	Extra map[string]string `json:"-"`
}

var typedFeedKeys = map[string]bool{
	"station_id": true, "name": true, "short_name": true, "address": true,
	"cross_street": true, "lat": true, "lon": true, "post_code": true,
	"capacity": true, "rental_methods": true, "is_virtual_station": true,
}

// UnmarshalJSON maps a feed element field by field. station_id may be a
// string or a number; unknown keys are kept in Extra.
func (b *BasicStationInfo) UnmarshalJSON(data []byte) error {
	type feedStation BasicStationInfo
	var typed struct {
		feedStation
		StationID json.RawMessage `json:"station_id"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	id, err := decodeStationID(typed.StationID)
	if err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*b = BasicStationInfo(typed.feedStation)
	b.StationID = id
	b.Extra = nil
	for key, raw := range all {
		if typedFeedKeys[key] {
			continue
		}
		value, ok := rawText(raw)
		if !ok {
			continue
		}
		if b.Extra == nil {
			b.Extra = make(map[string]string)
		}
		b.Extra[key] = value
	}
	return nil
}

func decodeStationID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var id string
		err := json.Unmarshal(raw, &id)
		return id, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("station_id must be a string or a number: %w", err)
	}
	return n.String(), nil
}

// rawText renders a feed value verbatim: strings without their quotes, any
// other value as compact JSON. null is reported as absent.
func rawText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw), true
	}
	return compact.String(), true
}

// Fields returns every feed field under its feed name, untyped keys
// included. Empty optional fields are left out so they never shadow anything
// during a merge.
func (b BasicStationInfo) Fields() map[string]string {
	fields := make(map[string]string, len(b.Extra)+11)
	for k, v := range b.Extra {
		fields[k] = v
	}
	typed := map[string]string{
		"station_id": b.StationID,
		"lat":        formatFloat(b.Lat),
		"lon":        formatFloat(b.Lon),
		"capacity":   strconv.Itoa(b.Capacity),
	}
	for k, v := range typed {
		fields[k] = v
	}
	optional := map[string]string{
		"name":           b.Name,
		"short_name":     b.ShortName,
		"address":        b.Address,
		"cross_street":   b.CrossStreet,
		"post_code":      b.PostCode,
		"rental_methods": strings.Join(b.RentalMethods, ","),
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	if b.IsVirtualStation {
		fields["is_virtual_station"] = "true"
	}
	return fields
}

// ExtraStationInfo is one station decoded from the scraped listing page.
// Fields holds every cleaned title/value pair of the chunk, including
// auxiliary pairs that have no typed counterpart.
type ExtraStationInfo struct {
	ID                  string            `json:"id"`
	Slug                string            `json:"slug,omitempty"`
	Name                string            `json:"name"`
	Address             string            `json:"address"`
	AvailableDocks      int               `json:"availableDocks"`
	Lat                 float64           `json:"lat"`
	Lon                 float64           `json:"lon"`
	Bikes               int               `json:"bike"`
	EBikes              int               `json:"ebike"`
	EBikesWithChildSeat int               `json:"ebike_with_childseat"`
	Fields              map[string]string `json:"-"`
}

// FullStationInfo is the merged view of a station present in both sources.
type FullStationInfo struct {
	StationID           string            `json:"station_id"`
	Name                string            `json:"name"`
	Address             string            `json:"address"`
	Slug                string            `json:"slug,omitempty"`
	Lat                 float64           `json:"lat"`
	Lon                 float64           `json:"lon"`
	Capacity            int               `json:"capacity"`
	Bikes               int               `json:"bike"`
	EBikes              int               `json:"ebike"`
	EBikesWithChildSeat int               `json:"ebike_with_childseat"`
	AvailableDocks      int               `json:"availableDocks"`
	Distance            float64           `json:"distance,omitempty"`
	Fields              map[string]string `json:"fields,omitempty"`
}

// Validate checks the fields every consumer of a merged station relies on
func (s FullStationInfo) Validate() error {
	var errs []error
	if s.StationID == "" {
		errs = append(errs, errors.New("station ID is required"))
	}
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, errors.New("station name is required"))
	}
	if strings.TrimSpace(s.Address) == "" {
		errs = append(errs, errors.New("station address is required"))
	}
	if math.IsNaN(s.Lat) || s.Lat < -90 || s.Lat > 90 {
		errs = append(errs, fmt.Errorf("invalid latitude: %f", s.Lat))
	}
	if math.IsNaN(s.Lon) || s.Lon < -180 || s.Lon > 180 {
		errs = append(errs, fmt.Errorf("invalid longitude: %f", s.Lon))
	}
	if s.Bikes < 0 || s.EBikes < 0 || s.EBikesWithChildSeat < 0 || s.AvailableDocks < 0 {
		errs = append(errs, errors.New("availability counts must not be negative"))
	}
	return errors.Join(errs...)
}

// MapsURL links the station position on Google Maps
func (s FullStationInfo) MapsURL() string {
	return "https://www.google.com/maps/search/?api=1&query=" + formatFloat(s.Lat) + "," + formatFloat(s.Lon)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
