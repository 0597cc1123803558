package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/pkg/http/client"
)

// Piazza del Duomo, Milan
const (
	DefaultProximityLat = 45.464228552423435
	DefaultProximityLon = 9.191557965278111
)

var (
	ErrPlaceNotFound  = errors.New("place not found")
	ErrNotConfigured  = errors.New("geocoder not configured")
	ErrMalformedReply = errors.New("malformed geocoding reply")
)

// Geocoder resolves a free-text place to a coordinate pair
type Geocoder interface {
	Geocode(ctx context.Context, place string) (lat, lon float64, err error)
}

type Mapbox struct {
	httpClient   client.Interface
	token        string
	proximityLat float64
	proximityLon float64
}

var _ Geocoder = (*Mapbox)(nil)

type Option func(*Mapbox)

// WithProximity biases results towards lat/lon
func WithProximity(lat, lon float64) Option {
	return func(m *Mapbox) {
		m.proximityLat = lat
		m.proximityLon = lon
	}
}

// NewMapbox expects httpClient to carry the Mapbox API base URL
func NewMapbox(httpClient client.Interface, token string, opts ...Option) *Mapbox {
	m := &Mapbox{
		httpClient:   httpClient,
		token:        token,
		proximityLat: DefaultProximityLat,
		proximityLon: DefaultProximityLon,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type placesResponse struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

func (m *Mapbox) Geocode(ctx context.Context, place string) (float64, float64, error) {
	if m.token == "" {
		return 0, 0, ErrNotConfigured
	}
	place = strings.TrimSpace(place)
	if place == "" {
		return 0, 0, fmt.Errorf("%w: empty query", ErrPlaceNotFound)
	}

	query := url.Values{}
	query.Set("access_token", m.token)
	query.Set("proximity", fmt.Sprintf("%g,%g", m.proximityLon, m.proximityLat))
	query.Set("limit", "1")
	path := "/geocoding/v5/mapbox.places/" + url.PathEscape(place) + ".json?" + query.Encode()

	resp, err := m.httpClient.Get(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", place, err)
	}
	if resp == nil {
		return 0, 0, fmt.Errorf("geocoding %q: %w", place, client.ErrUpstreamUnavailable)
	}

	var reply placesResponse
	if err := json.Unmarshal(resp.Body, &reply); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	if len(reply.Features) == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrPlaceNotFound, place)
	}

	feature := reply.Features[0]
	if len(feature.Center) != 2 {
		return 0, 0, fmt.Errorf("%w: center has %d values", ErrMalformedReply, len(feature.Center))
	}

	lon, lat := feature.Center[0], feature.Center[1]
	log.Debug().
		Str("place", place).
		Str("place_name", feature.PlaceName).
		Float64("lat", lat).
		Float64("lon", lon).
		Msg("Geocoded place")

	return lat, lon, nil
}
