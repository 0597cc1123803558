// Package feed reads the GBFS station_information open-data feed.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/internal/models"
	"github.com/bikefinder/backend-go/pkg/http/client"
)

// ErrMalformedFeed is returned when the document lacks a data.stations list
var ErrMalformedFeed = errors.New("malformed station feed")

type Client struct {
	httpClient client.Interface
}

func NewClient(httpClient client.Interface) *Client {
	return &Client{httpClient: httpClient}
}

// Fetch downloads the feed at url and returns one BasicStationInfo per
// element of data.stations, in feed order.
func (c *Client) Fetch(ctx context.Context, url string) ([]models.BasicStationInfo, error) {
	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching station feed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("fetching station feed: %w", client.ErrUpstreamUnavailable)
	}

	stations, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("url", url).Int("station_count", len(stations)).Msg("Fetched station feed")
	return stations, nil
}

// Parse decodes a station_information document
func Parse(body []byte) ([]models.BasicStationInfo, error) {
	var envelope struct {
		Data *struct {
			Stations json.RawMessage `json:"stations"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decoding document: %v", ErrMalformedFeed, err)
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrMalformedFeed)
	}

	raw := bytes.TrimSpace(envelope.Data.Stations)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: data.stations is not a list", ErrMalformedFeed)
	}

	var stations []models.BasicStationInfo
	if err := json.Unmarshal(raw, &stations); err != nil {
		return nil, fmt.Errorf("%w: decoding stations: %v", ErrMalformedFeed, err)
	}

	return stations, nil
}
