package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bikefinder/backend-go/internal/feed"
	"github.com/bikefinder/backend-go/internal/geocode"
	"github.com/bikefinder/backend-go/internal/models"
	"github.com/bikefinder/backend-go/internal/scrape"
	"github.com/bikefinder/backend-go/internal/station"
	"github.com/bikefinder/backend-go/pkg/http/client"
)

// mockStationFinder implements models.StationFinder for testing
type mockStationFinder struct {
	searchStationsFn      func(ctx context.Context, query string) ([]models.FullStationInfo, error)
	findStationFn         func(ctx context.Context, stationID string) (*models.FullStationInfo, error)
	findNearestStationFn  func(ctx context.Context, lat, lon float64) (*models.FullStationInfo, error)
	findNearestStationsFn func(ctx context.Context, lat, lon float64, limit int) ([]models.FullStationInfo, error)
}

func (m *mockStationFinder) SearchStations(ctx context.Context, query string) ([]models.FullStationInfo, error) {
	if m.searchStationsFn != nil {
		return m.searchStationsFn(ctx, query)
	}
	return nil, station.ErrNoMatch
}

func (m *mockStationFinder) FindStation(ctx context.Context, stationID string) (*models.FullStationInfo, error) {
	if m.findStationFn != nil {
		return m.findStationFn(ctx, stationID)
	}
	return nil, station.ErrNoMatch
}

func (m *mockStationFinder) FindNearestStation(ctx context.Context, lat, lon float64) (*models.FullStationInfo, error) {
	if m.findNearestStationFn != nil {
		return m.findNearestStationFn(ctx, lat, lon)
	}
	return nil, station.ErrEmptyStationSet
}

func (m *mockStationFinder) FindNearestStations(ctx context.Context, lat, lon float64, limit int) ([]models.FullStationInfo, error) {
	if m.findNearestStationsFn != nil {
		return m.findNearestStationsFn(ctx, lat, lon, limit)
	}
	return nil, station.ErrEmptyStationSet
}

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, place string) (float64, float64, error)
}

func (m *mockGeocoder) Geocode(ctx context.Context, place string) (float64, float64, error) {
	return m.geocodeFn(ctx, place)
}

func createTestStation(id string) models.FullStationInfo {
	return models.FullStationInfo{
		StationID:      id,
		Name:           "Test Station " + id,
		Address:        "Via Test " + id,
		Lat:            45.4642,
		Lon:            9.19,
		Capacity:       20,
		Bikes:          3,
		EBikes:         2,
		AvailableDocks: 15,
	}
}

func decodeBody(t *testing.T, response events.APIGatewayProxyResponse) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	return body
}

func TestStationsHandler_HandleRequest(t *testing.T) {
	tests := []struct {
		name      string
		params    map[string]string
		finder    *mockStationFinder
		geocoder  geocode.Geocoder
		wantIDs   []string
		wantLimit int
	}{
		{
			name:   "lookup by ID",
			params: map[string]string{"stationId": "101"},
			finder: &mockStationFinder{
				findStationFn: func(_ context.Context, stationID string) (*models.FullStationInfo, error) {
					s := createTestStation(stationID)
					return &s, nil
				},
			},
			wantIDs: []string{"101"},
		},
		{
			name:   "search by name",
			params: map[string]string{"q": "duomo"},
			finder: &mockStationFinder{
				searchStationsFn: func(_ context.Context, query string) ([]models.FullStationInfo, error) {
					if query != "duomo" {
						return nil, station.ErrNoMatch
					}
					return []models.FullStationInfo{createTestStation("101"), createTestStation("215")}, nil
				},
			},
			wantIDs: []string{"101", "215"},
		},
		{
			name:   "nearest with limit",
			params: map[string]string{"lat": "45.4642", "lon": "9.19", "limit": "2"},
			finder: &mockStationFinder{
				findNearestStationsFn: func(_ context.Context, _, _ float64, limit int) ([]models.FullStationInfo, error) {
					if limit != 2 {
						return nil, fmt.Errorf("unexpected limit %d", limit)
					}
					return []models.FullStationInfo{createTestStation("101"), createTestStation("7")}, nil
				},
			},
			wantIDs: []string{"101", "7"},
		},
		{
			name:   "nearest with default limit",
			params: map[string]string{"lat": "45.4642", "lon": "9.19"},
			finder: &mockStationFinder{
				findNearestStationsFn: func(_ context.Context, _, _ float64, limit int) ([]models.FullStationInfo, error) {
					if limit != defaultLimit {
						return nil, fmt.Errorf("unexpected limit %d", limit)
					}
					return []models.FullStationInfo{createTestStation("101")}, nil
				},
			},
			wantIDs: []string{"101"},
		},
		{
			name:   "nearest to a place",
			params: map[string]string{"place": "Cadorna"},
			finder: &mockStationFinder{
				findNearestStationFn: func(_ context.Context, lat, lon float64) (*models.FullStationInfo, error) {
					if lat != 45.46837 || lon != 9.17606 {
						return nil, fmt.Errorf("unexpected point %f,%f", lat, lon)
					}
					s := createTestStation("7")
					return &s, nil
				},
			},
			geocoder: &mockGeocoder{
				geocodeFn: func(_ context.Context, place string) (float64, float64, error) {
					return 45.46837, 9.17606, nil
				},
			},
			wantIDs: []string{"7"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewStationsHandler(tt.finder, tt.geocoder)

			response, err := handler.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
				QueryStringParameters: tt.params,
			})
			require.NoError(t, err)
			require.Equal(t, http.StatusOK, response.StatusCode, response.Body)

			body := decodeBody(t, response)
			assert.Equal(t, "stations", body["responseType"])

			stations := body["stations"].([]interface{})
			var ids []string
			for _, s := range stations {
				entry := s.(map[string]interface{})
				ids = append(ids, entry["station_id"].(string))
				assert.Contains(t, entry, "mapsUrl")
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestStationsHandler_ParameterValidation(t *testing.T) {
	tests := []struct {
		name           string
		params         map[string]string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "invalid latitude",
			params:         map[string]string{"lat": "91", "lon": "0"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid coordinates",
		},
		{
			name:           "invalid longitude",
			params:         map[string]string{"lat": "0", "lon": "181"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid coordinates",
		},
		{
			name:           "NaN latitude",
			params:         map[string]string{"lat": "NaN", "lon": "9.19"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid coordinates",
		},
		{
			name:           "infinite longitude",
			params:         map[string]string{"lat": "45.46", "lon": "-Inf"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid coordinates",
		},
		{
			name:           "non-numeric coordinates",
			params:         map[string]string{"lat": "invalid", "lon": "9.19"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid parameters",
		},
		{
			name:           "bad limit",
			params:         map[string]string{"lat": "45", "lon": "9", "limit": "-1"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid parameters",
		},
		{
			name:           "no parameters",
			params:         nil,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Missing query parameters",
		},
		{
			name:           "place without geocoder",
			params:         map[string]string{"place": "Duomo"},
			expectedStatus: http.StatusNotImplemented,
			expectedError:  "Place lookup not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewStationsHandler(&mockStationFinder{}, nil)

			response, err := handler.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
				QueryStringParameters: tt.params,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			body := decodeBody(t, response)
			assert.Equal(t, "error", body["responseType"])
			assert.Equal(t, tt.expectedError, body["error"])
		})
	}
}

func TestStationsHandler_ErrorHandling(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "no match",
			err:            fmt.Errorf("%w: station not found: 999", station.ErrNoMatch),
			expectedStatus: http.StatusNotFound,
			expectedError:  "Station not found",
		},
		{
			name:           "invalid coordinates from finder",
			err:            fmt.Errorf("%w: latitude 100", station.ErrInvalidCoordinates),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid coordinates",
		},
		{
			name:           "upstream down",
			err:            &client.UpstreamError{URL: "https://bikemi.com/stazioni", StatusCode: http.StatusServiceUnavailable},
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Station sources unavailable",
		},
		{
			name:           "incomplete station",
			err:            fmt.Errorf("%w 101: station name is required", station.ErrIncompleteStation),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Station sources unavailable",
		},
		{
			name:           "malformed feed",
			err:            fmt.Errorf("parsing: %w", feed.ErrMalformedFeed),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Station sources unavailable",
		},
		{
			name:           "scrape failure",
			err:            fmt.Errorf("%w: %w", scrape.ErrScrapeFailed, scrape.ErrAnchorNotFound),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Station sources unavailable",
		},
		{
			name:           "merge mismatch",
			err:            fmt.Errorf("merging stations: %w", &station.MergeMismatchError{OnlyBasic: []string{"2"}}),
			expectedStatus: http.StatusBadGateway,
			expectedError:  "Station sources unavailable",
		},
		{
			name:           "anything else",
			err:            assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &mockStationFinder{
				findStationFn: func(context.Context, string) (*models.FullStationInfo, error) {
					return nil, tt.err
				},
			}
			handler := NewStationsHandler(finder, nil)

			response, err := handler.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
				QueryStringParameters: map[string]string{"stationId": "999"},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, response.StatusCode)

			body := decodeBody(t, response)
			assert.Equal(t, tt.expectedError, body["error"])
		})
	}
}

func TestStationsHandler_PlaceNotFound(t *testing.T) {
	geocoder := &mockGeocoder{
		geocodeFn: func(_ context.Context, place string) (float64, float64, error) {
			return 0, 0, fmt.Errorf("%w: %q", geocode.ErrPlaceNotFound, place)
		},
	}
	handler := NewStationsHandler(&mockStationFinder{}, geocoder)

	response, err := handler.HandleRequest(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"place": "Atlantide"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "Place not found", decodeBody(t, response)["error"])
}
