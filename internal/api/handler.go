package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/bikefinder/backend-go/internal/models"
)

var ErrMissingCoordinates = errors.New("lat and lon are both required")

type APIResponse struct {
	ResponseType string `json:"responseType"`
}

// StationView is a merged station as returned to clients
type StationView struct {
	models.FullStationInfo
	Maps string `json:"mapsUrl"`
}

type StationsResponse struct {
	APIResponse
	Stations []StationView `json:"stations"`
}

type ErrorResponse struct {
	APIResponse
	Error string `json:"error"`
}

func NewStationsResponse(stations []models.FullStationInfo) *StationsResponse {
	views := make([]StationView, 0, len(stations))
	for _, s := range stations {
		views = append(views, StationView{FullStationInfo: s, Maps: s.MapsURL()})
	}
	return &StationsResponse{
		APIResponse: APIResponse{ResponseType: "stations"},
		Stations:    views,
	}
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{
		APIResponse: APIResponse{ResponseType: "error"},
		Error:       message,
	}
}

// Response helpers
func Success(body interface{}) (events.APIGatewayProxyResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Error("Internal Server Error", http.StatusInternalServerError)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(jsonBody),
	}, nil
}

func Error(message string, statusCode int) (events.APIGatewayProxyResponse, error) {
	body, _ := json.Marshal(NewErrorResponse(message))

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(body),
	}, nil
}

// Parameter parsing helpers
func ParseCoordinates(params map[string]string) (float64, float64, error) {
	latStr, hasLat := params["lat"]
	lonStr, hasLon := params["lon"]

	if !hasLat || !hasLon {
		return 0, 0, ErrMissingCoordinates
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing lat: %w", err)
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing lon: %w", err)
	}

	if !finite(lat) || !finite(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, InvalidCoordinatesError{Lat: lat, Lon: lon}
	}

	return lat, lon, nil
}

// ParseLimit reads a positive "limit" parameter, falling back to def
func ParseLimit(params map[string]string, def int) (int, error) {
	limitStr, ok := params["limit"]
	if !ok || limitStr == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("parsing limit: %w", err)
	}
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	return limit, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

type InvalidCoordinatesError struct {
	Lat, Lon float64
}

func (e InvalidCoordinatesError) Error() string {
	return fmt.Sprintf("Invalid coordinates: %g,%g", e.Lat, e.Lon)
}
