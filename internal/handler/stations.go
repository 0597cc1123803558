package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/internal/api"
	"github.com/bikefinder/backend-go/internal/feed"
	"github.com/bikefinder/backend-go/internal/geocode"
	"github.com/bikefinder/backend-go/internal/models"
	"github.com/bikefinder/backend-go/internal/scrape"
	"github.com/bikefinder/backend-go/internal/station"
	"github.com/bikefinder/backend-go/pkg/http/client"
)

const defaultLimit = 5

type StationsHandler struct {
	stationFinder models.StationFinder
	geocoder      geocode.Geocoder
}

// NewStationsHandler builds the handler. A nil geocoder disables place lookups.
func NewStationsHandler(finder models.StationFinder, geocoder geocode.Geocoder) *StationsHandler {
	return &StationsHandler{
		stationFinder: finder,
		geocoder:      geocoder,
	}
}

func (h *StationsHandler) HandleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	params := request.QueryStringParameters

	if stationID, ok := params["stationId"]; ok {
		found, err := h.stationFinder.FindStation(ctx, stationID)
		if err != nil {
			return errorResponse(err)
		}
		return api.Success(api.NewStationsResponse([]models.FullStationInfo{*found}))
	}

	if query, ok := params["q"]; ok {
		found, err := h.stationFinder.SearchStations(ctx, query)
		if err != nil {
			return errorResponse(err)
		}
		return api.Success(api.NewStationsResponse(found))
	}

	if place, ok := params["place"]; ok {
		return h.nearestToPlace(ctx, place)
	}

	lat, lon, err := api.ParseCoordinates(params)
	if err != nil {
		var invalidCoordErr api.InvalidCoordinatesError
		if errors.As(err, &invalidCoordErr) {
			return api.Error("Invalid coordinates", http.StatusBadRequest)
		}
		if errors.Is(err, api.ErrMissingCoordinates) {
			return api.Error("Missing query parameters", http.StatusBadRequest)
		}
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	limit, err := api.ParseLimit(params, defaultLimit)
	if err != nil {
		return api.Error("Invalid parameters", http.StatusBadRequest)
	}

	stations, err := h.stationFinder.FindNearestStations(ctx, lat, lon, limit)
	if err != nil {
		return errorResponse(err)
	}

	return api.Success(api.NewStationsResponse(stations))
}

func (h *StationsHandler) nearestToPlace(ctx context.Context, place string) (events.APIGatewayProxyResponse, error) {
	if h.geocoder == nil {
		return api.Error("Place lookup not available", http.StatusNotImplemented)
	}

	lat, lon, err := h.geocoder.Geocode(ctx, place)
	if err != nil {
		return errorResponse(err)
	}

	nearest, err := h.stationFinder.FindNearestStation(ctx, lat, lon)
	if err != nil {
		return errorResponse(err)
	}
	return api.Success(api.NewStationsResponse([]models.FullStationInfo{*nearest}))
}

func errorResponse(err error) (events.APIGatewayProxyResponse, error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Station request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("Station request rejected")
	}
	return api.Error(message, status)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, station.ErrNoMatch):
		return http.StatusNotFound, "Station not found"
	case errors.Is(err, geocode.ErrPlaceNotFound):
		return http.StatusNotFound, "Place not found"
	case errors.Is(err, station.ErrInvalidCoordinates):
		return http.StatusBadRequest, "Invalid coordinates"
	case errors.Is(err, client.ErrUpstreamUnavailable),
		errors.Is(err, feed.ErrMalformedFeed),
		errors.Is(err, scrape.ErrScrapeFailed),
		errors.Is(err, station.ErrMergeMismatch),
		errors.Is(err, station.ErrIncompleteStation),
		errors.Is(err, station.ErrEmptyStationSet),
		errors.Is(err, geocode.ErrMalformedReply):
		return http.StatusBadGateway, "Station sources unavailable"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
