package models

import "context"

type StationFinder interface {
	SearchStations(ctx context.Context, query string) ([]FullStationInfo, error)
	FindStation(ctx context.Context, stationID string) (*FullStationInfo, error)
	FindNearestStation(ctx context.Context, lat, lon float64) (*FullStationInfo, error)
	FindNearestStations(ctx context.Context, lat, lon float64, limit int) ([]FullStationInfo, error)
}
