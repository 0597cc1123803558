package station

import (
	"fmt"
	"math"
	"sort"

	"github.com/tidwall/geodesic"

	"github.com/bikefinder/backend-go/internal/models"
)

const defaultNearestLimit = 5

// Distance is the WGS-84 geodesic distance between two points, in kilometers
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	var meters float64
	geodesic.WGS84.Inverse(lat1, lon1, lat2, lon2, &meters, nil, nil)
	return meters / 1000
}

// Nearest returns the station closest to lat/lon with Distance set. The first
// station in input order wins a tie.
func Nearest(stations []models.FullStationInfo, lat, lon float64) (models.FullStationInfo, error) {
	if len(stations) == 0 {
		return models.FullStationInfo{}, ErrEmptyStationSet
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return models.FullStationInfo{}, err
	}

	best := 0
	bestDistance := Distance(lat, lon, stations[0].Lat, stations[0].Lon)
	for i := 1; i < len(stations); i++ {
		d := Distance(lat, lon, stations[i].Lat, stations[i].Lon)
		if d < bestDistance {
			best, bestDistance = i, d
		}
	}

	nearest := stations[best]
	nearest.Distance = bestDistance
	return nearest, nil
}

// NearestN returns up to limit stations ordered by distance; ties keep input order
func NearestN(stations []models.FullStationInfo, lat, lon float64, limit int) ([]models.FullStationInfo, error) {
	if len(stations) == 0 {
		return nil, ErrEmptyStationSet
	}
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	type stationDistance struct {
		station  models.FullStationInfo
		distance float64
	}

	stationDistances := make([]stationDistance, len(stations))
	for i, station := range stations {
		stationDistances[i] = stationDistance{
			station:  station,
			distance: Distance(lat, lon, station.Lat, station.Lon),
		}
	}

	sort.SliceStable(stationDistances, func(i, j int) bool {
		return stationDistances[i].distance < stationDistances[j].distance
	})

	if limit <= 0 {
		limit = defaultNearestLimit
	}
	if limit > len(stationDistances) {
		limit = len(stationDistances)
	}

	result := make([]models.FullStationInfo, limit)
	for i := 0; i < limit; i++ {
		station := stationDistances[i].station
		station.Distance = stationDistances[i].distance
		result[i] = station
	}

	return result, nil
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %f", ErrInvalidCoordinates, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %f", ErrInvalidCoordinates, lon)
	}
	return nil
}
