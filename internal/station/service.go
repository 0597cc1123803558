package station

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bikefinder/backend-go/internal/models"
)

// Service pulls both sources on every call and answers lookups against the
// freshly merged set. It keeps no station data between calls.
type Service struct {
	feed      FeedFetcher
	feedURL   string
	page      PageFetcher
	searcher  *Searcher
	mergeOpts []MergeOption
}

var _ models.StationFinder = (*Service)(nil)

type ServiceOption func(*Service)

func WithNormalizer(normalizer *Normalizer) ServiceOption {
	return func(s *Service) {
		s.searcher = NewSearcher(normalizer)
	}
}

func WithMergeOptions(opts ...MergeOption) ServiceOption {
	return func(s *Service) {
		s.mergeOpts = append(s.mergeOpts, opts...)
	}
}

func NewService(feed FeedFetcher, feedURL string, page PageFetcher, opts ...ServiceOption) *Service {
	s := &Service{
		feed:    feed,
		feedURL: feedURL,
		page:    page,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.searcher == nil {
		s.searcher = defaultSearcher
	}
	return s
}

// FetchMergedStations downloads both sources concurrently and merges them
func (s *Service) FetchMergedStations(ctx context.Context) ([]models.FullStationInfo, error) {
	var (
		basic []models.BasicStationInfo
		extra []models.ExtraStationInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		basic, err = s.feed.Fetch(gctx, s.feedURL)
		return err
	})
	g.Go(func() error {
		var err error
		extra, err = s.page.Fetch(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := Merge(basic, extra, s.mergeOpts...)
	if err != nil {
		return nil, fmt.Errorf("merging stations: %w", err)
	}

	log.Debug().
		Int("feed_count", len(basic)).
		Int("page_count", len(extra)).
		Int("merged_count", len(merged)).
		Msg("Merged station sources")

	return merged, nil
}

func (s *Service) SearchStations(ctx context.Context, query string) ([]models.FullStationInfo, error) {
	stations, err := s.FetchMergedStations(ctx)
	if err != nil {
		return nil, err
	}

	found := slices.Collect(s.searcher.Search(stations, query))
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatch, query)
	}

	log.Trace().Str("query", query).Int("match_count", len(found)).Msg("SearchStations: matched")
	return found, nil
}

func (s *Service) FindStation(ctx context.Context, stationID string) (*models.FullStationInfo, error) {
	stations, err := s.FetchMergedStations(ctx)
	if err != nil {
		return nil, err
	}

	station, ok := FindByID(stations, stationID)
	if !ok {
		return nil, fmt.Errorf("%w: station not found: %s", ErrNoMatch, stationID)
	}
	return &station, nil
}

func (s *Service) FindNearestStation(ctx context.Context, lat, lon float64) (*models.FullStationInfo, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	stations, err := s.FetchMergedStations(ctx)
	if err != nil {
		return nil, err
	}

	nearest, err := Nearest(stations, lat, lon)
	if err != nil {
		return nil, err
	}

	log.Trace().Str("station_id", nearest.StationID).Float64("distance_km", nearest.Distance).Msg("FindNearestStation: found")
	return &nearest, nil
}

func (s *Service) FindNearestStations(ctx context.Context, lat, lon float64, limit int) ([]models.FullStationInfo, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	stations, err := s.FetchMergedStations(ctx)
	if err != nil {
		return nil, err
	}

	return NearestN(stations, lat, lon, limit)
}
