package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/internal/config"
	"github.com/bikefinder/backend-go/internal/feed"
	"github.com/bikefinder/backend-go/internal/geocode"
	"github.com/bikefinder/backend-go/internal/handler"
	"github.com/bikefinder/backend-go/internal/scrape"
	"github.com/bikefinder/backend-go/internal/station"
	"github.com/bikefinder/backend-go/pkg/http/client"
)

var (
	lambdaStart     = lambda.Start // Allow mocking of lambda.Start in tests
	stationsHandler *handler.StationsHandler
	setupOnce       sync.Once
)

func init() {
	setupOnce.Do(func() {
		cfg := config.LoadFromEnv()
		cfg.InitializeLogging()

		stationsHandler = newStationsHandler(cfg)

		log.Info().
			Str("env", cfg.Environment).
			Str("feed_url", cfg.FeedURL).
			Str("stations_page_url", cfg.StationsPageURL).
			Bool("merge_strict", cfg.MergeStrict).
			Msg("Stations lambda initialized")
	})
}

func newStationsHandler(cfg *config.Config) *handler.StationsHandler {
	httpClient := client.New(client.Options{
		Timeout: cfg.HTTPTimeout,
	})

	var mergeOpts []station.MergeOption
	if !cfg.MergeStrict {
		mergeOpts = append(mergeOpts, station.WithLenientMerge())
	}

	service := station.NewService(
		feed.NewClient(httpClient),
		cfg.FeedURL,
		scrape.NewExtractor(httpClient, cfg.StationsPageURL),
		station.WithNormalizer(station.NewNormalizer(cfg.NormalizerCacheSize)),
		station.WithMergeOptions(mergeOpts...),
	)

	var geocoder geocode.Geocoder
	if cfg.MapboxToken != "" {
		geocoder = geocode.NewMapbox(
			client.New(client.Options{BaseURL: cfg.MapboxBaseURL, Timeout: cfg.HTTPTimeout}),
			cfg.MapboxToken,
		)
	} else {
		log.Warn().Msg("MAPBOX_TOKEN not set, place lookups disabled")
	}

	return handler.NewStationsHandler(service, geocoder)
}

func handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return stationsHandler.HandleRequest(ctx, request)
}

func main() {
	lambdaStart(handleRequest)
}
