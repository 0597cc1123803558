package station

import (
	"context"

	"github.com/bikefinder/backend-go/internal/models"
)

// FeedFetcher reads the open-data station feed
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]models.BasicStationInfo, error)
}

// PageFetcher reads the stations embedded in the listing page
type PageFetcher interface {
	Fetch(ctx context.Context) ([]models.ExtraStationInfo, error)
}
