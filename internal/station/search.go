package station

import (
	"iter"
	"regexp"
	"strings"

	"github.com/bikefinder/backend-go/internal/models"
)

type Searcher struct {
	normalizer *Normalizer
}

func NewSearcher(normalizer *Normalizer) *Searcher {
	if normalizer == nil {
		normalizer = NewNormalizer(defaultNormalizerSize)
	}
	return &Searcher{normalizer: normalizer}
}

var defaultSearcher = NewSearcher(nil)

// Search is Searcher.Search with a package-level normalizer
func Search(stations []models.FullStationInfo, query string) iter.Seq[models.FullStationInfo] {
	return defaultSearcher.Search(stations, query)
}

// Search yields, in input order, every station whose folded name contains the
// folded query or whose identifier matches the raw query as a
// case-insensitive regular expression. A query that folds to nothing matches
// nothing. Stations are examined only as the caller consumes results.
func (s *Searcher) Search(stations []models.FullStationInfo, query string) iter.Seq[models.FullStationInfo] {
	return func(yield func(models.FullStationInfo) bool) {
		folded := s.normalizer.Normalize(query)
		if folded == "" {
			return
		}
		idPattern := compileIDPattern(query)

		for _, station := range stations {
			if strings.Contains(s.normalizer.Normalize(station.Name), folded) ||
				idPattern.MatchString(station.StationID) {
				if !yield(station) {
					return
				}
			}
		}
	}
}

// FindByID returns the first station whose identifier equals id, ignoring case
func FindByID(stations []models.FullStationInfo, id string) (models.FullStationInfo, bool) {
	for _, station := range stations {
		if strings.EqualFold(station.StationID, id) {
			return station, true
		}
	}
	return models.FullStationInfo{}, false
}

// compileIDPattern treats a query that is not a valid expression as a literal
func compileIDPattern(query string) *regexp.Regexp {
	pattern, err := regexp.Compile("(?i)" + query)
	if err != nil {
		return regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	return pattern
}
