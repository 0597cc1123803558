package station

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/internal/models"
)

type mergeOptions struct {
	lenient bool
}

type MergeOption func(*mergeOptions)

// WithLenientMerge keeps the stations both sources agree on and only logs
// identifiers that cannot be paired, instead of failing the merge.
func WithLenientMerge() MergeOption {
	return func(o *mergeOptions) {
		o.lenient = true
	}
}

// Merge joins feed and page records on the station identifier. The result is
// sorted by identifier. Page values win when both records carry a field.
// A paired record that fails validation fails a strict merge with
// ErrIncompleteStation and is dropped by a lenient one.
func Merge(basic []models.BasicStationInfo, extra []models.ExtraStationInfo, opts ...MergeOption) ([]models.FullStationInfo, error) {
	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}

	mismatch := &MergeMismatchError{}

	extraByID := make(map[string]models.ExtraStationInfo, len(extra))
	for _, e := range extra {
		if _, dup := extraByID[e.ID]; dup {
			mismatch.DuplicateExtra = append(mismatch.DuplicateExtra, e.ID)
			continue
		}
		extraByID[e.ID] = e
	}

	seen := make(map[string]bool, len(basic))
	merged := make([]models.FullStationInfo, 0, len(extraByID))
	var incomplete []error

	for _, b := range basic {
		if seen[b.StationID] {
			mismatch.DuplicateBasic = append(mismatch.DuplicateBasic, b.StationID)
			continue
		}
		seen[b.StationID] = true

		e, ok := extraByID[b.StationID]
		if !ok {
			mismatch.OnlyBasic = append(mismatch.OnlyBasic, b.StationID)
			continue
		}

		full := combine(b, e)
		if err := full.Validate(); err != nil {
			incomplete = append(incomplete, fmt.Errorf("%w %s: %w", ErrIncompleteStation, full.StationID, err))
			continue
		}
		merged = append(merged, full)
	}

	for id := range extraByID {
		if !seen[id] {
			mismatch.OnlyExtra = append(mismatch.OnlyExtra, id)
		}
	}
	sort.Strings(mismatch.OnlyBasic)
	sort.Strings(mismatch.OnlyExtra)
	sort.Strings(mismatch.DuplicateBasic)
	sort.Strings(mismatch.DuplicateExtra)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StationID < merged[j].StationID
	})

	if !o.lenient {
		if !mismatch.empty() {
			return nil, mismatch
		}
		if len(incomplete) > 0 {
			return nil, incomplete[0]
		}
		return merged, nil
	}

	if !mismatch.empty() {
		log.Warn().Err(mismatch).Int("merged", len(merged)).Msg("Merged stations present in both sources only")
	}
	for _, err := range incomplete {
		log.Warn().Err(err).Msg("Dropping incomplete station")
	}
	return merged, nil
}

func combine(b models.BasicStationInfo, e models.ExtraStationInfo) models.FullStationInfo {
	extraFields := e.Fields
	if extraFields == nil {
		extraFields = typedExtraFields(e)
	}

	fields := b.Fields()
	for k, v := range extraFields {
		fields[k] = v
	}

	full := models.FullStationInfo{
		StationID:           b.StationID,
		Name:                b.Name,
		Address:             b.Address,
		Slug:                e.Slug,
		Lat:                 b.Lat,
		Lon:                 b.Lon,
		Capacity:            b.Capacity,
		Bikes:               e.Bikes,
		EBikes:              e.EBikes,
		EBikesWithChildSeat: e.EBikesWithChildSeat,
		AvailableDocks:      e.AvailableDocks,
		Fields:              fields,
	}

	if _, ok := extraFields["name"]; ok {
		full.Name = e.Name
	}
	if _, ok := extraFields["address"]; ok {
		full.Address = e.Address
	}
	if _, ok := extraFields["lat"]; ok {
		full.Lat = e.Lat
	}
	if _, ok := extraFields["lon"]; ok {
		full.Lon = e.Lon
	}

	return full
}

// typedExtraFields rebuilds the field map of a record that was not decoded
// from a page, e.g. one assembled by a caller.
func typedExtraFields(e models.ExtraStationInfo) map[string]string {
	fields := map[string]string{
		"id":                   e.ID,
		"availableDocks":       strconv.Itoa(e.AvailableDocks),
		"bike":                 strconv.Itoa(e.Bikes),
		"ebike":                strconv.Itoa(e.EBikes),
		"ebike_with_childseat": strconv.Itoa(e.EBikesWithChildSeat),
	}
	for k, v := range map[string]string{"slug": e.Slug, "name": e.Name, "address": e.Address} {
		if v != "" {
			fields[k] = v
		}
	}
	if e.Lat != 0 || e.Lon != 0 {
		fields["lat"] = strconv.FormatFloat(e.Lat, 'f', -1, 64)
		fields["lon"] = strconv.FormatFloat(e.Lon, 'f', -1, 64)
	}
	return fields
}
