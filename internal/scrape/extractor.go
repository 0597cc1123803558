// Package scrape decodes the station blocks embedded in the public station
// listing page.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bikefinder/backend-go/internal/models"
	"github.com/bikefinder/backend-go/pkg/http/client"
)

const (
	// StartAnchor immediately precedes the first station block
	StartAnchor = `"stationMapPage","slug":null},`
	// EndAnchor immediately follows the last station block
	EndAnchor = `"baseUrl":"https://bikemi.com"`
	// StationDelimiter precedes every serialized station
	StationDelimiter = "DockGroup:"
)

var (
	ErrAnchorNotFound       = errors.New("payload anchor not found")
	ErrUnknownStationLayout = errors.New("unknown station layout")
	ErrScrapeFailed         = errors.New("station page scrape failed")
)

// LayoutError is returned for a chunk whose token count matches no layout
type LayoutError struct {
	Tokens int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("unknown station layout: %d tokens", e.Tokens)
}

func (e *LayoutError) Is(target error) bool {
	return target == ErrUnknownStationLayout
}

// FieldError is returned when a pair is missing or its value does not parse.
// Either way the token positions no longer mean what the layout says.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field %q (%q): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("field %q missing", e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func (e *FieldError) Is(target error) bool {
	return target == ErrUnknownStationLayout
}

// SkippedChunk records a station block that could not be decoded
type SkippedChunk struct {
	Index int
	Err   error
}

// Report summarizes one decode pass
type Report struct {
	Chunks  int
	Decoded int
	Skipped []SkippedChunk
}

type Extractor struct {
	httpClient client.Interface
	pageURL    string
}

func NewExtractor(httpClient client.Interface, pageURL string) *Extractor {
	return &Extractor{
		httpClient: httpClient,
		pageURL:    pageURL,
	}
}

// Fetch downloads the listing page and decodes every station block on it
func (e *Extractor) Fetch(ctx context.Context) ([]models.ExtraStationInfo, error) {
	resp, err := e.httpClient.Get(ctx, e.pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetching station page: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("fetching station page: %w", client.ErrUpstreamUnavailable)
	}

	stations, report, err := Decode(string(resp.Body))
	if len(report.Skipped) > 0 {
		log.Warn().
			Str("url", e.pageURL).
			Int("chunks", report.Chunks).
			Int("skipped", len(report.Skipped)).
			Msg("Skipped undecodable station blocks")
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("url", e.pageURL).Int("station_count", report.Decoded).Msg("Decoded station page")
	return stations, nil
}

// Decode extracts the stations embedded in a listing page. A block that
// fails to decode is skipped and recorded in the report; the call fails only
// when an anchor is missing or nothing could be decoded.
func Decode(page string) ([]models.ExtraStationInfo, Report, error) {
	segment, err := payloadSegment(page)
	if err != nil {
		return nil, Report{}, fmt.Errorf("%w: %w", ErrScrapeFailed, err)
	}

	chunks := strings.Split(segment, StationDelimiter)[1:]
	report := Report{Chunks: len(chunks)}
	stations := make([]models.ExtraStationInfo, 0, len(chunks))

	for i, chunk := range chunks {
		station, err := DecodeChunk(chunk)
		if err != nil {
			log.Trace().Int("chunk", i).Err(err).Msg("Skipping station block")
			report.Skipped = append(report.Skipped, SkippedChunk{Index: i, Err: err})
			continue
		}
		stations = append(stations, station)
	}
	report.Decoded = len(stations)

	if len(stations) == 0 {
		if len(report.Skipped) > 0 {
			return nil, report, fmt.Errorf("%w: none of %d station blocks decoded: %w",
				ErrScrapeFailed, report.Chunks, report.Skipped[0].Err)
		}
		return nil, report, fmt.Errorf("%w: no station blocks in payload", ErrScrapeFailed)
	}

	return stations, report, nil
}

// DecodeChunk turns one serialized station block into a record
func DecodeChunk(chunk string) (models.ExtraStationInfo, error) {
	tokens, seps := splitTokens(chunk)
	table, err := tableFor(len(tokens))
	if err != nil {
		return models.ExtraStationInfo{}, err
	}

	fields, err := table.pairs(tokens, seps)
	if err != nil {
		return models.ExtraStationInfo{}, err
	}

	return stationFromFields(fields)
}

func payloadSegment(page string) (string, error) {
	start := strings.Index(page, StartAnchor)
	if start < 0 {
		return "", fmt.Errorf("%w: start marker %q", ErrAnchorNotFound, StartAnchor)
	}
	rest := page[start+len(StartAnchor):]

	end := strings.Index(rest, EndAnchor)
	if end < 0 {
		return "", fmt.Errorf("%w: end marker %q", ErrAnchorNotFound, EndAnchor)
	}
	return rest[:end], nil
}

func stationFromFields(fields map[string]string) (models.ExtraStationInfo, error) {
	p := fieldParser{fields: fields}

	station := models.ExtraStationInfo{
		ID:                  p.text("id"),
		Slug:                p.optional("slug"),
		Name:                p.text("name"),
		Address:             p.text("address"),
		AvailableDocks:      p.count("availableDocks"),
		Lat:                 p.coordinate("lat"),
		Lon:                 p.coordinate("lon"),
		Bikes:               p.count("bike"),
		EBikes:              p.count("ebike"),
		EBikesWithChildSeat: p.count("ebike_with_childseat"),
		Fields:              fields,
	}
	if p.err != nil {
		return models.ExtraStationInfo{}, p.err
	}
	return station, nil
}

// fieldParser keeps the first error so conversions read as a flat list
type fieldParser struct {
	fields map[string]string
	err    error
}

func (p *fieldParser) text(key string) string {
	v, ok := p.fields[key]
	if (!ok || v == "") && p.err == nil {
		p.err = &FieldError{Field: key, Value: v}
	}
	return v
}

func (p *fieldParser) optional(key string) string {
	v := p.fields[key]
	if v == "null" {
		return ""
	}
	return v
}

func (p *fieldParser) count(key string) int {
	v := p.text(key)
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err == nil && n < 0 {
		err = errors.New("negative count")
	}
	if err != nil {
		p.err = &FieldError{Field: key, Value: v, Err: err}
		return 0
	}
	return n
}

func (p *fieldParser) coordinate(key string) float64 {
	v := p.text(key)
	if p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = errors.New("not a finite number")
	}
	if err != nil {
		p.err = &FieldError{Field: key, Value: v, Err: err}
		return 0
	}
	return f
}
