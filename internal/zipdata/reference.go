// Package zipdata loads the static ZIP reference datasets.
package zipdata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/lane-heatmap-service/internal/domain"
)

// ErrUnrecognizedShape is returned for JSON that is neither an object nor an array.
var ErrUnrecognizedShape = errors.New("zip dataset must be a JSON object or array")

// Reference maps a normalized 5-digit ZIP to its record.
type Reference map[string]domain.ZipData

// Lookup normalizes zip before looking it up.
func (r Reference) Lookup(zip string) (domain.ZipData, bool) {
	z := domain.NormalizeZip(zip)
	if z == "" {
		return domain.ZipData{}, false
	}
	d, ok := r[z]
	return d, ok
}

// Len returns the number of ZIPs in the dataset.
func (r Reference) Len() int { return len(r) }

// Merge returns base overlaid with extra; extra wins on collisions.
func Merge(base, extra Reference) Reference {
	out := make(Reference, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// Field-name fallbacks for array-shaped datasets (Census ZCTA gazetteer,
// OpenDataDE uszips and similar exports).
var (
	zipKeys   = []string{"zip", "ZCTA5CE10", "postalCode", "postcode", "code"}
	latKeys   = []string{"lat", "latitude", "INTPTLAT", "y"}
	lonKeys   = []string{"lon", "lng", "longitude", "INTPTLON", "x"}
	cityKeys  = []string{"city", "place", "place_name", "placeName", "PO_NAME"}
	stateKeys = []string{"state", "state_id", "state_code", "STUSPS", "STATE"}
)

// Parse decodes a dataset that is either a ZIP → record object or an array of
// loosely typed rows. Array rows without a valid ZIP or finite coordinates are
// dropped.
func Parse(data []byte) (Reference, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrUnrecognizedShape
	}

	switch trimmed[0] {
	case '{':
		return parseMapping(trimmed)
	case '[':
		return parseRows(trimmed)
	default:
		return nil, ErrUnrecognizedShape
	}
}

func parseMapping(data []byte) (Reference, error) {
	var raw map[string]domain.ZipData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode zip mapping: %w", err)
	}
	out := make(Reference, len(raw))
	for k, v := range raw {
		z := domain.NormalizeZip(k)
		if z == "" {
			continue
		}
		out[z] = v
	}
	return out, nil
}

func parseRows(data []byte) (Reference, error) {
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode zip rows: %w", err)
	}

	out := make(Reference, len(rows))
	for _, row := range rows {
		z := domain.NormalizeZip(stringField(row, zipKeys))
		if z == "" {
			continue
		}
		lat, okLat := numberField(row, latKeys)
		lon, okLon := numberField(row, lonKeys)
		if !okLat || !okLon {
			continue
		}
		out[z] = domain.ZipData{
			Lat:   lat,
			Lon:   lon,
			City:  stringField(row, cityKeys),
			State: stringField(row, stateKeys),
		}
	}
	return out, nil
}

// firstPresent returns the value of the first key that exists and is not null.
func firstPresent(row map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(row map[string]any, keys []string) string {
	v, ok := firstPresent(row, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func numberField(row map[string]any, keys []string) (float64, bool) {
	v, ok := firstPresent(row, keys)
	if !ok {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
