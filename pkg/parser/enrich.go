package parser

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dtnitsch/leakdiff/pkg/record"
)

// Hook adds derived fields to a parsed record in place.
type Hook func(record.Record)

// Hooks are the post-processing steps a target can name in its config.
var Hooks = map[string]Hook{
	"ipinfo":   EnrichIPInfo,
	"location": EnrichLocation,
}

var countryPattern = regexp.MustCompile(`^(.*)\s+\((\w{2})\)\s*$`)

// EnrichIPInfo splits the composite country and coordinates fields of the
// browserleaks IP page.
func EnrichIPInfo(r record.Record) {
	if country, ok := r.String("country"); ok {
		name, code, ok := SplitCountry(country)
		r["country_name"] = name
		if ok {
			r["country_code"] = code
		}
	}
	if coords, ok := r.String("coordinates"); ok {
		setLatLon(r, coords)
	}
}

// EnrichLocation splits the "lat,lon" loc field returned by ipinfo.io.
func EnrichLocation(r record.Record) {
	if loc, ok := r.String("loc"); ok {
		setLatLon(r, loc)
	}
}

func setLatLon(r record.Record, coords string) {
	lat, lon, err := SplitCoordinates(coords)
	if err != nil {
		r["latitude"] = nil
		r["longitude"] = nil
		return
	}
	r["latitude"] = lat
	r["longitude"] = lon
}

// SplitCountry splits "Germany (DE)" into name and two-letter code. Without a
// code it returns the raw value as the name and ok=false.
func SplitCountry(s string) (name, code string, ok bool) {
	m := countryPattern.FindStringSubmatch(s)
	if m == nil {
		return s, "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

var (
	errNoComma   = errors.New("coordinates: missing comma")
	errNonFinite = errors.New("coordinates: not a finite number")
)

// SplitCoordinates parses "lat, lon" after removing spaces. NaN and infinite
// values are rejected since they have no JSON form.
func SplitCoordinates(s string) (lat, lon float64, err error) {
	s = strings.ReplaceAll(s, " ", "")
	latStr, lonStr, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, errNoComma
	}
	if lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return 0, 0, err
	}
	if lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return 0, 0, err
	}
	if !isFinite(lat) || !isFinite(lon) {
		return 0, 0, errNonFinite
	}
	return lat, lon, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
