package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"urbanconnect-be/geocoder"
)

// ResolvedLocation is the first geocoder candidate for a free-text address.
type ResolvedLocation struct {
	Display string
	Lat     string
	Lon     string
}

// ReverseResult is a display string for coordinates. Verified is false when
// the provider could not be reached and Display is the raw "lat,lng" text.
type ReverseResult struct {
	Display  string `json:"location"`
	Verified bool   `json:"verified"`
}

type GeoValidator struct {
	geo Geocoder
	log *slog.Logger
}

func NewGeoValidator(geo Geocoder, log *slog.Logger) *GeoValidator {
	if log == nil {
		log = slog.Default()
	}
	return &GeoValidator{geo: geo, log: log}
}

// Resolve forward-geocodes text. A provider outage is reported as
// ErrGeoServiceUnavailable and never as an invalid location.
func (v *GeoValidator) Resolve(ctx context.Context, text string) (ResolvedLocation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ResolvedLocation{}, withMessage(ErrInvalidLocation, "Location is required")
	}

	places, err := v.geo.Search(ctx, text)
	if err != nil {
		if errors.Is(err, geocoder.ErrNotFound) {
			return ResolvedLocation{}, ErrInvalidLocation
		}
		return ResolvedLocation{}, withCause(ErrGeoServiceUnavailable, err)
	}
	if len(places) == 0 || strings.TrimSpace(places[0].DisplayName) == "" {
		return ResolvedLocation{}, ErrInvalidLocation
	}

	first := places[0]
	return ResolvedLocation{Display: first.DisplayName, Lat: first.Lat, Lon: first.Lon}, nil
}

// Reverse never fails: on any provider error it falls back to the
// coordinates themselves, which Resolve must check again on submit.
func (v *GeoValidator) Reverse(ctx context.Context, lat, lng float64) ReverseResult {
	display, err := v.geo.Reverse(ctx, lat, lng)
	if err != nil || strings.TrimSpace(display) == "" {
		v.log.Warn("reverse geocode fallback", "lat", lat, "lng", lng, "error", err)
		return ReverseResult{Display: FormatCoordinates(lat, lng)}
	}
	return ReverseResult{Display: display, Verified: true}
}

func FormatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// ValidCoordinates reports whether lat and lng lie on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
