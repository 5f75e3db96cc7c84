package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bradfitz/latlong"
	"github.com/umahmood/haversine"
	"googlemaps.github.io/maps"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const (
	milesPerDegreeLat = 69.0
	geocodeTimeout    = 5 * time.Second
	DefaultTimeZone   = "America/New_York"
)

var ErrAddressNotFound = errors.New("address_not_found")

func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := haversine.Coord{Lat: lat1, Lon: lon1}
	p2 := haversine.Coord{Lat: lat2, Lon: lon2}
	mi, _ := haversine.Distance(p1, p2)
	return mi
}

// BoundsAround returns a lat/lng box that contains every point within
// radiusMiles of the center. It is wider than the circle near the corners.
func BoundsAround(lat, lng, radiusMiles float64) models.GeoBounds {
	dLat := radiusMiles / milesPerDegreeLat
	cos := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cos > 0.0001 {
		dLng = math.Min(180, radiusMiles/(milesPerDegreeLat*cos))
	}
	return models.GeoBounds{
		MinLat: math.Max(-90, lat-dLat),
		MaxLat: math.Min(90, lat+dLat),
		MinLng: math.Max(-180, lng-dLng),
		MaxLng: math.Min(180, lng+dLng),
	}
}

func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// TimeZoneFor resolves the IANA zone at a coordinate, falling back to
// DefaultTimeZone offshore or when unknown.
func TimeZoneFor(lat, lng float64) string {
	if name := latlong.LookupZoneName(lat, lng); name != "" {
		if _, err := time.LoadLocation(name); err == nil {
			return name
		}
	}
	return DefaultTimeZone
}

// Geocoder resolves a postal address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

type GMapsGeocoder struct {
	client *maps.Client
}

func NewGMapsGeocoder(apiKey string) (*GMapsGeocoder, error) {
	c, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GMapsGeocoder{client: c}, nil
}

func (g *GMapsGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: address,
		Region:  "us",
	})
	if err != nil {
		utils.Logger.WithError(err).WithField("address", address).Warn("[GMapsGeocoder] geocode request failed")
		return 0, 0, fmt.Errorf("geocode: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrAddressNotFound
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

// FormatAddress joins the parts the way geocoders expect.
func FormatAddress(address, city, state, zip string) string {
	parts := []string{strings.TrimSpace(address), strings.TrimSpace(city)}
	tail := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}
