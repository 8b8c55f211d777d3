package device

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

var (
	// ErrGeoIPNotConfigured is returned when a lookup is attempted without
	// an opened GeoIP database.
	ErrGeoIPNotConfigured = errors.New("device: geoip database not configured")
	// ErrInvalidIP is returned for unparseable IP addresses.
	ErrInvalidIP = errors.New("device: invalid ip address")
)

// GeoIP resolves IP addresses to locations using a MaxMind GeoLite2-City
// database. A nil *GeoIP is safe to use: lookups fall back to no location.
type GeoIP struct {
	db *geoip2.Reader
}

// OpenGeoIP opens a GeoLite2-City database file.
func OpenGeoIP(path string) (*GeoIP, error) {
	if path == "" {
		return nil, ErrGeoIPNotConfigured
	}

	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("device: open geoip database: %w", err)
	}
	return &GeoIP{db: db}, nil
}

// Lookup resolves ip to a Location.
func (g *GeoIP) Lookup(ip string) (*Location, error) {
	if g == nil || g.db == nil {
		return nil, ErrGeoIPNotConfigured
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidIP, ip)
	}

	record, err := g.db.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("device: geoip lookup: %w", err)
	}

	return &Location{
		City:      localizedName(record.City.Names),
		Country:   localizedName(record.Country.Names),
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}

// LookupOrNil resolves ip, returning nil on any failure. Sessions carry a
// nullable location, so enrichment failures never block a login.
func (g *GeoIP) LookupOrNil(ip string) *Location {
	loc, err := g.Lookup(ip)
	if err != nil {
		return nil
	}
	return loc
}

// Close releases the underlying database handle.
func (g *GeoIP) Close() error {
	if g == nil || g.db == nil {
		return nil
	}
	return g.db.Close()
}

func localizedName(names map[string]string) string {
	if name, ok := names["en"]; ok {
		return name
	}
	for _, name := range names {
		return name
	}
	return ""
}
