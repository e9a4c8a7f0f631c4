// Package geoip attributes jobs to a requester country.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// CountryResolver resolves ISO country codes from IP addresses.
type CountryResolver interface {
	CountryCode(ip string) (string, error)
}

// Resolver provides country lookups backed by a MaxMind GeoLite2/GeoIP2 Country database.
type Resolver struct {
	reader *geoip2.Reader
}

// NewResolver opens the database at path. An empty path yields a nil resolver
// and no error; lookups through CountryOf then return "".
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Resolver{reader: reader}, nil
}

func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.reader == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	record, err := r.reader.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil {
		return "", nil
	}
	return record.Country.IsoCode, nil
}

func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}

// Static resolves from a fixed ip-to-country table.
type Static map[string]string

func (s Static) CountryCode(ip string) (string, error) {
	code, ok := s[ip]
	if !ok {
		return "", fmt.Errorf("geoip: no entry for %q", ip)
	}
	return code, nil
}

// CountryOf returns the upper-case ISO code for ip, or "" when r is nil or the
// lookup fails. Private and loopback addresses never resolve.
func CountryOf(r CountryResolver, ip string) string {
	if r == nil {
		return ""
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() {
		return ""
	}
	code, err := r.CountryCode(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
