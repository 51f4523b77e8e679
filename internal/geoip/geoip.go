// Package geoip resolves the country of the device an ad is requested for.
package geoip

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/spf13/afero"
)

// GeoIP looks up countries in a MaxMind database or, when the file is not one,
// in a JSON list of CIDR ranges:
//
//	[{"net": "10.0.0.0/8", "country": "US"}]
type GeoIP struct {
	db       *geoip2.Reader
	fallback []record
}

type record struct {
	net     *net.IPNet
	country string
}

// Init loads the database at path from fs. An empty path returns a nil
// GeoIP, on which every lookup returns "".
func Init(fs afero.Fs, path string) (*GeoIP, error) {
	if path == "" {
		return nil, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read geoip db: %w", err)
	}

	g := &GeoIP{}
	db, dberr := geoip2.FromBytes(data)
	if dberr == nil {
		g.db = db
		return g, nil
	}

	var entries []struct {
		Net     string `json:"net"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("open geoip db: %w", dberr)
	}
	for _, e := range entries {
		if _, n, perr := net.ParseCIDR(e.Net); perr == nil {
			g.fallback = append(g.fallback, record{net: n, country: e.Country})
		}
	}
	return g, nil
}

// Country returns the ISO country code for ip or "" when unknown.
func (g *GeoIP) Country(ip net.IP) string {
	if g == nil || ip == nil {
		return ""
	}
	if g.db != nil {
		if rec, err := g.db.Country(ip); err == nil {
			return rec.Country.IsoCode
		}
	}
	for _, r := range g.fallback {
		if r.net.Contains(ip) {
			return r.country
		}
	}
	return ""
}

// Close releases the database.
func (g *GeoIP) Close() error {
	if g != nil && g.db != nil {
		return g.db.Close()
	}
	return nil
}
