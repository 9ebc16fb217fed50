package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// Country values assigned without (or in place of) a geolocation lookup.
const (
	countryLocal   = "Local"
	countryUnknown = "Unknown"
)

// Geolocator resolves an IP address to a two-letter country code through an
// external HTTP API. Lookups are best-effort: every failure mode collapses
// to "Unknown" and is never surfaced to the caller.
type Geolocator struct {
	baseURL string
	client  *http.Client
}

// NewGeolocator creates a Geolocator against the given API base URL
// (e.g. "http://ip-api.com"). The lookup carries no timeout or retry of its
// own beyond request-context cancellation.
func NewGeolocator(baseURL string) *Geolocator {
	return &Geolocator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Country returns the country for ip. Private and loopback prefixes, and
// the literal "unknown", resolve to "Local" without any network call.
func (g *Geolocator) Country(ctx context.Context, ip string) string {
	if ip == "unknown" || strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "192.168.") {
		return countryLocal
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/json/"+ip, nil)
	if err != nil {
		geoLookupFailures.Inc()
		return countryUnknown
	}
	resp, err := g.client.Do(req)
	if err != nil {
		geoLookupFailures.Inc()
		return countryUnknown
	}
	defer resp.Body.Close()

	var body struct {
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.CountryCode == "" {
		geoLookupFailures.Inc()
		return countryUnknown
	}
	return body.CountryCode
}
