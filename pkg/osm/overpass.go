package osm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/osm"
)

// DefaultOverpassURL is the public Overpass API interpreter endpoint.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// DefaultFetchTimeout bounds a single Overpass request.
const DefaultFetchTimeout = 5 * time.Second

// maxResponseBytes caps the Overpass response body.
const maxResponseBytes = 256 << 20

// ErrEmptyResponse is returned when Overpass answers without any walkable way.
var ErrEmptyResponse = errors.New("overpass returned no walkable ways")

// OverpassClient fetches walk networks from an Overpass API endpoint.
// A fetch is a single attempt; callers decide what to do on failure.
type OverpassClient struct {
	URL     string
	Timeout time.Duration
	HTTP    *http.Client
}

// NewOverpassClient returns a client for endpoint (DefaultOverpassURL if empty).
func NewOverpassClient(endpoint string, timeout time.Duration) *OverpassClient {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &OverpassClient{
		URL:     endpoint,
		Timeout: timeout,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Query returns the Overpass QL for all highway ways within radiusMeters of
// (lat, lon), with their nodes, as XML.
func Query(lat, lon, radiusMeters float64) string {
	return fmt.Sprintf(
		`[out:xml][timeout:%d];way["highway"](around:%.0f,%.7f,%.7f);(._;>;);out body;`,
		25, radiusMeters, lat, lon,
	)
}

// Fetch downloads the walk network around (lat, lon) and parses it.
func (c *OverpassClient) Fetch(ctx context.Context, lat, lon, radiusMeters float64) (*ParseResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	form := url.Values{"data": {Query(lat, lon, radiusMeters)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("overpass status %d", resp.StatusCode)
	}

	var doc osm.OSM
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	result := ParseOSM(&doc)
	if len(result.Edges) == 0 {
		return nil, ErrEmptyResponse
	}
	return result, nil
}
