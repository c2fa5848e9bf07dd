// Package acquire obtains the session's routing graph: a live walk-network
// fetch, else the cached snapshot, else the synthetic grid.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"hazard_router/pkg/graph"
	"hazard_router/pkg/logging"
	"hazard_router/pkg/metrics"
	osmparser "hazard_router/pkg/osm"
)

// Defaults for Options fields left at their zero value.
const (
	DefaultCenterLat    = 9.9312
	DefaultCenterLon    = 76.2673
	DefaultRadiusMeters = 1500.0
	DefaultCachePath    = "data/local_graph.bin"
)

// ErrNoCache is reported when no usable snapshot exists at the cache path.
var ErrNoCache = errors.New("no cached graph")

// Source records where a graph came from.
type Source int

const (
	Live Source = iota
	Cached
	SyntheticGrid
)

func (s Source) String() string {
	switch s {
	case Live:
		return "live"
	case Cached:
		return "cached"
	default:
		return "synthetic_grid"
	}
}

// MarshalText encodes the source as its name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fetcher downloads and parses the walk network around a center point.
// *osm.OverpassClient satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon, radiusMeters float64) (*osmparser.ParseResult, error)
}

// Options configures an acquisition.
type Options struct {
	Online       bool
	CachePath    string
	CenterLat    float64
	CenterLon    float64
	RadiusMeters float64
	GridSize     int
	Timeout      time.Duration
	Fetcher      Fetcher // nil uses an Overpass client with the default endpoint
}

func (o *Options) applyDefaults() {
	if o.CachePath == "" {
		o.CachePath = DefaultCachePath
	}
	if o.CenterLat == 0 && o.CenterLon == 0 {
		o.CenterLat, o.CenterLon = DefaultCenterLat, DefaultCenterLon
	}
	if o.RadiusMeters <= 0 {
		o.RadiusMeters = DefaultRadiusMeters
	}
	if o.GridSize <= 0 {
		o.GridSize = graph.DefaultGridSize
	}
	if o.Timeout <= 0 {
		o.Timeout = osmparser.DefaultFetchTimeout
	}
	if o.Fetcher == nil {
		o.Fetcher = osmparser.NewOverpassClient("", o.Timeout)
	}
}

// Result is an acquired graph. Err holds the failure that forced a fallback,
// nil when the preferred source served.
type Result struct {
	Graph  *graph.Graph
	Source Source
	Err    error
}

// Acquire returns a graph for the session. Offline, a readable cache is
// returned as is. Otherwise the walk network is fetched and cached; if the
// fetch fails the cache is tried, then the synthetic grid. Acquire never
// fails: Result.Err carries the failure that forced a fallback.
func Acquire(ctx context.Context, opts Options) Result {
	opts.applyDefaults()
	res := acquire(ctx, opts)
	metrics.Acquisitions.WithLabelValues(res.Source.String()).Inc()
	return res
}

func acquire(ctx context.Context, opts Options) Result {
	var cacheErr error
	if !opts.Online {
		g, err := loadCache(opts.CachePath)
		if err == nil {
			return cached(opts.CachePath, g, nil)
		}
		cacheErr = err
	}

	g, err := fetch(ctx, opts)
	if err == nil {
		if err := saveCache(opts.CachePath, g); err != nil {
			logging.Warn("graph cache not written", "path", opts.CachePath, "error", err)
		}
		return Result{Graph: g, Source: Live}
	}
	logging.Warn("live graph fetch failed", "error", err)

	if cacheErr == nil {
		if g, cerr := loadCache(opts.CachePath); cerr == nil {
			return cached(opts.CachePath, g, err)
		}
	}
	return fallback(opts, err)
}

func cached(path string, g *graph.Graph, cause error) Result {
	logging.Info("graph loaded from cache", "path", path, "nodes", g.NumNodes(), "edges", g.NumEdges())
	return Result{Graph: g, Source: Cached, Err: cause}
}

// fetch downloads the walk network and keeps its largest component.
func fetch(ctx context.Context, opts Options) (*graph.Graph, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	start := time.Now()
	parsed, err := opts.Fetcher.Fetch(ctx, opts.CenterLat, opts.CenterLon, opts.RadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("fetch walk network: %w", err)
	}

	g := graph.Build(parsed)
	nodes := graph.LargestComponent(g)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("fetch walk network: %w", osmparser.ErrEmptyResponse)
	}
	if len(nodes) < g.NumNodes() {
		logging.Info("kept largest component", "nodes", len(nodes), "of", g.NumNodes())
		g = graph.FilterToComponent(g, nodes)
	}

	logging.Info("graph fetched", "nodes", g.NumNodes(), "edges", g.NumEdges(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return g, nil
}

// loadCache reads the snapshot. A missing or corrupt file reports an error
// wrapping ErrNoCache.
func loadCache(path string) (*graph.Graph, error) {
	g, err := graph.ReadBinary(path)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNoCache, path)
	case errors.Is(err, graph.ErrCorruptSnapshot):
		logging.Warn("ignoring corrupt graph cache", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrNoCache, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrNoCache, err)
	}
}

func saveCache(path string, g *graph.Graph) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return graph.WriteBinary(path, g)
}

func fallback(opts Options, cause error) Result {
	g := graph.Grid(opts.GridSize)
	logging.Warn("using synthetic grid", "size", opts.GridSize, "edges", g.NumEdges(), "error", cause)
	return Result{Graph: g, Source: SyntheticGrid, Err: cause}
}
