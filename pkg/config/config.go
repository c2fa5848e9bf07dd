// Package config loads hazard-router settings from defaults, an optional TOML
// file, HAZARD_ROUTER_* environment variables and command-line flags, in
// increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// DefaultFile is the config file read when no --config flag is given.
const DefaultFile = "hazard-router.toml"

const envPrefix = "HAZARD_ROUTER_"

// Config holds all configuration for the application.
type Config struct {
	Graph   GraphConfig   `koanf:"graph"`
	Hazards HazardsConfig `koanf:"hazards"`
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
}

// GraphConfig controls graph acquisition.
type GraphConfig struct {
	Online      bool          `koanf:"online"`
	Cache       string        `koanf:"cache" validate:"required"`
	CenterLat   float64       `koanf:"center_lat" validate:"gte=-90,lte=90"`
	CenterLon   float64       `koanf:"center_lon" validate:"gte=-180,lte=180"`
	Radius      float64       `koanf:"radius" validate:"gt=0,lte=50000"`
	GridSize    int           `koanf:"grid_size" validate:"gte=2,lte=1000"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	OverpassURL string        `koanf:"overpass_url" validate:"omitempty,url"`
}

// HazardsConfig locates the hazard polygons.
type HazardsConfig struct {
	File     string  `koanf:"file"`
	SpreadKm float64 `koanf:"spread_km" validate:"gte=0,lte=100"`
	Watch    bool    `koanf:"watch"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port          int    `koanf:"port" validate:"gte=1,lte=65535"`
	CORSOrigin    string `koanf:"cors_origin"`
	MaxConcurrent int    `koanf:"max_concurrent" validate:"gte=0"`
}

// LogConfig configures pkg/logging.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `koanf:"json"`
}

var defaults = map[string]any{
	"graph.online":          false,
	"graph.cache":           "data/local_graph.bin",
	"graph.center_lat":      9.9312,
	"graph.center_lon":      76.2673,
	"graph.radius":          1500.0,
	"graph.grid_size":       10,
	"graph.timeout":         "5s",
	"graph.overpass_url":    "",
	"hazards.file":          "data/hazard_zones.geojson",
	"hazards.spread_km":     0.0,
	"hazards.watch":         false,
	"server.port":           8080,
	"server.cors_origin":    "",
	"server.max_concurrent": 0,
	"log.level":             "info",
	"log.json":              false,
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here (such as --config) are not loaded into the config.
var flagKeys = map[string]string{
	"online":         "graph.online",
	"cache":          "graph.cache",
	"lat":            "graph.center_lat",
	"lon":            "graph.center_lon",
	"radius":         "graph.radius",
	"grid-size":      "graph.grid_size",
	"timeout":        "graph.timeout",
	"overpass-url":   "graph.overpass_url",
	"hazards":        "hazards.file",
	"spread-km":      "hazards.spread_km",
	"watch":          "hazards.watch",
	"port":           "server.port",
	"cors-origin":    "server.cors_origin",
	"max-concurrent": "server.max_concurrent",
	"log-level":      "log.level",
	"log-json":       "log.json",
}

var validate = validator.New()

// GraphFlags registers the graph acquisition flags.
func GraphFlags(f *pflag.FlagSet) {
	f.Bool("online", false, "Fetch the walk network from Overpass instead of using the cache")
	f.String("cache", "data/local_graph.bin", "Graph snapshot path")
	f.Float64("lat", 9.9312, "Acquisition center latitude")
	f.Float64("lon", 76.2673, "Acquisition center longitude")
	f.Float64("radius", 1500, "Acquisition radius in meters")
	f.Int("grid-size", 10, "Side of the synthetic fallback grid")
	f.Duration("timeout", 5*time.Second, "Live fetch timeout")
	f.String("overpass-url", "", "Overpass API endpoint (default public instance)")
}

// HazardFlags registers the hazard input flags.
func HazardFlags(f *pflag.FlagSet) {
	f.String("hazards", "data/hazard_zones.geojson", "Hazard zones GeoJSON file")
	f.Float64("spread-km", 0, "Buffer every hazard polygon by this many kilometers")
}

// ServerFlags registers the HTTP server flags.
func ServerFlags(f *pflag.FlagSet) {
	f.Int("port", 8080, "HTTP port")
	f.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	f.Int("max-concurrent", 0, "Concurrent request limit (0 = 2 x CPUs)")
	f.Bool("watch", false, "Reload hazards when the hazard file changes")
}

// LogFlags registers the logging flags.
func LogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.Bool("log-json", false, "Log as JSON")
}

// Load builds the configuration. path names the TOML file; a missing file
// is skipped, an unreadable or malformed one is an error. f may be nil.
func Load(path string, f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Config file
	if path == "" {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// 3. Environment: HAZARD_ROUTER_GRAPH_CENTER_LAT -> graph.center_lat
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		p := posflag.ProviderWithFlag(f, ".", k, func(fl *pflag.Flag) (string, any) {
			key, ok := flagKeys[fl.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(f, fl)
		})
		if err := k.Load(p, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps an environment variable to a config key: the first
// underscore separates the section, later ones belong to the key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(s, "_", ".", 1)
}

// mapProvider serves a flat map of dotted keys.
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(p, "."), nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("not implemented")
}
