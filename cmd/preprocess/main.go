package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hazard_router/pkg/config"
	"hazard_router/pkg/graph"
	"hazard_router/pkg/logging"
	osmparser "hazard_router/pkg/osm"
)

var (
	configPath string
	input      string
	bbox       string
	kochi      bool
)

var kochiBBox = osmparser.BBox{MinLat: 9.85, MaxLat: 10.10, MinLng: 76.20, MaxLng: 76.40}

var rootCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Build the cached walk graph snapshot",
	Long: `Builds the graph snapshot read by the server in offline mode.

With --input the walk network is parsed from an .osm.pbf extract; without it
the network is fetched live from Overpass around --lat/--lon. Either way only
the largest connected component is kept and the result is written to --cache.`,
	SilenceUsage: true,
	RunE:         runPreprocess,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.DefaultFile, "TOML config file")
	f.StringVar(&input, "input", "", "Path to .osm.pbf file (default: fetch from Overpass)")
	f.StringVar(&bbox, "bbox", "", "Bounding box filter: minLat,minLng,maxLat,maxLng")
	f.BoolVar(&kochi, "kochi", false, "Shortcut for --bbox 9.85,76.20,10.10,76.40")
	config.GraphFlags(f)
	config.LogFlags(f)
	rootCmd.MarkFlagsMutuallyExclusive("bbox", "kochi")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts, err := parseOptions()
	if err != nil {
		return err
	}

	start := time.Now()
	var raw *osmparser.ParseResult
	if input != "" {
		raw, err = parseFile(ctx, input, opts)
	} else {
		logging.Info("fetching from overpass", "lat", cfg.Graph.CenterLat, "lon", cfg.Graph.CenterLon, "radius", cfg.Graph.Radius)
		fctx, cancel := context.WithTimeout(ctx, cfg.Graph.Timeout)
		raw, err = osmparser.NewOverpassClient(cfg.Graph.OverpassURL, cfg.Graph.Timeout).
			Fetch(fctx, cfg.Graph.CenterLat, cfg.Graph.CenterLon, cfg.Graph.Radius)
		cancel()
	}
	if err != nil {
		return err
	}
	logging.Info("parsed", "edges", len(raw.Edges), "nodes", len(raw.NodeLat))

	g := graph.Build(raw)
	logging.Info("graph built", "nodes", g.NumNodes(), "edges", g.NumEdges())
	if g.NumNodes() == 0 {
		return errors.New("no walkable ways in input")
	}

	component := graph.LargestComponent(g)
	logging.Info("largest component", "nodes", len(component),
		"share", fmt.Sprintf("%.1f%%", float64(len(component))/float64(g.NumNodes())*100))
	g = graph.FilterToComponent(g, component)

	out := cfg.Graph.Cache
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := graph.WriteBinary(out, g); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		return err
	}
	logging.Info("done", "output", out, "nodes", g.NumNodes(), "edges", g.NumEdges(),
		"size_mb", fmt.Sprintf("%.1f", float64(info.Size())/(1024*1024)),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func parseOptions() (osmparser.ParseOptions, error) {
	var opts osmparser.ParseOptions
	switch {
	case kochi:
		opts.BBox = kochiBBox
	case bbox != "":
		var b osmparser.BBox
		if _, err := fmt.Sscanf(bbox, "%f,%f,%f,%f", &b.MinLat, &b.MinLng, &b.MaxLat, &b.MaxLng); err != nil {
			return opts, fmt.Errorf("invalid --bbox (expected minLat,minLng,maxLat,maxLng): %w", err)
		}
		if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
			return opts, fmt.Errorf("invalid --bbox %q: min must be below max", bbox)
		}
		opts.BBox = b
	}
	if !opts.BBox.IsZero() {
		logging.Info("bounding box filter", "lat", [2]float64{opts.BBox.MinLat, opts.BBox.MaxLat},
			"lng", [2]float64{opts.BBox.MinLng, opts.BBox.MaxLng})
	}
	return opts, nil
}

func parseFile(ctx context.Context, path string, opts osmparser.ParseOptions) (*osmparser.ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	logging.Info("parsing", "input", path)
	res, err := osmparser.Parse(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}
