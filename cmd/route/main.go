package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"hazard_router/pkg/acquire"
	"hazard_router/pkg/config"
	"hazard_router/pkg/hazard"
	"hazard_router/pkg/logging"
	osmparser "hazard_router/pkg/osm"
	"hazard_router/pkg/routing"
)

var (
	configPath string
	origin     []float64
	target     []float64
	objective  string
)

var rootCmd = &cobra.Command{
	Use:   "route",
	Short: "Compute one hazard-aware route and print it as JSON",
	Example: `  route --from 9.9312,76.2673 --to 9.9400,76.2600 --objective fastest
  route --from 0,0 --to 9,9 --cache /nonexistent   # synthetic grid`,
	SilenceUsage: true,
	RunE:         runRoute,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.DefaultFile, "TOML config file")
	f.Float64SliceVar(&origin, "from", nil, "Origin as lat,lng")
	f.Float64SliceVar(&target, "to", nil, "Target as lat,lng")
	f.StringVar(&objective, "objective", "shortest", "shortest, fastest or safest")
	config.GraphFlags(f)
	config.HazardFlags(f)
	config.LogFlags(f)
	rootCmd.MarkFlagRequired("from")
	rootCmd.MarkFlagRequired("to")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type resolutionOut struct {
	Node           string  `json:"node"`
	Kind           string  `json:"kind"`
	DistanceMeters float64 `json:"distance_meters"`
}

type output struct {
	Source         string        `json:"source"`
	AcquireError   string        `json:"acquire_error,omitempty"`
	BlockedEdges   int           `json:"blocked_edges"`
	Objective      string        `json:"objective"`
	Cost           float64       `json:"cost"`
	DistanceMeters float64       `json:"distance_meters"`
	Coordinates    [][2]float64  `json:"coordinates"`
	Origin         resolutionOut `json:"origin"`
	Target         resolutionOut `json:"target"`
}

func runRoute(cmd *cobra.Command, _ []string) error {
	from, err := latLng("from", origin)
	if err != nil {
		return err
	}
	to, err := latLng("to", target)
	if err != nil {
		return err
	}
	obj, err := routing.ParseObjective(objective)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	res := acquire.Acquire(ctx, acquire.Options{
		Online:       cfg.Graph.Online,
		CachePath:    cfg.Graph.Cache,
		CenterLat:    cfg.Graph.CenterLat,
		CenterLon:    cfg.Graph.CenterLon,
		RadiusMeters: cfg.Graph.Radius,
		GridSize:     cfg.Graph.GridSize,
		Timeout:      cfg.Graph.Timeout,
		Fetcher:      osmparser.NewOverpassClient(cfg.Graph.OverpassURL, cfg.Graph.Timeout),
	})
	engine := routing.NewEngine(res.Graph, res.Source.String())

	hz, err := hazard.LoadFile(cfg.Hazards.File, cfg.Hazards.SpreadKm)
	if err != nil {
		return fmt.Errorf("load hazards: %w", err)
	}
	blocked := engine.ApplyHazards(hz.Polygons)

	rr, err := engine.Route(ctx, routing.PathRequest{Origin: from, Target: to, Objective: obj})
	if err != nil {
		return err
	}

	out := output{
		Source:         res.Source.String(),
		BlockedEdges:   blocked,
		Objective:      rr.Objective.String(),
		Cost:           rr.Cost,
		DistanceMeters: rr.DistanceMeters,
		Coordinates:    make([][2]float64, len(rr.Coordinates)),
		Origin:         resolution(rr.Origin),
		Target:         resolution(rr.Target),
	}
	if res.Err != nil {
		out.AcquireError = res.Err.Error()
	}
	for i, c := range rr.Coordinates {
		out.Coordinates[i] = [2]float64{c.Lat, c.Lng}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func latLng(flag string, v []float64) (routing.LatLng, error) {
	if len(v) != 2 {
		return routing.LatLng{}, fmt.Errorf("--%s wants lat,lng, got %d values", flag, len(v))
	}
	return routing.LatLng{Lat: v[0], Lng: v[1]}, nil
}

func resolution(r routing.Resolution) resolutionOut {
	return resolutionOut{Node: r.Node.String(), Kind: r.Kind.String(), DistanceMeters: r.DistanceMeters}
}
