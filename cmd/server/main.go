package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hazard_router/pkg/acquire"
	"hazard_router/pkg/api"
	"hazard_router/pkg/config"
	"hazard_router/pkg/hazard"
	"hazard_router/pkg/logging"
	"hazard_router/pkg/metrics"
	osmparser "hazard_router/pkg/osm"
	"hazard_router/pkg/routing"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve hazard-aware walking routes over HTTP",
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.DefaultFile, "TOML config file")
	config.GraphFlags(f)
	config.HazardFlags(f)
	config.ServerFlags(f)
	config.LogFlags(f)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, logging.ParseLevel(cfg.Log.Level), cfg.Log.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	start := time.Now()
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
	applyHazards(engine, hz, err)

	st := engine.Stats()
	logging.Info("ready", "source", st.Source, "nodes", st.Nodes, "edges", st.Edges,
		"blocked", st.BlockedEdges, "elapsed", time.Since(start).Round(time.Millisecond))

	if cfg.Hazards.Watch {
		w, err := hazard.NewWatcher(cfg.Hazards.File, cfg.Hazards.SpreadKm, func(r hazard.LoadResult, err error) {
			applyHazards(engine, r, err)
		})
		if err != nil {
			return fmt.Errorf("watch hazards: %w", err)
		}
		go w.Run(ctx)
	}

	srvCfg := api.DefaultConfig(fmt.Sprintf(":%d", cfg.Server.Port))
	srvCfg.CORSOrigin = cfg.Server.CORSOrigin
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}

	srv := api.NewServer(srvCfg, api.NewHandlers(engine))
	if err := api.ListenAndServe(ctx, srv); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// applyHazards installs a loaded hazard set. A failed load keeps the
// current set.
func applyHazards(engine *routing.Engine, r hazard.LoadResult, err error) {
	if err != nil {
		metrics.HazardReloads.WithLabelValues("error").Inc()
		logging.Warn("hazards not applied", "error", err)
		return
	}
	blocked := engine.ApplyHazards(r.Polygons)
	result := "ok"
	if r.Degraded {
		result = "degraded"
	}
	metrics.HazardReloads.WithLabelValues(result).Inc()
	logging.Info("hazards applied", "polygons", len(r.Polygons), "blocked", blocked, "degraded", r.Degraded)
}
