// joshrun is the thin harness wiring configuration, a compiled model, and the replicate
// driver together (§6). It intentionally carries no web server or UI: the teacher's
// main.go serves a live training view over gorilla/mux+websocket, but a server wrapper is
// explicitly out of scope here (§9 Non-goals) -- joshrun is a batch CLI, full stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/schmidtdse/josh-core/internal/config"
	"github.com/schmidtdse/josh-core/internal/entity"
	"github.com/schmidtdse/josh-core/internal/export"
	"github.com/schmidtdse/josh-core/internal/metrics"
	"github.com/schmidtdse/josh-core/internal/model"
	"github.com/schmidtdse/josh-core/internal/obslog"
	"github.com/schmidtdse/josh-core/internal/replicate"
	"github.com/schmidtdse/josh-core/internal/rng"
	"github.com/schmidtdse/josh-core/internal/scheduler"
	"github.com/schmidtdse/josh-core/internal/spatial"
	"github.com/schmidtdse/josh-core/internal/value"

	"github.com/prometheus/client_golang/prometheus"
)

var configPath = flag.String("config", "./config.yaml", "simulation settings YAML file")

func run() error {
	flag.Parse()

	settings, err := config.FromYaml(*configPath)
	if err != nil {
		return fmt.Errorf("joshrun: loading config: %w", err)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("joshrun: registering metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builder := export.NewBuilder(ctx)
	for _, t := range settings.ExportTargets {
		builder = builder.WithWriter(export.WriterConfig{
			EntityType:    t.EntityType,
			Format:        t.Format,
			PathTemplate:  t.PathTemplate,
			ChunkSize:     t.ChunkSize,
			QueueCapacity: t.QueueCapacity,
		})
	}
	router, err := builder.Build()
	if err != nil {
		return fmt.Errorf("joshrun: building export pipelines: %w", err)
	}

	// demoModel is a placeholder CompiledModel standing in for whatever an external model
	// compiler produces (§6): a single Organism type with one `height` attribute and no
	// handlers declared, so height is never resolved. A real deployment replaces
	// this with its own compiled bytecode; everything downstream (World, scheduler,
	// export) is unaware of the difference.
	demoModel := &model.CompiledModel{
		EntityTypes: []model.EntityTypeDecl{
			{
				Name:       "Organism",
				Kind:       entity.KindOrganism,
				Attributes: []string{"height"},
			},
		},
	}

	grid := spatial.NewGrid(
		settings.Grid.MinLat, settings.Grid.MinLon,
		settings.Grid.MaxLat, settings.Grid.MaxLon,
		settings.Grid.CellSizeMeters,
	)

	newWorld := func(stream *rng.Stream) (*scheduler.World, error) {
		engine := value.NewEngine(value.NewConversionGraph())
		w := model.Build(demoModel, engine, settings.SampleSize, stream)
		w.Grid = grid
		return w, nil
	}

	driver := &replicate.Driver{
		Settings: settings,
		NewWorld: newWorld,
		Router:   router,
	}

	if err := driver.Run(ctx); err != nil {
		return fmt.Errorf("joshrun: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		obslog.Base.Error().Err(err).Msg("joshrun failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
