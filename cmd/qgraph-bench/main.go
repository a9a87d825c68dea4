package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qgraph/qgraph/graph"
	"github.com/qgraph/qgraph/internal/core"
	"github.com/qgraph/qgraph/internal/coordinator"
	"github.com/qgraph/qgraph/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if err := envconfig.Process("QGRAPH", &cfg); err != nil {
		panic(err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	go func() {
		logger.Info("starting metrics server", zap.String("address", cfg.MetricsAddr))
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	g := graph.New(graph.WithLogger(logger))

	edgeLog, err := coordinator.NewParquetEdgeStore(cfg.EdgeLogDir)
	if err != nil {
		logger.Fatal("open edge log", zap.Error(err))
	}
	coord := coordinator.New(g.Nodes, g.Types, g.Topo, edgeLog, coordinator.WithLogger(logger))

	props, err := coordinator.NewDuckDBPropertyStore(context.Background())
	if err != nil {
		logger.Fatal("open property store", zap.Error(err))
	}
	defer props.Close()

	if cfg.ArrowPath != "" {
		f, err := os.Open(cfg.ArrowPath)
		if err != nil {
			logger.Fatal("open arrow source", zap.Error(err), zap.String("path", cfg.ArrowPath))
		}
		if err := g.LoadArrowBatch(f); err != nil {
			logger.Fatal("hydrate from arrow source", zap.Error(err))
		}
		_ = f.Close()
	}

	if cfg.CompactOnStartup {
		g.Compact()
	}

	runDemo(logger, g, coord, props, cfg)

	_ = g.Save(cfg.SnapshotPath)
}

// runDemo exercises the coordinator's write path, the graph's read path, and
// the property store lookup that a query planner would perform once it has
// resolved traversal results back to labels, against a handful of synthetic
// edges, so the binary does something observable without requiring an
// Arrow source to be supplied.
func runDemo(logger *zap.Logger, g *graph.Graph, coord *coordinator.Coordinator, props *coordinator.DuckDBPropertyStore, cfg Config) {
	ctx := context.Background()

	if err := coord.InsertEdge("alice", "bob", "FOLLOWS", 0, core.Forever); err != nil {
		logger.Error("insert edge", zap.Error(err))
		return
	}
	if err := coord.InsertEdge("bob", "carol", "FOLLOWS", 0, core.Forever); err != nil {
		logger.Error("insert edge", zap.Error(err))
		return
	}
	if err := coord.InsertEdge("carol", "dave", "FOLLOWS", 0, core.Forever); err != nil {
		logger.Error("insert edge", zap.Error(err))
		return
	}

	for label, payload := range map[string]string{
		"alice": `{"role":"seed"}`,
		"bob":   `{"role":"relay"}`,
		"carol": `{"role":"relay"}`,
		"dave":  `{"role":"leaf"}`,
	} {
		if err := props.Seed(ctx, label, payload); err != nil {
			logger.Error("seed property", zap.Error(err), zap.String("label", label))
			return
		}
	}

	reachable := g.TraverseBounded([]string{"alice"}, "FOLLOWS", core.Out, 1, cfg.TraverseMaxDepth, core.Now)
	logger.Info("bounded traversal from alice", zap.Strings("reachable", reachable))

	rows, err := props.Query(ctx, reachable)
	if err != nil {
		logger.Error("query properties", zap.Error(err))
		return
	}
	logger.Info("properties for reachable nodes", zap.Int("count", len(rows)))

	triangle := []graph.PatternConstraint{
		{SrcVar: 0, DstVar: 1, EdgeType: "FOLLOWS"},
		{SrcVar: 1, DstVar: 2, EdgeType: "FOLLOWS"},
	}
	matches, err := g.Match(triangle, []string{"alice"})
	if err != nil {
		logger.Error("match", zap.Error(err))
		return
	}
	logger.Info("pattern matches from alice", zap.Int("count", len(matches)))
}
