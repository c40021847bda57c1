package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/pkg/sys"

	"main/internal/deck"
	"main/internal/node"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/report"
	"main/internal/store"
	"main/internal/valuator"
	"main/pkg/conn"
)

func main() {
	strategyName := flag.String("strategy", "memory", "Pricing strategy: memory or fine")
	n := flag.Int64("n", -1, "Number of portfolios to price (overrides config)")
	begin := flag.Int64("begin", -1, "First portfolio identifier (overrides config)")
	seed := flag.Int64("seed", -1, "Deck shuffle seed, 0 keeps sequential order (overrides config)")
	size := flag.Int64("size", -1, "Bond catalog size (overrides config)")
	workers := flag.Int("workers", -1, "Worker limit, 0 uses all CPUs (overrides config)")
	configPath := flag.String("config", "", "Path to JSON config")
	reportPath := flag.String("report", "", "Write the full run analysis to this path (overrides config)")
	verifyDeck := flag.Bool("verify-deck", false, "Verify the deck checksum before and after the run")
	profileAddr := flag.String("profile-addr", "", "Pyroscope server address (empty disables profiling)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	spec := applyOverrides(loaded.Bench, *n, *begin, *seed, *size, *workers, *reportPath)

	if *profileAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "bond-bench",
			ServerAddress:   *profileAddr,
			Tags: map[string]string{
				"strategy": *strategyName,
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-sys.Shutdown()
		cancel()
	}()

	if err := run(ctx, *strategyName, spec, loaded.Database, *verifyDeck); err != nil {
		log.Fatalf("bench failed: %v", err)
	}
}

func run(ctx context.Context, strategyName string, spec ops.BenchSpec, dbOpt conn.Option, verifyDeck bool) error {
	client, err := conn.New(dbOpt)
	if err != nil {
		return fmt.Errorf("connect to store: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	gateway, err := store.NewPostgres(client)
	if err != nil {
		return err
	}

	engine := valuator.NewEngine(valuator.DefaultCurve())
	metrics := obs.NewMetrics()

	var strategy node.Strategy
	switch strategyName {
	case "memory":
		strategy = node.NewMemoryBound(gateway, engine, spec.Workers, metrics)
	case "fine":
		strategy = node.NewFineGrained(gateway, engine, spec.Workers, metrics)
	default:
		return fmt.Errorf("unknown strategy %q (want memory or fine)", strategyName)
	}

	var checksumBefore uint64
	if verifyDeck {
		checksumBefore, err = deck.Expected(spec.Partition)
		if err != nil {
			return err
		}
	}

	analysis, err := node.New(strategy).Run(ctx, spec.Partition)
	if err != nil {
		return err
	}

	if verifyDeck {
		priced := make([]int64, 0, len(analysis.Results))
		for _, r := range analysis.Results {
			priced = append(priced, r.PortfID)
		}
		if got := deck.Checksum(priced); got != checksumBefore {
			return fmt.Errorf("deck checksum mismatch: expected=%d got=%d", checksumBefore, got)
		}
		log.Printf("deck checksum verified: %d", checksumBefore)
	}

	log.Printf("%s", report.Summarize(analysis))
	logMetrics(metrics.Snapshot())

	if spec.ReportPath != "" {
		if err := report.Write(spec.ReportPath, analysis); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Printf("report written: %s", spec.ReportPath)
	}
	return nil
}

func applyOverrides(spec ops.BenchSpec, n, begin, seed, size int64, workers int, reportPath string) ops.BenchSpec {
	if n >= 0 {
		spec.Partition.N = n
	}
	if begin >= 0 {
		spec.Partition.Begin = begin
	}
	if seed >= 0 {
		spec.Partition.Seed = seed
	}
	if size >= 0 {
		spec.CatalogSize = size
	}
	if workers >= 0 {
		spec.Workers = workers
	}
	if reportPath != "" {
		spec.ReportPath = reportPath
	}
	return spec
}

func logMetrics(s obs.Snapshot) {
	log.Printf("metrics: portfolios_priced=%d bonds_loaded=%d bonds_priced=%d", s.PortfoliosPriced, s.BondsLoaded, s.BondsPriced)
	log.Printf("load latency: count=%d min=%v max=%v avg=%v", s.LoadLatency.Count, s.LoadLatency.Min, s.LoadLatency.Max, s.LoadLatency.Avg)
	log.Printf("price latency: count=%d min=%v max=%v avg=%v", s.PriceLatency.Count, s.PriceLatency.Min, s.PriceLatency.Max, s.PriceLatency.Avg)
	log.Printf("persist latency: count=%d min=%v max=%v avg=%v", s.PersistLatency.Count, s.PersistLatency.Min, s.PersistLatency.Max, s.PersistLatency.Avg)
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
