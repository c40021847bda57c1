package main

import (
	"context"
	"flag"
	"log"

	"main/internal/deck"
	"main/internal/model"
	"main/internal/ops"
	"main/internal/seed"
	"main/internal/store"
	"main/pkg/conn"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	size := flag.Int64("size", -1, "Bond catalog size (overrides config)")
	portfolios := flag.Int64("portfolios", -1, "Number of portfolios to seed (overrides config)")
	begin := flag.Int64("begin", -1, "First portfolio identifier (overrides config)")
	bondsPer := flag.Int("bonds-per", ops.DefaultBondsPerPortfolio, "Bonds held by each portfolio")
	tiersPath := flag.String("tiers", "", "Path to a JSON bond tier catalog (empty uses built-in tiers)")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	spec := loaded.Bench
	if *size >= 0 {
		spec.CatalogSize = *size
	}
	if *portfolios >= 0 {
		spec.Partition.N = *portfolios
	}
	if *begin >= 0 {
		spec.Partition.Begin = *begin
	}

	tiers := seed.DefaultTiers()
	if *tiersPath != "" {
		tiers, err = seed.LoadTiers(*tiersPath)
		if err != nil {
			log.Fatalf("load tiers failed: %v", err)
		}
	}
	generator, err := seed.NewGenerator(tiers, *bondsPer)
	if err != nil {
		log.Fatalf("build generator failed: %v", err)
	}

	ctx := context.Background()
	if err := run(ctx, generator, spec, loaded.Database); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run(ctx context.Context, generator *seed.Generator, spec ops.BenchSpec, dbOpt conn.Option) error {
	client, err := conn.New(dbOpt)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Ping(ctx); err != nil {
		return err
	}

	gateway, err := store.NewPostgres(client)
	if err != nil {
		return err
	}
	if err := gateway.Migrate(ctx); err != nil {
		return err
	}
	if err := gateway.Reset(ctx); err != nil {
		return err
	}

	bonds, holdings, err := generator.Catalog(spec.CatalogSize, spec.Partition.N, spec.Partition.Begin)
	if err != nil {
		return err
	}
	if err := gateway.InsertBonds(ctx, bonds); err != nil {
		return err
	}
	if err := gateway.InsertHoldings(ctx, holdings); err != nil {
		return err
	}

	checksum, err := deck.Expected(model.Partition{N: spec.Partition.N, Begin: spec.Partition.Begin})
	if err != nil {
		return err
	}
	log.Printf("seeded %d bonds and %d portfolios (begin=%d), deck checksum %d",
		len(bonds), len(holdings), spec.Partition.Begin, checksum)
	return nil
}
