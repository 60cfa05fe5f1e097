// cmd/tools/reindex-items/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"give4need/internal/common/config"
	"give4need/internal/common/database"
	"give4need/internal/common/logger"
	"give4need/internal/repository/items"
	"give4need/internal/search"
)

func main() {
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml lookup)")
	dryRun := flag.Bool("dry-run", false, "Count listings without writing to the index")
	timeout := flag.Duration("timeout", 10*time.Minute, "Overall timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, "console", "stderr")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err != nil {
		fmt.Printf("Error connecting to elasticsearch: %v\n", err)
		os.Exit(1)
	}

	index, err := search.NewIndex(es, cfg.Database.Elasticsearch.ItemIndex, log)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if !*dryRun {
		if err := index.EnsureIndex(ctx); err != nil {
			fmt.Printf("Error preparing index: %v\n", err)
			os.Exit(1)
		}
	}

	all, err := items.NewRepository(pg.DB, log).ListAll(ctx)
	if err != nil {
		fmt.Printf("Error listing items: %v\n", err)
		os.Exit(1)
	}

	indexed, failed := 0, 0
	for _, item := range all {
		if *dryRun {
			continue
		}
		if err := index.Put(ctx, item); err != nil {
			failed++
			log.Warn("failed to index listing", map[string]interface{}{"itemId": item.ID, "error": err})
			continue
		}
		indexed++
	}

	fmt.Printf("Listings: %d, indexed: %d, failed: %d\n", len(all), indexed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
