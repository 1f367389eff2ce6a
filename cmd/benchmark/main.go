package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/config"
	"github.com/olgasafonova/tmodloader-docs-mcp-server/internal/server"
)

var searchQueries = []string{"npc", "ModItem", "player", "Terraria.ModLoader", "tile", ""}

func newComponents() (*server.Components, *config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		return nil, nil, false
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return server.NewComponents(cfg, logger), cfg, true
}

// measureCachePerformance compares the first (network) catalog build with a cached read
func measureCachePerformance() {
	c, cfg, ok := newComponents()
	if !ok {
		return
	}
	defer c.Close()
	ctx := context.Background()

	fmt.Println("=== Catalog Cache Test ===")
	fmt.Println()
	fmt.Printf("Index: %s (TTL %v)\n\n", cfg.IndexURL, cfg.CacheTTL)

	fmt.Println("1. GetCatalog:")
	start := time.Now()
	cat, err := c.Builder.GetCatalog(ctx)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	firstCall := time.Since(start)
	fmt.Printf("   First call (network + parse): %v (%d classes)\n", firstCall, cat.Len())

	start = time.Now()
	_, _ = c.Builder.GetCatalog(ctx)
	secondCall := time.Since(start)
	fmt.Printf("   Second call (cached):         %v\n", secondCall)
	if secondCall > 0 {
		fmt.Printf("   Speedup: %.0fx faster\n", float64(firstCall)/float64(secondCall))
	}
	fmt.Println()

	fmt.Println("2. Search over cached catalog:")
	for _, q := range searchQueries {
		start = time.Now()
		results, err := c.Service.Search(ctx, q)
		if err != nil {
			fmt.Printf("   %-20q error: %v\n", q, err)
			continue
		}
		fmt.Printf("   %-20q %3d results in %v\n", q, len(results), time.Since(start))
	}
	fmt.Println()
}

// measureCoalescing starts concurrent cold lookups; they should share one index fetch
func measureCoalescing() {
	c, _, ok := newComponents()
	if !ok {
		return
	}
	defer c.Close()
	ctx := context.Background()

	const callers = 10
	fmt.Println("=== Concurrent Cold Lookups ===")
	fmt.Println()
	fmt.Printf("3. %d concurrent GetCatalog calls on an empty cache:\n", callers)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Builder.GetCatalog(ctx)
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	fmt.Printf("   Total time: %v, failures: %d\n", elapsed, failed)
	fmt.Println("   Overlapping refreshes share a single fetch of the index page.")
	fmt.Println()
}

// measurePageFetch times reading one class page as markdown
func measurePageFetch() {
	c, _, ok := newComponents()
	if !ok {
		return
	}
	defer c.Close()
	ctx := context.Background()

	results, err := c.Service.Search(ctx, "ModNPC")
	if err != nil || len(results) == 0 {
		fmt.Printf("Could not find a class page to fetch: %v\n", err)
		return
	}

	fmt.Println("=== Class Page Fetch ===")
	fmt.Println()
	fmt.Printf("4. FetchDocs %s:\n", results[0].URL)

	start := time.Now()
	md, err := c.Service.FetchDocs(ctx, results[0].URL)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
		return
	}
	fmt.Printf("   Fetch + extract + convert: %v (%d bytes of markdown)\n", time.Since(start), len(md))
	fmt.Println()
}

func main() {
	fmt.Println("tModLoader Docs MCP Server - Performance Measurements")
	fmt.Println("=====================================================")
	fmt.Println()

	measureCachePerformance()
	measureCoalescing()
	measurePageFetch()

	fmt.Println("=== Summary ===")
	fmt.Println()
	fmt.Println("• Caching: the class index is fetched at most once per TTL window")
	fmt.Println("• Coalescing: concurrent cache misses wait on one in-flight refresh")
	fmt.Println("• Pages: class pages are fetched on demand and never cached")
}
