package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hupe1980/querygo"
	"github.com/hupe1980/querygo/cache"
	"github.com/hupe1980/querygo/lookup"
	"github.com/hupe1980/querygo/record"
	"github.com/hupe1980/querygo/source"
	"github.com/hupe1980/querygo/testutil"
)

func main() {
	seed := int64(4711)
	size := 50000
	k := 10

	ctx := context.Background()

	src := source.Static(testutil.NewRNG(seed).Records(size))

	eng, err := querygo.New(src,
		querygo.WithCache(cache.New()),
		querygo.WithCacheTTL(5*time.Minute),
		querygo.WithIndexFields("region", "env"),
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("--- Fetch ---")
	fmt.Println("Size:", size)

	start := time.Now()

	n, err := eng.Query().Count(ctx)
	if err != nil {
		log.Fatal(err)
	}

	end := time.Since(start)

	fmt.Println("Records:", n)
	fmt.Printf("Seconds: %.2f\n\n", end.Seconds())

	top := func(e *querygo.Engine) querygo.QuerySet {
		return e.Query().
			Filter(
				lookup.Exact("region", record.String("eu-west-1")),
				lookup.GTE("score", record.Float(90)),
			).
			OrderBy("-score", "name").
			Slice(0, k)
	}

	fmt.Println("--- Indexed ---")

	start = time.Now()

	result, err := top(eng).All(ctx)
	if err != nil {
		log.Fatal(err)
	}

	end = time.Since(start)

	printResult(result)

	fmt.Printf("Seconds: %.8f\n\n", end.Seconds())

	fmt.Println("--- Scan ---")

	scan, err := querygo.New(src, querygo.WithCache(cache.New()))
	if err != nil {
		log.Fatal(err)
	}
	if _, err = scan.Query().Exists(ctx); err != nil {
		log.Fatal(err)
	}

	start = time.Now()

	result, err = top(scan).All(ctx)
	if err != nil {
		log.Fatal(err)
	}

	end = time.Since(start)

	printResult(result)

	fmt.Printf("Seconds: %.8f\n\n", end.Seconds())

	stats := eng.CacheStats()
	fmt.Printf("Cache: entries=%d hits=%d misses=%d\n", stats.Entries, stats.Hits, stats.Misses)
}

func printResult(result []record.Record) {
	for _, r := range result {
		score, _ := r["score"].AsFloat64()
		fmt.Printf("Name: %s, Score: %.1f, Region: %s\n",
			r["name"].StringValue(), score, r["region"].StringValue())
	}
}
