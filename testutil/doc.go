// Package testutil provides testing utilities for QueryGo.
//
// This package is intended for use in tests and benchmarks only.
// It provides a manual clock for deterministic TTL expiry and helpers
// for generating random record sets.
//
// # Manual Clock
//
//	clock := testutil.NewClock(time.Unix(0, 0))
//	c := cache.New(cache.WithClock(clock.Now))
//	clock.Advance(time.Minute) // entries age without sleeping
//
// # Random Record Generation
//
//	rng := testutil.NewRNG(seed)
//	records := rng.Records(1000) // mixed-kind fixture records
//
// Generation is deterministic per seed: Reset replays the same
// sequence, so failures reproduce.
package testutil
