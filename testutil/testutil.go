package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/querygo/record"
)

// Clock is a manual time source for tests. It never advances on its
// own; use Advance or Set to move it. Pass Now as the clock function to
// code under test.
//
// It is thread-safe.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current manual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Bool returns a pseudo-random boolean.
func (r *RNG) Bool() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(2) == 0
}

// Zipf returns a Zipfian-distributed value in [0, n): P(k) ∝ 1/k^s.
// Skewed category distributions make index selectivity tests realistic,
// since real-world field values follow power laws.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	// Inverse transform sampling over the cumulative distribution.
	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}

	return n - 1
}

var (
	envNames  = []string{"prod", "staging", "dev", "qa", "canary"}
	regions   = []string{"us-east-1", "eu-west-1", "ap-south-1"}
	tagWords  = []string{"web", "api", "batch", "db", "edge", "infra"}
	nameParts = []string{"alpha", "beta", "gamma", "delta", "omega", "zeta"}
)

// Records generates num fixture records with a mixed-kind schema:
// sequential "id", Zipf-skewed "env" and "region" categories, a "tier"
// that is sometimes a float, sparse "owner", nested "meta" and a "tags"
// array. Roughly every tenth record omits "env" and every twentieth
// nulls it, so predicates over sparse data are covered.
func (r *RNG) Records(num int) []record.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]record.Record, num)
	for i := range num {
		rec := record.Record{
			"id":     record.Int(int64(i)),
			"name":   record.String(fmt.Sprintf("%s-%03d", nameParts[r.rand.Intn(len(nameParts))], i)),
			"score":  record.Float(math.Round(r.rand.Float64()*1000) / 10),
			"active": record.Bool(r.rand.Intn(2) == 0),
			"region": record.String(regions[r.zipfLocked(len(regions), 1.0)]),
			"meta": record.Object(map[string]record.Value{
				"owner": record.String(nameParts[r.rand.Intn(len(nameParts))]),
			}),
		}

		// Tier is mostly an int but sometimes the float spelling of the
		// same number, exercising cross-kind numeric matching.
		tier := int64(r.rand.Intn(3) + 1)
		if r.rand.Intn(5) == 0 {
			rec["tier"] = record.Float(float64(tier))
		} else {
			rec["tier"] = record.Int(tier)
		}

		switch {
		case i%20 == 19:
			rec["env"] = record.Null()
		case i%10 == 9:
			// Missing entirely.
		default:
			rec["env"] = record.String(envNames[r.zipfLocked(len(envNames), 1.0)])
		}

		numTags := r.rand.Intn(4)
		if numTags > 0 {
			tags := make([]record.Value, numTags)
			for j := range numTags {
				tags[j] = record.String(tagWords[r.rand.Intn(len(tagWords))])
			}
			rec["tags"] = record.Array(tags)
		}

		records[i] = rec
	}

	return records
}

// Shuffle permutes records in place.
func (r *RNG) Shuffle(records []record.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
}
