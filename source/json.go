package source

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/querygo/blobstore"
	"github.com/hupe1980/querygo/record"
)

// JSONFetcher decodes a JSON blob into records. The blob is read on
// every fetch, so TTL-driven refetches observe updates to it.
//
// The document must be an array of objects or a single object. Scalar
// array elements become {value} rows, matching Settings.
type JSONFetcher struct {
	store blobstore.BlobStore
	name  string
	path  string
}

// JSONOption configures a JSONFetcher.
type JSONOption func(*JSONFetcher)

// WithPath selects a nested collection before conversion. The path is
// dot-separated; numeric hops index into arrays ("results.0.items").
// A path that does not resolve is a fetch error, not an empty result,
// so a misconfigured fetcher cannot masquerade as "no data".
func WithPath(path string) JSONOption {
	return func(f *JSONFetcher) {
		f.path = path
	}
}

// JSON creates a fetcher over a JSON blob.
func JSON(store blobstore.BlobStore, name string, optFns ...JSONOption) *JSONFetcher {
	f := &JSONFetcher{store: store, name: name}
	for _, fn := range optFns {
		if fn != nil {
			fn(f)
		}
	}
	return f
}

// Fetch reads and decodes the blob.
func (f *JSONFetcher) Fetch(ctx context.Context) ([]record.Record, error) {
	data, err := blobstore.ReadAll(ctx, f.store, f.name)
	if err != nil {
		return nil, fmt.Errorf("read json blob %q: %w", f.name, err)
	}

	// UseNumber keeps integral values as KindInt instead of collapsing
	// everything to float64.
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json blob %q: %w", f.name, err)
	}

	if f.path != "" {
		doc, err = extractPath(doc, f.path)
		if err != nil {
			return nil, fmt.Errorf("json blob %q: %w", f.name, err)
		}
	}

	records, err := documentRecords(doc)
	if err != nil {
		return nil, fmt.Errorf("json blob %q: %w", f.name, err)
	}
	return records, nil
}

func extractPath(doc any, path string) (any, error) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch x := cur.(type) {
		case map[string]any:
			v, ok := x[part]
			if !ok {
				return nil, fmt.Errorf("path %q: no element %q", path, part)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(x) {
				return nil, fmt.Errorf("path %q: bad array index %q", path, part)
			}
			cur = x[i]
		default:
			return nil, fmt.Errorf("path %q: cannot descend into %T at %q", path, cur, part)
		}
	}
	return cur, nil
}

func documentRecords(doc any) ([]record.Record, error) {
	switch x := doc.(type) {
	case []any:
		records := make([]record.Record, 0, len(x))
		for i, item := range x {
			if m, ok := item.(map[string]any); ok {
				r, err := record.FromMap(m)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				records = append(records, r)
				continue
			}
			v, err := record.FromAny(item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			records = append(records, record.Record{"value": v})
		}
		return records, nil

	case map[string]any:
		r, err := record.FromMap(x)
		if err != nil {
			return nil, err
		}
		return []record.Record{r}, nil

	default:
		return nil, fmt.Errorf("document is %T, want array or object", doc)
	}
}
