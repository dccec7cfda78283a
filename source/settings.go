package source

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/hupe1980/querygo/record"
)

// SettingsFetcher exposes an in-process configuration value as records,
// the way admin UIs surface settings lists as virtual rows.
type SettingsFetcher struct {
	records []record.Record
	err     error
}

// Settings creates a fetcher over a configuration value:
//   - a map yields one {key, value} row per entry, sorted by key
//   - a slice yields one row per element; maps become rows as-is,
//     anything else becomes a {value} row
//   - a scalar yields a single {value} row
//   - nil yields no rows
//
// Conversion problems are deferred to Fetch, keeping construction
// chainable.
func Settings(value any) *SettingsFetcher {
	records, err := settingsRecords(value)
	return &SettingsFetcher{records: records, err: err}
}

// Fetch returns the converted rows.
func (s *SettingsFetcher) Fetch(ctx context.Context) ([]record.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return slices.Clone(s.records), nil
}

func settingsRecords(value any) ([]record.Record, error) {
	switch x := value.(type) {
	case nil:
		return nil, nil

	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records := make([]record.Record, 0, len(keys))
		for _, k := range keys {
			v, err := record.FromAny(x[k])
			if err != nil {
				return nil, fmt.Errorf("setting %q: %w", k, err)
			}
			records = append(records, record.Record{
				"key":   record.String(k),
				"value": v,
			})
		}
		return records, nil

	case []map[string]any:
		return record.FromMaps(x)

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

	case []string:
		records := make([]record.Record, len(x))
		for i, s := range x {
			records[i] = record.Record{"value": record.String(s)}
		}
		return records, nil

	default:
		v, err := record.FromAny(value)
		if err != nil {
			return nil, err
		}
		return []record.Record{{"value": v}}, nil
	}
}
