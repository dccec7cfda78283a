package cache

import (
	"fmt"
	"reflect"

	"github.com/hupe1980/querygo/internal/hash"
)

// KeyFor derives a cache key from a source value. Pointers, maps and
// other reference kinds key by identity, so two sources backed by
// different instances never share an entry. Plain values key by type.
//
// Functions key by code pointer: two closures of the same function
// literal share one, so callers needing per-instance keys for func
// sources must disambiguate themselves.
//
// Keys derived this way are stable for the process lifetime only; use
// StableKey for entries that must survive a restart (snapshots).
func KeyFor(v any) string {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Chan, reflect.Map, reflect.Slice, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%x", v, rv.Pointer())
	default:
		return fmt.Sprintf("%T", v)
	}
}

// StableKey derives a restart-stable key from a name and parts. The
// parts are folded into a CRC32C suffix, keeping keys short regardless
// of how much identifying detail callers add.
func StableKey(name string, parts ...string) string {
	if len(parts) == 0 {
		return name
	}

	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, 0x1f)
		}
		buf = append(buf, p...)
	}
	return fmt.Sprintf("%s:%08x", name, hash.CRC32C(buf))
}
