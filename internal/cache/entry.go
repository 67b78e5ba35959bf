package cache

import "sync/atomic"

// MaxObjectSize is the largest single cached object, fixed by spec.md §6.
const MaxObjectSize = 100 * 1024

// MaxCacheSize is the total bound on bytes held across all cached
// entries, fixed by spec.md §6.
const MaxCacheSize = 1024 * 1024

// Entry is a single cached web object: the full byte sequence the
// origin returned (status line, headers, body) under the request URI
// that produced it.
//
// age is stored as an atomic int64 rather than a plain int because
// Coordinator.ReadTry refreshes it from inside a reader section where
// many goroutines may run concurrently (spec.md §4.4's approved
// relaxation: touch is a mutation performed inside the reader section,
// and the resulting LRU order is only approximate, not a plain data
// race).
type Entry struct {
	key    string
	object []byte
	age    atomic.Int64
}

// Key returns the request URI this entry was admitted under.
func (e *Entry) Key() string { return e.key }

// Object returns the cached response bytes. Callers receive a borrowed,
// read-only view valid for the duration of the reader section that
// produced it — the cache retains exclusive ownership of the backing
// array.
func (e *Entry) Object() []byte { return e.object }

// Size returns the byte length of the cached object.
func (e *Entry) Size() int { return len(e.object) }

// Age returns the entry's current LRU stamp.
func (e *Entry) Age() int64 { return e.age.Load() }
