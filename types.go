package gocmocka

import "github.com/sharedcode/gocmocka/registry"

// Count is a remaining-use count for a queued expectation, return value, or
// ordering entry. It is an alias of registry.Count, re-exported at this
// package's surface so callers never need to import the registry package
// directly.
type Count = registry.Count

// Exact returns the sentinel for "consumed exactly n times then discarded".
func Exact(n int) Count { return Count(n) }

const (
	// Always marks an expectation that is never discarded while the test runs.
	Always Count = registry.Always
	// Maybe marks an expectation that may be used zero or more times; it
	// never counts as a leftover: a Maybe entry never used is ignored by
	// the leftover audit, and one used at least once is reaped.
	Maybe Count = registry.Maybe
	// countMaybeUsed is the internal state Maybe transitions to after its
	// first use; defined here (unexported) for the order queue's
	// isSticky/reap checks, never surfaced to callers.
	countMaybeUsed Count = -3
	// countAlwaysUsed is the internal state Always transitions to after its
	// first use, mirroring registry.alwaysUsed; defined here (unexported)
	// for the order queue's isSticky/reap checks, never surfaced to callers.
	countAlwaysUsed Count = -4
)
