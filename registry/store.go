// Package registry implements the ordered multimap store shared by the
// mock return-value registry and the parameter-check registry: a keyed
// trie of FIFOs where each queued entry carries a remaining-use count with
// ALWAYS/MAYBE sticky semantics. The call-ordering queue (order.go in the
// root package) does not use this store; it keeps its own slice with the
// same sentinel rules.
//
// The reference implementation this is ported from keeps these FIFOs as
// cyclic doubly-linked lists so an entry can be unlinked from the middle in
// O(1). Go has no use for that trick here (removal is always from the
// front), so this uses a plain slice per bucket instead — the "arena with
// free-list + index pairs" alternative the spec explicitly sanctions.
package registry

import "fmt"

// Count is a remaining-use count attached to a queued entry.
type Count int

const (
	// Always means the entry is never discarded while the test runs.
	Always Count = -1
	// Maybe means the entry stays queued whether or not it is ever used;
	// once used at least once it becomes maybeUsed and is eligible for
	// end-of-test reaping. A Maybe entry never taken is not reported by
	// HasRemaining or Remaining.
	Maybe Count = -2
	// maybeUsed is the internal state a Maybe entry transitions to after
	// its first consumption.
	maybeUsed Count = -3
	// alwaysUsed is the internal state an Always entry transitions to after
	// its first consumption. An Always entry that was never taken stays at
	// Always (it must still be considered outstanding); one taken at least
	// once becomes eligible for end-of-test reaping like a used Maybe.
	alwaysUsed Count = -4
)

// isUsedSticky reports whether c is a sticky state that has been consumed
// at least once and is therefore eligible for ReapUsedSticky.
func isUsedSticky(c Count) bool {
	return c == maybeUsed || c == alwaysUsed
}

// Entry is one queued value together with its declaration site and
// remaining-use count.
type Entry[V any] struct {
	Location Location
	Value    V
	Count    Count
}

// Location is the minimal site-identifying pair every entry is tagged
// with. Defined here (rather than imported) so this package has no
// dependency on the root package's SourceLocation type.
type Location struct {
	File string
	Line int
}

func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

type node[V any] struct {
	children map[string]*node[V]
	fifo     []Entry[V]
}

func (n *node[V]) empty() bool {
	return len(n.fifo) == 0 && len(n.children) == 0
}

// Store is a depth-N keyed trie of FIFOs. Depth is determined by the
// number of keys passed to Add/Take and must be consistent for all calls
// against one Store (the return-value registry uses depth 1, the
// parameter-check registry uses depth 2).
type Store[V any] struct {
	top map[string]*node[V]
}

// NewStore returns an empty Store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{top: make(map[string]*node[V])}
}

// Add enqueues value at the end of the FIFO found by descending keys,
// creating buckets as needed. count == 0 is a usage error.
func (s *Store[V]) Add(keys []string, loc Location, value V, count Count) error {
	if count == 0 {
		return errZeroCount
	}
	if len(keys) == 0 {
		return errNoKeys
	}
	n, ok := s.top[keys[0]]
	if !ok {
		n = &node[V]{}
		s.top[keys[0]] = n
	}
	for _, k := range keys[1:] {
		if n.children == nil {
			n.children = make(map[string]*node[V])
		}
		child, ok := n.children[k]
		if !ok {
			child = &node[V]{}
			n.children[k] = child
		}
		n = child
	}
	n.fifo = append(n.fifo, Entry[V]{Location: loc, Value: value, Count: count})
	return nil
}

// Take locates the bucket chain named by keys and returns the front entry
// of its FIFO along with the remaining-use count that entry had at the
// moment of retrieval. The boolean result is false if no entry was queued.
//
// Post-condition per the sentinel rules: an exact count of 1 removes the
// entry; an exact count above 1 is decremented in place; Always and Maybe
// each transition to their "used" state in place on first take and are
// otherwise left untouched. Buckets that become empty are pruned eagerly.
func (s *Store[V]) Take(keys []string) (value V, priorCount Count, ok bool) {
	if len(keys) == 0 {
		return value, 0, false
	}
	path := make([]*node[V], len(keys))
	maps := make([]map[string]*node[V], len(keys))
	cur := s.top
	for i, k := range keys {
		n, found := cur[k]
		if !found {
			return value, 0, false
		}
		maps[i] = cur
		path[i] = n
		if i < len(keys)-1 {
			if n.children == nil {
				return value, 0, false
			}
			cur = n.children
		}
	}
	leaf := path[len(path)-1]
	if len(leaf.fifo) == 0 {
		return value, 0, false
	}
	e := leaf.fifo[0]
	priorCount = e.Count
	switch {
	case priorCount == Always:
		leaf.fifo[0].Count = alwaysUsed
	case priorCount == alwaysUsed:
		// already used at least once; stays
	case priorCount == Maybe:
		leaf.fifo[0].Count = maybeUsed
	case priorCount == maybeUsed:
		// already used at least once; stays
	case priorCount > 1:
		leaf.fifo[0].Count = priorCount - 1
	case priorCount == 1:
		leaf.fifo = leaf.fifo[1:]
	}
	value = e.Value
	ok = true

	if leaf.empty() {
		for i := len(keys) - 1; i >= 0; i-- {
			if !path[i].empty() {
				break
			}
			delete(maps[i], keys[i])
		}
	}
	return value, priorCount, ok
}

// ReapUsedSticky removes every leaf entry whose count shows a sticky
// (Always or Maybe) entry that has been consumed at least once, pruning any
// bucket that becomes empty as a result. Always and Maybe entries never yet
// taken are left untouched — they are still outstanding.
func (s *Store[V]) ReapUsedSticky() {
	for k, n := range s.top {
		if reapNode(n) {
			delete(s.top, k)
		}
	}
}

// reapNode reaps n in place and reports whether n is now empty.
func reapNode[V any](n *node[V]) bool {
	if n.children != nil {
		for k, child := range n.children {
			if reapNode(child) {
				delete(n.children, k)
			}
		}
	}
	if len(n.fifo) > 0 {
		kept := n.fifo[:0]
		for _, e := range n.fifo {
			if !isUsedSticky(e.Count) {
				kept = append(kept, e)
			}
		}
		n.fifo = kept
	}
	return n.empty()
}

// HasRemaining reports whether any FIFO at any level still holds an entry
// after ReapUsedSticky is applied, not counting never-taken Maybe entries.
func (s *Store[V]) HasRemaining() bool {
	return len(s.Remaining()) > 0
}

// Remaining returns the declaration sites of every entry still queued,
// after reaping used-sticky entries, for leftover-audit diagnostics.
// Never-taken Maybe entries are not leftovers and are not listed.
func (s *Store[V]) Remaining() []Location {
	s.ReapUsedSticky()
	var out []Location
	for _, n := range s.top {
		collectLocations(n, &out)
	}
	return out
}

func collectLocations[V any](n *node[V], out *[]Location) {
	for _, e := range n.fifo {
		if e.Count == Maybe {
			continue
		}
		*out = append(*out, e.Location)
	}
	for _, child := range n.children {
		collectLocations(child, out)
	}
}

type storeError string

func (e storeError) Error() string { return string(e) }

const (
	errZeroCount storeError = "registry: count must not be zero"
	errNoKeys    storeError = "registry: at least one key is required"
)
