package gocmocka

// orderEntry is one expected call in the ordering queue.
type orderEntry struct {
	Location SourceLocation
	Name     string
	Count    Count
}

// orderQueue is the call-ordering engine of spec.md §4.E: a single FIFO of
// expected named calls, matched against each FunctionCalled report. Sticky
// (ALWAYS/MAYBE) entries whose name does not match the head are skipped
// over rather than treated as a mismatch, which is what gives the queue
// its partial-order semantics.
type orderQueue struct {
	entries []orderEntry
}

func newOrderQueue() *orderQueue {
	return &orderQueue{}
}

// expect appends name to the end of the queue with the given count.
func (q *orderQueue) expect(loc SourceLocation, name string, count Count) {
	q.entries = append(q.entries, orderEntry{Location: loc, Name: name, Count: count})
}

// isSticky reports whether c is a sentinel that permits skip-over matching.
func isSticky(c Count) bool {
	return c == Always || c == countAlwaysUsed || c == Maybe || c == countMaybeUsed
}

// isUsedSticky reports whether c is a sticky count that has been consumed
// at least once, making it eligible for reapUsedSticky.
func isUsedSticky(c Count) bool {
	return c == countMaybeUsed || c == countAlwaysUsed
}

// match scans from the queue head: entries whose name doesn't match name
// are skipped only while they are still sticky; the first non-sticky
// mismatch, or an empty queue, is reported via ok == false with the
// mismatched/queue-empty entry (if any) for diagnostics. A match decrements
// (or, if sticky, flips to used) the matched entry, removing it at zero.
func (q *orderQueue) match(name string) (ok bool, mismatch *orderEntry) {
	for i := 0; i < len(q.entries); i++ {
		e := &q.entries[i]
		if e.Name == name {
			switch {
			case e.Count == Always:
				e.Count = countAlwaysUsed
			case e.Count == countAlwaysUsed:
				// already used, stays
			case e.Count == Maybe:
				e.Count = countMaybeUsed
			case e.Count == countMaybeUsed:
				// already used, stays
			case e.Count > 1:
				e.Count--
			case e.Count == 1:
				q.entries = append(q.entries[:i], q.entries[i+1:]...)
			}
			return true, nil
		}
		if !isSticky(e.Count) {
			return false, e
		}
		// sticky mismatch: skip over it and keep scanning
	}
	return false, nil
}

// reapUsedSticky drops ALWAYS/MAYBE entries that have been used at least
// once, the same sentinel-cleanup rule as the registry store.
func (q *orderQueue) reapUsedSticky() {
	kept := q.entries[:0]
	for _, e := range q.entries {
		if !isUsedSticky(e.Count) {
			kept = append(kept, e)
		}
	}
	q.entries = kept
}

// hasRemaining reports whether any expectation is still queued after
// reaping used-sticky entries, not counting never-used Maybe entries.
func (q *orderQueue) hasRemaining() bool {
	return len(q.remaining()) > 0
}

// remaining returns the leftover entries: everything still queued after
// reaping used-sticky entries, except never-used Maybe entries.
func (q *orderQueue) remaining() []orderEntry {
	q.reapUsedSticky()
	out := make([]orderEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if e.Count != Maybe {
			out = append(out, e)
		}
	}
	return out
}

// ExpectFunctionCall appends an expected call to the ordering queue.
func (t *T) ExpectFunctionCall(name string, count Count) {
	t.order.expect(here(1), name, count)
}

// FunctionCalled reports that name was called by the code under test and
// matches it against the ordering queue per spec.md §4.E's skip rules. A
// hard mismatch, or a call against an empty queue, fails the test
// (ORDER_VIOLATION) and triggers the barrier.
func (t *T) FunctionCalled(name string) {
	loc := here(1)
	ok, mismatch := t.order.match(name)
	if ok {
		return
	}
	if mismatch == nil {
		t.failAt(KindOrderViolation, loc, "function_called(%q): ordering queue is empty", name)
		return
	}
	t.failAt(KindOrderViolation, loc, "function_called(%q): expected %q (queued at %s)", name, mismatch.Name, mismatch.Location)
}
