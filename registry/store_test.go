package registry

import "testing"

func TestAddTakeOrderIsFIFO(t *testing.T) {
	s := NewStore[int]()
	if err := s.Add([]string{"f"}, Location{Line: 1}, 10, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add([]string{"f"}, Location{Line: 2}, 20, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	v, prior, ok := s.Take([]string{"f"})
	if !ok || v != 10 || prior != 1 {
		t.Fatalf("first Take = (%v, %v, %v), want (10, 1, true)", v, prior, ok)
	}
	v, _, ok = s.Take([]string{"f"})
	if !ok || v != 20 {
		t.Fatalf("second Take = (%v, _, %v), want (20, true)", v, ok)
	}
	if _, _, ok = s.Take([]string{"f"}); ok {
		t.Fatalf("Take on drained bucket should fail")
	}
}

func TestAddZeroCountIsError(t *testing.T) {
	s := NewStore[int]()
	if err := s.Add([]string{"f"}, Location{}, 1, 0); err == nil {
		t.Fatalf("expected error for count == 0")
	}
}

func TestTakeDecrementsExactCount(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 7, 3)

	for i := 0; i < 3; i++ {
		v, prior, ok := s.Take([]string{"f"})
		if !ok || v != 7 {
			t.Fatalf("take %d: got (%v, %v, %v)", i, v, prior, ok)
		}
		if want := Count(3 - i); prior != want {
			t.Fatalf("take %d: prior count = %v, want %v", i, prior, want)
		}
	}
	if _, _, ok := s.Take([]string{"f"}); ok {
		t.Fatalf("expected bucket drained after 3 takes")
	}
}

func TestAlwaysNeverDiscardedByTake(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 99, Always)

	for i := 0; i < 5; i++ {
		v, _, ok := s.Take([]string{"f"})
		if !ok || v != 99 {
			t.Fatalf("take %d: got (%v, _, %v)", i, v, ok)
		}
	}
}

func TestUnusedAlwaysIsStillALeftover(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 99, Always)

	if !s.HasRemaining() {
		t.Fatalf("an ALWAYS entry never taken must still be reported as remaining")
	}
}

func TestUsedAlwaysBecomesReapable(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 99, Always)

	if _, _, ok := s.Take([]string{"f"}); !ok {
		t.Fatalf("Take should have succeeded")
	}
	if s.HasRemaining() {
		t.Fatalf("an ALWAYS entry taken at least once must be reapable, not a leftover")
	}
}

func TestMaybeBecomesReapableOnlyAfterUse(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 1, Maybe)

	if s.HasRemaining() {
		t.Fatalf("an unused MAYBE entry must not count as a leftover")
	}
	if _, _, ok := s.Take([]string{"f"}); !ok {
		t.Fatalf("MAYBE entry should be takeable")
	}
	// still present for further (unbounded) use...
	if _, _, ok := s.Take([]string{"f"}); !ok {
		t.Fatalf("MAYBE entry should remain usable after first take")
	}
	// ...but is reaped, not reported as a leftover, if the test ends here.
	if s.HasRemaining() {
		t.Fatalf("a used MAYBE entry must be reaped, not reported as a leftover")
	}
}

func TestTwoLevelKeysAreIndependentFIFOs(t *testing.T) {
	s := NewStore[string]()
	_ = s.Add([]string{"q", "customer"}, Location{}, "john doe", 1)
	_ = s.Add([]string{"q", "amount"}, Location{}, "100", 1)

	v, _, ok := s.Take([]string{"q", "amount"})
	if !ok || v != "100" {
		t.Fatalf("Take(q, amount) = (%v, %v)", v, ok)
	}
	v, _, ok = s.Take([]string{"q", "customer"})
	if !ok || v != "john doe" {
		t.Fatalf("Take(q, customer) = (%v, %v)", v, ok)
	}
}

func TestBucketsArePrunedWhenEmptied(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f", "p"}, Location{}, 1, 1)
	if _, _, ok := s.Take([]string{"f", "p"}); !ok {
		t.Fatalf("Take should have succeeded")
	}
	if len(s.top) != 0 {
		t.Fatalf("empty outer bucket should have been pruned, got %d entries", len(s.top))
	}
}

func TestRemainingReportsDeclarationSites(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{File: "x_test.go", Line: 42}, 1, 1)
	_ = s.Add([]string{"g"}, Location{File: "x_test.go", Line: 43}, 1, Maybe)

	rem := s.Remaining()
	if len(rem) != 1 || rem[0].Line != 42 {
		t.Fatalf("Remaining() = %v, want only x_test.go:42 (an unused Maybe is not a leftover)", rem)
	}
}

func TestIdempotentLeftoverAudit(t *testing.T) {
	s := NewStore[int]()
	_ = s.Add([]string{"f"}, Location{}, 1, Maybe)
	_, _, _ = s.Take([]string{"f"}) // becomes used-sticky

	first := s.HasRemaining()
	second := s.HasRemaining()
	if first != second {
		t.Fatalf("HasRemaining should be idempotent, got %v then %v", first, second)
	}
}
