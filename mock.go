package gocmocka

import (
	"fmt"

	"github.com/sharedcode/gocmocka/registry"
)

// ParamCheck is a predicate the test queues against one parameter of one
// mocked function. CheckFn runs against the actual value reported by the
// code under test via CheckExpected.
type ParamCheck struct {
	Location SourceLocation
	CheckFn  func(actual any, data any) bool
	Data     any
	// Name documents which built-in predicate this is (for diagnostics
	// only); custom predicates may leave it blank.
	Name string
}

// mockState is the per-test mock registry: a return-value registry keyed
// by function name (depth 1) and a parameter-check registry keyed by
// (function, parameter) (depth 2), built on the shared ordered multimap
// store (package registry).
type mockState struct {
	returns *registry.Store[any]
	checks  *registry.Store[ParamCheck]

	lastMockLoc  map[string]SourceLocation
	lastParamLoc map[[2]string]SourceLocation
}

func newMockState() *mockState {
	return &mockState{
		returns:      registry.NewStore[any](),
		checks:       registry.NewStore[ParamCheck](),
		lastMockLoc:  make(map[string]SourceLocation),
		lastParamLoc: make(map[[2]string]SourceLocation),
	}
}

func toLoc(l SourceLocation) registry.Location {
	return registry.Location{File: l.File, Line: l.Line}
}

// WillReturn queues value to be returned by the next (or next n, or
// forever, per count) call(s) to Mock(fn) from inside the mocked function
// named fn. count follows the sentinel rules: > 0 is an exact count,
// CountAlways/CountMaybe are the sticky sentinels.
func (t *T) WillReturn(fn string, value any, count Count) {
	loc := here(1)
	if err := t.mocks.returns.Add([]string{fn}, toLoc(loc), value, registry.Count(count)); err != nil {
		t.Fail("will_return(%q): %v", fn, err)
	}
}

// Mock is called from inside a mocked function to retrieve the next queued
// return value. It fails the test (MOCK_UNDERFLOW) and triggers the
// barrier if nothing is queued for fn.
func (t *T) Mock(fn string) any {
	loc := here(1)
	v, _, ok := t.mocks.returns.Take([]string{fn})
	if !ok {
		if last, seen := t.mocks.lastMockLoc[fn]; seen {
			t.failAt(KindMockUnderflow, loc, "mock(%q): no value queued (most recent value was consumed by mock() at %s)", fn, last)
		} else {
			t.failAt(KindMockUnderflow, loc, "mock(%q): no value queued", fn)
		}
		return nil
	}
	t.mocks.lastMockLoc[fn] = loc
	return v
}

func paramKey(fn, param string) [2]string { return [2]string{fn, param} }

// expect queues a ParamCheck for (fn, param) with the given count.
func (t *T) expect(fn, param string, count Count, check ParamCheck) {
	check.Location = here(2)
	if err := t.mocks.checks.Add([]string{fn, param}, toLoc(check.Location), check, registry.Count(count)); err != nil {
		t.Fail("expect_%s(%q, %q): %v", check.Name, fn, param, err)
	}
}

// ExpectValue queues a check that the actual parameter equals want.
func (t *T) ExpectValue(fn, param string, want any, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "value",
		Data: want,
		CheckFn: func(actual, data any) bool {
			return equalAny(actual, data)
		},
	})
}

// ExpectNotValue queues a check that the actual parameter does not equal want.
func (t *T) ExpectNotValue(fn, param string, notWant any, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "not_value",
		Data: notWant,
		CheckFn: func(actual, data any) bool {
			return !equalAny(actual, data)
		},
	})
}

// ExpectStringEqual queues a check that the actual string equals want.
func (t *T) ExpectStringEqual(fn, param string, want string, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "string_equal",
		Data: want,
		CheckFn: func(actual, data any) bool {
			s, ok := actual.(string)
			return ok && s == data.(string)
		},
	})
}

// ExpectStringNotEqual queues a check that the actual string does not equal notWant.
func (t *T) ExpectStringNotEqual(fn, param string, notWant string, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "string_not_equal",
		Data: notWant,
		CheckFn: func(actual, data any) bool {
			s, ok := actual.(string)
			return !ok || s != data.(string)
		},
	})
}

// ExpectMemoryEqual queues a check that the actual []byte equals a
// heap-owned copy of want.
func (t *T) ExpectMemoryEqual(fn, param string, want []byte, count Count) {
	ref := append([]byte(nil), want...)
	t.expect(fn, param, count, ParamCheck{
		Name: "memory_equal",
		Data: ref,
		CheckFn: func(actual, data any) bool {
			b, ok := actual.([]byte)
			return ok && bytesEqual(b, data.([]byte))
		},
	})
}

// ExpectMemoryNotEqual queues a check that the actual []byte does not equal
// a heap-owned copy of notWant.
func (t *T) ExpectMemoryNotEqual(fn, param string, notWant []byte, count Count) {
	ref := append([]byte(nil), notWant...)
	t.expect(fn, param, count, ParamCheck{
		Name: "memory_not_equal",
		Data: ref,
		CheckFn: func(actual, data any) bool {
			b, ok := actual.([]byte)
			return !ok || !bytesEqual(b, data.([]byte))
		},
	})
}

// ExpectInSet queues a check that the actual value is a member of set (a
// heap-owned copy of the values passed here).
func (t *T) ExpectInSet(fn, param string, set []any, count Count) {
	ref := append([]any(nil), set...)
	t.expect(fn, param, count, ParamCheck{
		Name: "in_set",
		Data: ref,
		CheckFn: func(actual, data any) bool {
			for _, v := range data.([]any) {
				if equalAny(actual, v) {
					return true
				}
			}
			return false
		},
	})
}

// ExpectNotInSet queues a check that the actual value is not a member of set.
func (t *T) ExpectNotInSet(fn, param string, set []any, count Count) {
	ref := append([]any(nil), set...)
	t.expect(fn, param, count, ParamCheck{
		Name: "not_in_set",
		Data: ref,
		CheckFn: func(actual, data any) bool {
			for _, v := range data.([]any) {
				if equalAny(actual, v) {
					return false
				}
			}
			return true
		},
	})
}

// Range is a closed interval [Low, High] used by ExpectInRange/ExpectNotInRange.
type Range struct {
	Low, High float64
}

// ExpectInRange queues a check that the actual numeric value falls within
// the closed interval r.
func (t *T) ExpectInRange(fn, param string, r Range, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "in_range",
		Data: r,
		CheckFn: func(actual, data any) bool {
			f, ok := toFloat(actual)
			rg := data.(Range)
			return ok && f >= rg.Low && f <= rg.High
		},
	})
}

// ExpectNotInRange queues a check that the actual numeric value falls
// outside the closed interval r.
func (t *T) ExpectNotInRange(fn, param string, r Range, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name: "not_in_range",
		Data: r,
		CheckFn: func(actual, data any) bool {
			f, ok := toFloat(actual)
			rg := data.(Range)
			return !ok || f < rg.Low || f > rg.High
		},
	})
}

// ExpectAny queues a check that always accepts the actual parameter,
// consuming one expectation slot without constraining its value.
func (t *T) ExpectAny(fn, param string, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name:    "any",
		CheckFn: func(actual, data any) bool { return true },
	})
}

// ExpectCustom queues a caller-supplied predicate, the escape hatch for
// parameter checks the built-ins don't cover.
func (t *T) ExpectCustom(fn, param string, check func(actual, data any) bool, data any, count Count) {
	t.expect(fn, param, count, ParamCheck{
		Name:    "custom",
		Data:    data,
		CheckFn: check,
	})
}

// CheckExpected is called from inside a mocked function to verify actual
// against the front of the (fn, param) parameter-check FIFO. A false
// predicate, or nothing queued, fails the test via the barrier.
func (t *T) CheckExpected(fn, param string, actual any) {
	loc := here(1)
	check, _, ok := t.mocks.checks.Take([]string{fn, param})
	if !ok {
		if last, seen := t.mocks.lastParamLoc[paramKey(fn, param)]; seen {
			t.failAt(KindMockUnderflow, loc, "check_expected(%q, %q): no check queued (most recently consumed check was queued at %s)", fn, param, last)
		} else {
			t.failAt(KindMockUnderflow, loc, "check_expected(%q, %q): no check queued", fn, param)
		}
		return
	}
	t.mocks.lastParamLoc[paramKey(fn, param)] = check.Location
	if !check.CheckFn(actual, check.Data) {
		t.failAt(KindAssertionFailed, loc, "check_expected(%q, %q): predicate %q failed for value %v (queued at %s)", fn, param, check.Name, actual, check.Location)
	}
}

func equalAny(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
