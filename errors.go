package gocmocka

import "fmt"

// Kind enumerates the error categories a test can surface, per spec.md §7.
type Kind int

const (
	// KindNone means no error occurred.
	KindNone Kind = iota
	// KindAssertionFailed is a failed assertion predicate.
	KindAssertionFailed
	// KindMockUnderflow is mock()/check_expected() with nothing queued.
	KindMockUnderflow
	// KindOrderViolation is function_called() mismatching the ordering queue head.
	KindOrderViolation
	// KindLeftoverExpectations is unused registry/ordering entries at test end.
	KindLeftoverExpectations
	// KindLeak is a live block still allocated at the leak audit.
	KindLeak
	// KindGuardCorruption is a guard-zone byte mismatch detected on free.
	KindGuardCorruption
	// KindSetupError is a non-zero return from a setup fixture.
	KindSetupError
	// KindTeardownError is a non-zero return from a teardown fixture.
	KindTeardownError
	// KindCrash is a captured fatal signal or recovered runtime panic.
	KindCrash
	// KindSinkError is a report sink publish failure (SPEC_FULL.md §7); never
	// routed through the barrier and never fails the test run.
	KindSinkError
)

func (k Kind) String() string {
	switch k {
	case KindAssertionFailed:
		return "ASSERTION_FAILED"
	case KindMockUnderflow:
		return "MOCK_UNDERFLOW"
	case KindOrderViolation:
		return "ORDER_VIOLATION"
	case KindLeftoverExpectations:
		return "LEFTOVER_EXPECTATIONS"
	case KindLeak:
		return "LEAK"
	case KindGuardCorruption:
		return "GUARD_CORRUPTION"
	case KindSetupError:
		return "SETUP_ERROR"
	case KindTeardownError:
		return "TEARDOWN_ERROR"
	case KindCrash:
		return "CRASH"
	case KindSinkError:
		return "SINK_ERROR"
	default:
		return "NONE"
	}
}

// Failure carries one error kind, the site it was raised at (when known),
// and a human diagnostic, in the style of the teacher's sop.Error: a code,
// a wrapped condition, and formatted detail.
type Failure struct {
	Kind     Kind
	Location SourceLocation
	Message  string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s at %s: %s", f.Kind, f.Location, f.Message)
}

func newFailure(kind Kind, loc SourceLocation, format string, args ...any) Failure {
	return Failure{Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)}
}
