package gocmocka

import (
	"context"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/sharedcode/gocmocka/alloc"
	"github.com/sharedcode/gocmocka/internal/uid"
	"golang.org/x/sync/errgroup"
)

// Status is the terminal outcome of one test, per spec.md §4.F's state
// machine.
type Status int

const (
	NotStarted Status = iota
	Passed
	Failed
	Errored
	Skipped
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "PASSED"
	case Failed:
		return "FAILED"
	case Errored:
		return "ERROR"
	case Skipped:
		return "SKIPPED"
	default:
		return "NOT_STARTED"
	}
}

// TestState is the terminal record of one test's run: name, status,
// wall-clock duration, and (for Failed and Errored tests) the collected
// diagnostic text.
type TestState struct {
	Name         string
	Status       Status
	Runtime      time.Duration
	ErrorMessage string
}

// barrierKind classifies the sentinel panic the runner uses to model the
// reference implementation's non-local "fail the current test and return to
// the runner frame" control transfer (spec.md's Design Notes explicitly
// sanction an explicit abort exception for this).
type barrierKind int

const (
	barrierFail barrierKind = iota
	barrierSkip
	barrierStop
	barrierAssertFailure
)

// barrierSignal is the panic value carried across the unwind.
type barrierSignal struct {
	kind barrierKind
	loc  SourceLocation
	msg  string
}

// crashSignal is the in-language stand-in for a raised fatal signal
// (spec.md §8 scenario 6). Go's runtime treats genuine hardware faults
// (SIGSEGV and similar) as unconditionally fatal, so there is no portable
// way to recover one the way the reference C library's signal handler
// does; T.Raise gives test authors the same observable contract — a
// captured crash, a signal-name diagnostic, the run continuing with the
// next test — without depending on undefined runtime behavior.
type crashSignal struct{ name string }

func (c crashSignal) Error() string { return "raised " + c.name }

// T is the per-test context threaded explicitly through the runner, in
// place of thread-locals (Design Notes §9: "prefer passing an explicit
// per-test context through the runner's call frames").
type T struct {
	name  string
	mocks *mockState
	order *orderQueue
	alloc *alloc.Allocator

	errBuf                 strings.Builder
	expectingAssertFailure bool
	userState              any
}

func newT(name string, a *alloc.Allocator) *T {
	return &T{name: name, mocks: newMockState(), order: newOrderQueue(), alloc: a}
}

// Name returns the test's name, as given to Group.Tests.
func (t *T) Name() string { return t.name }

// Alloc exposes this test's tracking allocator (package alloc) for
// exercising manually-managed buffers under guard-byte and leak discipline.
func (t *T) Alloc() *alloc.Allocator { return t.alloc }

// UserState returns the opaque per-test value a setup fixture may stash for
// the test body and teardown to retrieve (spec.md §3's user_state).
func (t *T) UserState() any { return t.userState }

// SetUserState stores v for later retrieval via UserState.
func (t *T) SetUserState(v any) { t.userState = v }

func (t *T) record(msg string) {
	if t.errBuf.Len() > 0 {
		t.errBuf.WriteByte('\n')
	}
	t.errBuf.WriteString(msg)
}

// failAt records a Failure-shaped diagnostic and unwinds to the runner via
// the barrier. Shared by assert.go, mock.go, and order.go so every failure
// path produces the same diagnostic shape.
func (t *T) failAt(kind Kind, loc SourceLocation, format string, args ...any) {
	f := newFailure(kind, loc, format, args...)
	t.record(f.Error())
	panic(barrierSignal{kind: barrierFail, loc: loc, msg: f.Message})
}

// Fail records a failure diagnostic and unwinds to the runner, the
// author-facing equivalent of a failed built-in assertion.
func (t *T) Fail(format string, args ...any) {
	t.failAt(KindAssertionFailed, here(1), format, args...)
}

// Skip unwinds to the runner marking the test SKIPPED. No leak or leftover
// audit runs for a skipped test.
func (t *T) Skip(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	panic(barrierSignal{kind: barrierSkip, loc: here(1), msg: msg})
}

// Stop unwinds to the runner as an author-initiated early exit. Unlike
// Fail, this is not by itself a failure: the test still runs its leak and
// leftover audits exactly as a normal return would.
func (t *T) Stop() {
	panic(barrierSignal{kind: barrierStop, loc: here(1)})
}

// Raise simulates a fatal signal, matching the reference test suite's use
// of raise(SIGSEGV) to exercise crash recovery. See crashSignal's doc
// comment for why this, and not real signal delivery, is the right Go
// analogue.
func (t *T) Raise(signalName string) {
	panic(crashSignal{name: signalName})
}

// TestCase is one test in a Group: its body plus optional per-test fixtures
// and the tag metadata a CEL filter expression (package filter) can match
// against.
type TestCase struct {
	Name     string
	Fn       func(t *T)
	Setup    func(t *T) error
	Teardown func(t *T) error
	Tags     map[string]any
}

// Group is a named, ordered sequence of tests sharing group-level fixtures
// and a single allocation arena (spec.md §4.F: "group fixtures run... against
// a group-level allocation checkpoint").
type Group struct {
	Name     string
	Tests    []TestCase
	Setup    func(t *T) error
	Teardown func(t *T) error
}

// EventKind distinguishes the phases report.Dispatcher implementations
// (component G) render differently.
type EventKind int

const (
	EventGroupStart EventKind = iota
	EventTestStart
	EventTestSuccess
	EventTestSkipped
	EventTestFailure
	EventTestError
	EventGroupFinish
)

// Event is one notification emitted during a run. Test is populated for
// the per-test events; Summary is populated for EventGroupFinish.
type Event struct {
	Kind    EventKind
	Group   string
	Test    TestState
	Summary *RunSummary
}

// Listener receives Events as a run progresses; report.Dispatcher is the
// production implementation, fanning out to the configured formatters and
// sinks.
type Listener interface {
	Handle(Event)
}

// RunSummary collects one group's outcome for a formatter or sink to
// render.
type RunSummary struct {
	RunID   string
	Group   string
	Tests   []TestState
	Passed  int
	Failed  int
	Errored int
	Skipped int
}

// FailureCount is the combined count a CI caller uses to decide the
// process exit code (spec.md §9: nonzero iff any FAILED or ERROR).
func (s *RunSummary) FailureCount() int { return s.Failed + s.Errored }

// RunOptions configures one Group.Run or RunAll invocation: selection
// (glob include/skip per spec.md's -t filtering plus an optional CEL
// predicate from package filter), listing, debugger mode, and the
// Listeners to notify.
type RunOptions struct {
	Include      []string
	Skip         []string
	FilterExpr   func(meta map[string]any) (bool, error)
	ListOnly     bool
	DebuggerMode bool
	Listeners    []Listener

	// MaxConcurrentGroups bounds how many groups RunAll runs at once.
	// Tests within one group always run strictly sequentially regardless
	// of this value.
	MaxConcurrentGroups int
}

func (o RunOptions) emit(ev Event) {
	for _, l := range o.Listeners {
		l.Handle(ev)
	}
}

func testSelected(o RunOptions, name string, meta map[string]any) (bool, error) {
	for _, p := range o.Skip {
		if ok, _ := path.Match(p, name); ok {
			return false, nil
		}
	}
	if len(o.Include) > 0 {
		matched := false
		for _, p := range o.Include {
			if ok, _ := path.Match(p, name); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	if o.FilterExpr != nil {
		ok, err := o.FilterExpr(meta)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// classifyPanic turns a recovered panic value (from a setup/teardown
// fixture) into an error. Fixtures don't distinguish skip/stop from fail;
// any barrier unwind out of a fixture is treated as that fixture failing.
func classifyPanic(r any) error {
	switch v := r.(type) {
	case barrierSignal:
		return fmt.Errorf("%s", v.msg)
	case crashSignal:
		return fmt.Errorf("crash: raised %s", v.name)
	case error:
		return fmt.Errorf("panic: %w", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

// runFixture executes a setup/teardown function under the same crash
// shield as a test body; any panic (barrier or genuine) is reported as the
// fixture's error instead of propagating.
func runFixture(t *T, fn func(t *T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = classifyPanic(r)
		}
	}()
	return fn(t)
}

// bodyOutcome classifies how a test body's execution ended.
type bodyOutcome int

const (
	outcomeComplete bodyOutcome = iota
	outcomeStop
	outcomeSkip
	outcomeFail
	outcomeCrash
)

// runBody executes a test body under the barrier/crash shield described in
// spec.md §4.F: a barrier unwind is classified by kind, a genuine runtime
// panic (nil dereference, index out of range, ...) or a simulated Raise is
// classified as a crash, and a normal return is "complete".
func runBody(t *T, fn func(t *T)) (outcome bodyOutcome, crashMsg string) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		switch v := r.(type) {
		case barrierSignal:
			switch v.kind {
			case barrierSkip:
				outcome = outcomeSkip
			case barrierStop:
				outcome = outcomeStop
			default:
				outcome = outcomeFail
			}
		case crashSignal:
			outcome = outcomeCrash
			crashMsg = newFailure(KindCrash, here(0), "raised %s", v.name).Error()
		case runtime.Error:
			outcome = outcomeCrash
			crashMsg = newFailure(KindCrash, here(0), "recovered runtime panic: %v", v).Error()
		default:
			outcome = outcomeCrash
			crashMsg = newFailure(KindCrash, here(0), "recovered panic: %v", v).Error()
		}
	}()
	fn(t)
	outcome = outcomeComplete
	return
}

// auditLeaks compares the live-block set against checkpoint, reports one
// diagnostic line per leaked block plus a summary, and frees every leaked
// block so it doesn't contaminate the next test sharing this allocator.
func auditLeaks(a *alloc.Allocator, checkpoint alloc.Cursor) []string {
	blocks := a.DisplayAndCountSince(checkpoint)
	if len(blocks) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(blocks)+1)
	for _, b := range blocks {
		msgs = append(msgs, fmt.Sprintf("%s: %d byte(s) allocated at %s never freed", KindLeak, b.Size(), b.Location))
	}
	msgs = append(msgs, fmt.Sprintf("%s: leaked %d block(s)", KindLeak, len(blocks)))
	a.FreeSince(checkpoint)
	return msgs
}

// auditLeftovers reports every still-queued return value, parameter check,
// and ordering entry left at the end of a test. ALWAYS/MAYBE entries used
// at least once are reaped first, and never-used MAYBE entries are not
// reported; neither is a leftover.
func auditLeftovers(t *T) []string {
	var msgs []string
	for _, loc := range t.mocks.returns.Remaining() {
		msgs = append(msgs, fmt.Sprintf("%s: unused will_return queued at %s", KindLeftoverExpectations, loc))
	}
	for _, loc := range t.mocks.checks.Remaining() {
		msgs = append(msgs, fmt.Sprintf("%s: unused expect_* queued at %s", KindLeftoverExpectations, loc))
	}
	for _, e := range t.order.remaining() {
		msgs = append(msgs, fmt.Sprintf("%s: unused expect_function_call(%q) queued at %s", KindLeftoverExpectations, e.Name, e.Location))
	}
	return msgs
}

func appendMsg(base, extra string) string {
	if base == "" {
		return extra
	}
	return base + "\n" + extra
}

// runOne runs tc's full per-test lifecycle against the group's shared
// allocator: setup, body (under the barrier/crash shield), leak/leftover
// audits, teardown.
func runOne(tc TestCase, allocator *alloc.Allocator) TestState {
	start := time.Now()
	t := newT(tc.Name, allocator)
	ts := TestState{Name: tc.Name}

	if tc.Setup != nil {
		if err := runFixture(t, tc.Setup); err != nil {
			ts.Status = Errored
			ts.ErrorMessage = newFailure(KindSetupError, here(0), "%v", err).Error()
			ts.Runtime = time.Since(start)
			return ts
		}
	}

	checkpoint := allocator.Checkpoint()
	outcome, crashMsg := runBody(t, tc.Fn)

	switch outcome {
	case outcomeSkip:
		ts.Status = Skipped
	case outcomeFail:
		ts.Status = Failed
		ts.ErrorMessage = t.errBuf.String()
		allocator.FreeSince(checkpoint)
	case outcomeCrash:
		ts.Status = Failed
		ts.ErrorMessage = appendMsg(t.errBuf.String(), crashMsg)
		allocator.FreeSince(checkpoint)
	default: // outcomeStop, outcomeComplete: the same end-of-test audits apply
		leakMsgs := auditLeaks(allocator, checkpoint)
		leftoverMsgs := auditLeftovers(t)
		if len(leakMsgs) > 0 || len(leftoverMsgs) > 0 {
			ts.Status = Failed
			ts.ErrorMessage = strings.Join(append(leakMsgs, leftoverMsgs...), "\n")
		} else {
			ts.Status = Passed
		}
	}

	if tc.Teardown != nil {
		if err := runFixture(t, tc.Teardown); err != nil {
			ts.Status = Errored
			ts.ErrorMessage = appendMsg(ts.ErrorMessage, newFailure(KindTeardownError, here(0), "%v", err).Error())
		}
	}
	ts.Runtime = time.Since(start)
	return ts
}

// Run executes every selected test in the group sequentially, returning a
// RunSummary. Group setup failure marks every selected test ERROR without
// running any of them (spec.md §7: "a group setup failure is reported as an
// error for every test in that group and skips running them, but does not
// halt other groups").
func (g *Group) Run(ctx context.Context, opts RunOptions) *RunSummary {
	summary := &RunSummary{Group: g.Name, RunID: uid.New().String()}
	opts.emit(Event{Kind: EventGroupStart, Group: g.Name})

	selected := make([]TestCase, 0, len(g.Tests))
	for _, tc := range g.Tests {
		// Same name/group/tags shape as filter.Meta builds for filter.Expr.
		meta := map[string]any{"name": tc.Name, "group": g.Name, "tags": tc.Tags}
		ok, err := testSelected(opts, tc.Name, meta)
		if err != nil {
			logger().Warn("filter expression error", "group", g.Name, "test", tc.Name, "error", err)
			continue
		}
		if ok {
			selected = append(selected, tc)
		}
	}

	if opts.ListOnly {
		for _, tc := range selected {
			summary.Tests = append(summary.Tests, TestState{Name: tc.Name})
		}
		opts.emit(Event{Kind: EventGroupFinish, Group: g.Name, Summary: summary})
		return summary
	}

	allocator := alloc.New()
	groupCheckpoint := allocator.Checkpoint()

	if g.Setup != nil {
		gt := newT(g.Name+"/group_setup", allocator)
		if err := runFixture(gt, g.Setup); err != nil {
			msg := newFailure(KindSetupError, here(0), "group setup failed: %v", err).Error()
			for _, tc := range selected {
				ts := TestState{Name: tc.Name, Status: Errored, ErrorMessage: msg}
				summary.Tests = append(summary.Tests, ts)
				summary.Errored++
				opts.emit(Event{Kind: EventTestError, Group: g.Name, Test: ts})
			}
			opts.emit(Event{Kind: EventGroupFinish, Group: g.Name, Summary: summary})
			return summary
		}
	}

	for _, tc := range selected {
		select {
		case <-ctx.Done():
			ts := TestState{Name: tc.Name, Status: Errored, ErrorMessage: ctx.Err().Error()}
			summary.Tests = append(summary.Tests, ts)
			summary.Errored++
			opts.emit(Event{Kind: EventTestError, Group: g.Name, Test: ts})
			continue
		default:
		}

		opts.emit(Event{Kind: EventTestStart, Group: g.Name, Test: TestState{Name: tc.Name}})
		ts := runOne(tc, allocator)
		summary.Tests = append(summary.Tests, ts)
		var kind EventKind
		switch ts.Status {
		case Passed:
			summary.Passed++
			kind = EventTestSuccess
		case Skipped:
			summary.Skipped++
			kind = EventTestSkipped
		case Errored:
			summary.Errored++
			kind = EventTestError
		default:
			summary.Failed++
			kind = EventTestFailure
		}
		opts.emit(Event{Kind: kind, Group: g.Name, Test: ts})
	}

	if g.Teardown != nil {
		gt := newT(g.Name+"/group_teardown", allocator)
		if err := runFixture(gt, g.Teardown); err != nil {
			logger().Warn("group teardown failed", "group", g.Name, "error", err)
		}
	}
	allocator.FreeSince(groupCheckpoint)

	opts.emit(Event{Kind: EventGroupFinish, Group: g.Name, Summary: summary})
	return summary
}

// RunAll runs every group, up to opts.MaxConcurrentGroups at a time
// concurrently, via an errgroup (component K). Execution within a single
// group is always strictly sequential; only independent groups overlap.
// Returns one RunSummary per group (in the same order as groups) and the
// combined failure count a caller can use as a process exit code.
func RunAll(ctx context.Context, groups []*Group, opts RunOptions) ([]*RunSummary, int) {
	limit := opts.MaxConcurrentGroups
	if limit <= 0 {
		limit = 1
	}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	summaries := make([]*RunSummary, len(groups))
	for i, g := range groups {
		i, g := i, g
		eg.Go(func() error {
			summaries[i] = g.Run(egCtx, opts)
			return nil
		})
	}
	_ = eg.Wait()

	failCount := 0
	for _, s := range summaries {
		if s != nil {
			failCount += s.FailureCount()
		}
	}
	return summaries, failCount
}
