package gocmocka

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sharedcode/gocmocka/alloc"
)

func allocLoc() alloc.Location {
	return alloc.Location{File: "runner_test.go", Line: 1}
}

var errTestSetup = errors.New("setup failed on purpose")

type recordingListener struct {
	events []Event
}

func (r *recordingListener) Handle(ev Event) { r.events = append(r.events, ev) }

func (r *recordingListener) statusOf(name string) (Status, bool) {
	for _, ev := range r.events {
		if ev.Test.Name == name && ev.Kind != EventTestStart {
			return ev.Test.Status, true
		}
	}
	return NotStarted, false
}

func runOneGroup(t *testing.T, g *Group, opts RunOptions) *RunSummary {
	t.Helper()
	return g.Run(context.Background(), opts)
}

func TestRunGroupPassingTest(t *testing.T) {
	g := &Group{
		Name: "arith",
		Tests: []TestCase{
			{Name: "add", Fn: func(t *T) {
				t.AssertIntEqual(2+2, 4)
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Passed != 1 || sum.Failed != 0 {
		t.Fatalf("expected 1 pass, got %+v", sum)
	}
}

func TestRunGroupFailingAssertion(t *testing.T) {
	g := &Group{
		Name: "arith",
		Tests: []TestCase{
			{Name: "bad_add", Fn: func(t *T) {
				t.AssertIntEqual(2+2, 5)
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", sum)
	}
	if !strings.Contains(sum.Tests[0].ErrorMessage, "assert_int_equal") {
		t.Fatalf("expected assert_int_equal diagnostic, got %q", sum.Tests[0].ErrorMessage)
	}
}

func TestRunGroupSkip(t *testing.T) {
	g := &Group{
		Name: "skipping",
		Tests: []TestCase{
			{Name: "skipped", Fn: func(t *T) {
				t.Skip("not ready yet")
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Skipped != 1 {
		t.Fatalf("expected 1 skip, got %+v", sum)
	}
}

func TestRunGroupStopStillAudits(t *testing.T) {
	g := &Group{
		Name: "stopping",
		Tests: []TestCase{
			{Name: "leaks_then_stops", Fn: func(t *T) {
				t.Alloc().Alloc(8, allocLoc())
				t.Stop()
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 {
		t.Fatalf("expected the leak to fail the test even though Stop was called, got %+v", sum)
	}
}

func TestRunGroupLeakDetection(t *testing.T) {
	g := &Group{
		Name: "leaky",
		Tests: []TestCase{
			{Name: "leaks", Fn: func(t *T) {
				t.Alloc().Alloc(4, allocLoc())
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 {
		t.Fatalf("expected leak to fail test, got %+v", sum)
	}
	if !strings.Contains(sum.Tests[0].ErrorMessage, "LEAK") {
		t.Fatalf("expected LEAK diagnostic, got %q", sum.Tests[0].ErrorMessage)
	}
}

func TestRunGroupLeftoverDetection(t *testing.T) {
	g := &Group{
		Name: "leftover",
		Tests: []TestCase{
			{Name: "unused_will_return", Fn: func(t *T) {
				t.WillReturn("widget_new", 7, Exact(1))
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 {
		t.Fatalf("expected leftover to fail test, got %+v", sum)
	}
	if !strings.Contains(sum.Tests[0].ErrorMessage, "LEFTOVER_EXPECTATIONS") {
		t.Fatalf("expected LEFTOVER_EXPECTATIONS diagnostic, got %q", sum.Tests[0].ErrorMessage)
	}
}

func TestRunGroupUsedAlwaysIsNotALeftover(t *testing.T) {
	g := &Group{
		Name: "always",
		Tests: []TestCase{
			{Name: "uses_always_helper", Fn: func(t *T) {
				t.WillReturn("widget_new", 7, Always)
				for i := 0; i < 3; i++ {
					if got := t.Mock("widget_new"); got != 7 {
						t.AssertIntEqual(int64(got.(int)), 7)
					}
				}
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Passed != 1 || sum.Failed != 0 {
		t.Fatalf("a consumed ALWAYS expectation must not fail as a leftover, got %+v", sum.Tests)
	}
}

func TestRunGroupUnusedAlwaysIsStillALeftover(t *testing.T) {
	g := &Group{
		Name: "always",
		Tests: []TestCase{
			{Name: "never_calls_widget_new", Fn: func(t *T) {
				t.WillReturn("widget_new", 7, Always)
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 {
		t.Fatalf("an ALWAYS expectation never taken must still be a leftover, got %+v", sum.Tests)
	}
	if !strings.Contains(sum.Tests[0].ErrorMessage, "LEFTOVER_EXPECTATIONS") {
		t.Fatalf("expected LEFTOVER_EXPECTATIONS diagnostic, got %q", sum.Tests[0].ErrorMessage)
	}
}

func TestRunGroupCrashCapture(t *testing.T) {
	g := &Group{
		Name: "crashy",
		Tests: []TestCase{
			{Name: "raises", Fn: func(t *T) {
				t.Raise("SIGSEGV")
			}},
			{Name: "after_crash_still_runs", Fn: func(t *T) {
				t.AssertIntEqual(1, 1)
			}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Failed != 1 || len(sum.Tests) != 2 {
		t.Fatalf("expected the crash to fail only its own test and the run to continue, got %+v", sum)
	}
	if !strings.Contains(sum.Tests[0].ErrorMessage, "SIGSEGV") {
		t.Fatalf("expected SIGSEGV diagnostic, got %q", sum.Tests[0].ErrorMessage)
	}
	if sum.Tests[1].Status != Passed {
		t.Fatalf("expected the second test to run and pass, got %v", sum.Tests[1].Status)
	}
}

func TestRunGroupSetupFailureErrorsEveryTest(t *testing.T) {
	g := &Group{
		Name: "badsetup",
		Setup: func(t *T) error {
			return errTestSetup
		},
		Tests: []TestCase{
			{Name: "one", Fn: func(t *T) {}},
			{Name: "two", Fn: func(t *T) {}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{})
	if sum.Errored != 2 {
		t.Fatalf("expected both tests errored by group setup failure, got %+v", sum)
	}
}

func TestRunGroupFilterInclude(t *testing.T) {
	g := &Group{
		Name: "filtered",
		Tests: []TestCase{
			{Name: "keep_me", Fn: func(t *T) {}},
			{Name: "drop_me", Fn: func(t *T) {}},
		},
	}
	sum := runOneGroup(t, g, RunOptions{Include: []string{"keep_*"}})
	if len(sum.Tests) != 1 || sum.Tests[0].Name != "keep_me" {
		t.Fatalf("expected only keep_me selected, got %+v", sum.Tests)
	}
}

func TestRunAllRunsIndependentGroups(t *testing.T) {
	groups := []*Group{
		{Name: "g1", Tests: []TestCase{{Name: "a", Fn: func(t *T) {}}}},
		{Name: "g2", Tests: []TestCase{{Name: "b", Fn: func(t *T) { t.Fail("boom") }}}},
	}
	summaries, failCount := RunAll(context.Background(), groups, RunOptions{MaxConcurrentGroups: 2})
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if failCount != 1 {
		t.Fatalf("expected 1 total failure across groups, got %d", failCount)
	}
}
