package report

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sharedcode/gocmocka"
)

func sampleSummary() *gocmocka.RunSummary {
	return &gocmocka.RunSummary{
		Group:  "arith",
		Passed: 1,
		Failed: 1,
		Tests: []gocmocka.TestState{
			{Name: "add", Status: gocmocka.Passed, Runtime: time.Millisecond},
			{Name: "sub", Status: gocmocka.Failed, Runtime: time.Millisecond, ErrorMessage: "assert_int_equal: 1 != 2"},
		},
	}
}

func drive(f Formatter, summary *gocmocka.RunSummary) {
	f.Handle(gocmocka.Event{Kind: gocmocka.EventGroupStart, Group: summary.Group})
	for _, ts := range summary.Tests {
		kind := gocmocka.EventTestSuccess
		if ts.Status == gocmocka.Failed {
			kind = gocmocka.EventTestFailure
		}
		f.Handle(gocmocka.Event{Kind: gocmocka.EventTestStart, Group: summary.Group, Test: ts})
		f.Handle(gocmocka.Event{Kind: kind, Group: summary.Group, Test: ts})
	}
	f.Handle(gocmocka.Event{Kind: gocmocka.EventGroupFinish, Group: summary.Group, Summary: summary})
}

func TestStandardFormatter(t *testing.T) {
	var buf bytes.Buffer
	drive(NewStandard(&buf), sampleSummary())
	out := buf.String()
	if !strings.Contains(out, "[       OK ] arith.add") {
		t.Fatalf("missing OK line: %q", out)
	}
	if !strings.Contains(out, "[  FAILED  ] arith.sub") {
		t.Fatalf("missing FAILED line: %q", out)
	}
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	drive(NewTAP(&buf), sampleSummary())
	out := buf.String()
	if !strings.Contains(out, "TAP version 13") {
		t.Fatalf("missing TAP header: %q", out)
	}
	if !strings.Contains(out, "ok 1 - add") {
		t.Fatalf("missing ok line: %q", out)
	}
	if !strings.Contains(out, "not ok 2 - sub") {
		t.Fatalf("missing not ok line: %q", out)
	}
	if !strings.Contains(out, "1..2") {
		t.Fatalf("missing plan line: %q", out)
	}
}

func TestSubunitFormatter(t *testing.T) {
	var buf bytes.Buffer
	drive(NewSubunit(&buf), sampleSummary())
	out := buf.String()
	if !strings.Contains(out, "test: arith.add") {
		t.Fatalf("missing test: line: %q", out)
	}
	if !strings.Contains(out, "success: arith.add") {
		t.Fatalf("missing success: line: %q", out)
	}
	if !strings.Contains(out, "failure: arith.sub") {
		t.Fatalf("missing failure: line: %q", out)
	}
}

func TestRenderXML(t *testing.T) {
	out, err := RenderXML(sampleSummary())
	if err != nil {
		t.Fatalf("RenderXML: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `<testsuite name="arith"`) {
		t.Fatalf("missing testsuite element: %q", s)
	}
	if !strings.Contains(s, `<testcase name="add"`) {
		t.Fatalf("missing add testcase: %q", s)
	}
	if !strings.Contains(s, "<failure") {
		t.Fatalf("missing failure element: %q", s)
	}
}

func TestXMLFormatterAppendsAcrossGroups(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/report-%g.xml"
	x := NewXML(path)

	first := sampleSummary()
	x.Handle(gocmocka.Event{Kind: gocmocka.EventGroupFinish, Group: "arith", Summary: first})

	second := sampleSummary()
	second.Group = "arith"
	second.Tests = []gocmocka.TestState{{Name: "mul", Status: gocmocka.Passed}}
	x.Handle(gocmocka.Event{Kind: gocmocka.EventGroupFinish, Group: "arith", Summary: second})

	resolved := dir + "/report-arith.xml"
	data, err := os.ReadFile(resolved)
	if err != nil {
		t.Fatalf("reading %s: %v", resolved, err)
	}
	if strings.Count(string(data), "<testsuite ") != 2 {
		t.Fatalf("expected two appended testsuite elements, got: %s", data)
	}
}
