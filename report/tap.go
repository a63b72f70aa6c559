package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/sharedcode/gocmocka"
)

// TAP renders the TAP version 13 protocol (spec.md §6): a version header,
// one "1..n" plan per group, one ok/not-ok line per test, and a trailer
// comment line.
type TAP struct {
	out   io.Writer
	index int
}

// NewTAP returns a TAP formatter writing to out.
func NewTAP(out io.Writer) *TAP { return &TAP{out: out} }

func (p *TAP) Handle(ev gocmocka.Event) {
	switch ev.Kind {
	case gocmocka.EventGroupStart:
		p.index = 0
		fmt.Fprintln(p.out, "TAP version 13")
	case gocmocka.EventTestSuccess, gocmocka.EventTestFailure, gocmocka.EventTestError, gocmocka.EventTestSkipped:
		p.index++
		ok := "ok"
		if ev.Kind == gocmocka.EventTestFailure || ev.Kind == gocmocka.EventTestError {
			ok = "not ok"
		}
		skip := ""
		if ev.Kind == gocmocka.EventTestSkipped {
			skip = " # SKIP"
		}
		fmt.Fprintf(p.out, "%s %d - %s%s\n", ok, p.index, ev.Test.Name, skip)
		if ev.Test.ErrorMessage != "" {
			for _, line := range strings.Split(ev.Test.ErrorMessage, "\n") {
				fmt.Fprintf(p.out, "# %s\n", line)
			}
		}
	case gocmocka.EventGroupFinish:
		fmt.Fprintf(p.out, "1..%d\n", p.index)
		if ev.Summary.FailureCount() == 0 {
			fmt.Fprintf(p.out, "# ok - %s\n", ev.Group)
		} else {
			fmt.Fprintf(p.out, "# not ok - %s\n", ev.Group)
		}
	}
}
