package report

import (
	"fmt"
	"io"

	"github.com/sharedcode/gocmocka"
)

// Standard is the default human-readable formatter: one line per test plus
// a group trailer.
type Standard struct {
	out io.Writer
}

// NewStandard returns a Standard formatter writing to out.
func NewStandard(out io.Writer) *Standard { return &Standard{out: out} }

func (s *Standard) Handle(ev gocmocka.Event) {
	switch ev.Kind {
	case gocmocka.EventGroupStart:
		fmt.Fprintf(s.out, "[ RUN      ] %s\n", ev.Group)
	case gocmocka.EventTestStart:
		fmt.Fprintf(s.out, "[ RUN      ] %s.%s\n", ev.Group, ev.Test.Name)
	case gocmocka.EventTestSuccess:
		fmt.Fprintf(s.out, "[       OK ] %s.%s (%s)\n", ev.Group, ev.Test.Name, ev.Test.Runtime)
	case gocmocka.EventTestSkipped:
		fmt.Fprintf(s.out, "[  SKIPPED ] %s.%s\n", ev.Group, ev.Test.Name)
	case gocmocka.EventTestFailure:
		fmt.Fprintf(s.out, "[  FAILED  ] %s.%s\n%s\n", ev.Group, ev.Test.Name, ev.Test.ErrorMessage)
	case gocmocka.EventTestError:
		fmt.Fprintf(s.out, "[  ERROR   ] %s.%s\n%s\n", ev.Group, ev.Test.Name, ev.Test.ErrorMessage)
	case gocmocka.EventGroupFinish:
		sum := ev.Summary
		fmt.Fprintf(s.out, "[----------] %d test(s) from %s (%d passed, %d failed, %d errored, %d skipped)\n",
			len(sum.Tests), ev.Group, sum.Passed, sum.Failed, sum.Errored, sum.Skipped)
	}
}
