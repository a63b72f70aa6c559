package report

import (
	"fmt"
	"io"

	"github.com/sharedcode/gocmocka"
)

// Subunit renders the line-oriented subunit protocol (spec.md §6): test:,
// success:, failure:, skip:, error: lines, one per event.
type Subunit struct {
	out io.Writer
}

// NewSubunit returns a Subunit formatter writing to out.
func NewSubunit(out io.Writer) *Subunit { return &Subunit{out: out} }

func (s *Subunit) Handle(ev gocmocka.Event) {
	qualified := func() string { return ev.Group + "." + ev.Test.Name }
	switch ev.Kind {
	case gocmocka.EventTestStart:
		fmt.Fprintf(s.out, "test: %s\n", qualified())
	case gocmocka.EventTestSuccess:
		fmt.Fprintf(s.out, "success: %s\n", qualified())
	case gocmocka.EventTestFailure:
		fmt.Fprintf(s.out, "failure: %s [\n%s\n]\n", qualified(), ev.Test.ErrorMessage)
	case gocmocka.EventTestError:
		fmt.Fprintf(s.out, "error: %s [\n%s\n]\n", qualified(), ev.Test.ErrorMessage)
	case gocmocka.EventTestSkipped:
		fmt.Fprintf(s.out, "skip: %s\n", qualified())
	}
}
