// Package report implements gocmocka's output dispatch (spec.md §6 /
// SPEC_FULL.md §4.G,L,M): a registration-table Dispatcher fanning events out
// to the formatters selected by a config.OutputFormat mask, plus the
// optional report sinks and erasure-coded archival layered on top.
package report

import (
	"io"

	"github.com/sharedcode/gocmocka"
	"github.com/sharedcode/gocmocka/config"
)

// Formatter renders the gocmocka event stream to some external surface.
// Satisfies gocmocka.Listener.
type Formatter interface {
	Handle(gocmocka.Event)
}

// factory builds a Formatter for one stdout/file pair. Grounded on the
// teacher's cachefactory.go registration-table pattern (RegisterCacheFactory
// / NewCacheClient), adapted from a single global slot to the 4-bit output
// mask this dispatcher fans out to.
type factory func(out io.Writer) Formatter

var registry = map[config.OutputFormat]factory{
	config.FormatStandard: func(out io.Writer) Formatter { return NewStandard(out) },
	config.FormatTAP:      func(out io.Writer) Formatter { return NewTAP(out) },
	config.FormatSubunit:  func(out io.Writer) Formatter { return NewSubunit(out) },
}

// Dispatcher fans every Event out to the formatters selected by a mask, plus
// any directly-registered Listeners (XML needs its own lifecycle since it
// buffers per group and writes at GROUP_FINISH, so it is wired in
// separately via WithXML rather than through the factory registry).
type Dispatcher struct {
	formatters []Formatter
}

// New builds a Dispatcher for the formats set in mask, writing to out
// (typically os.Stdout).
func New(mask config.OutputFormat, out io.Writer) *Dispatcher {
	d := &Dispatcher{}
	for bit, f := range registry {
		if mask&bit != 0 {
			d.formatters = append(d.formatters, f(out))
		}
	}
	return d
}

// WithXML adds an XML formatter writing to path (honoring the %g group-name
// substitution and cross-group append, per spec.md §6).
func (d *Dispatcher) WithXML(path string) *Dispatcher {
	d.formatters = append(d.formatters, NewXML(path))
	return d
}

// WithListener adds an arbitrary additional Listener (e.g. a Sink adapter).
func (d *Dispatcher) WithListener(l gocmocka.Listener) *Dispatcher {
	d.formatters = append(d.formatters, l)
	return d
}

// Handle fans ev out to every registered formatter/listener.
func (d *Dispatcher) Handle(ev gocmocka.Event) {
	for _, f := range d.formatters {
		f.Handle(ev)
	}
}
