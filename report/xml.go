package report

import (
	"encoding/xml"
	"os"
	"strconv"
	"strings"

	"github.com/sharedcode/gocmocka"
)

// junitTestCase is one <testcase> element of the JUnit-compatible subset
// spec.md §6 names.
type junitTestCase struct {
	XMLName xml.Name `xml:"testcase"`
	Name    string   `xml:"name,attr"`
	Time    string   `xml:"time,attr"`
	Failure *junitText `xml:"failure,omitempty"`
	Error   *junitText `xml:"error,omitempty"`
	Skipped *struct{} `xml:"skipped,omitempty"`
}

type junitText struct {
	Message string `xml:"message,attr,omitempty"`
	Body    string `xml:",cdata"`
}

// junitTestSuite is one group's <testsuite>.
type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Time     string          `xml:"time,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

// XML buffers one group's events and renders a JUnit-compatible
// <testsuites><testsuite>...</testsuite></testsuites> document at
// GROUP_FINISH. pathTemplate honors a %g substitution with the group name
// (spec.md §6); when the resolved path already holds a <testsuites>
// document (written by an earlier group, in this process or an earlier
// one), the new suite is appended into it rather than overwriting, so
// multiple groups can share one file.
type XML struct {
	pathTemplate string
}

// NewXML returns an XML formatter targeting pathTemplate.
func NewXML(pathTemplate string) *XML { return &XML{pathTemplate: pathTemplate} }

// buildSuite renders one group's RunSummary into the JUnit-compatible
// <testsuite> shape shared by the XML formatter and RenderXML.
func buildSuite(summary *gocmocka.RunSummary) junitTestSuite {
	suite := junitTestSuite{
		Name:     summary.Group,
		Tests:    len(summary.Tests),
		Failures: summary.Failed,
		Errors:   summary.Errored,
		Skipped:  summary.Skipped,
	}
	var total float64
	for _, ts := range summary.Tests {
		secs := ts.Runtime.Seconds()
		total += secs
		tc := junitTestCase{Name: ts.Name, Time: strconv.FormatFloat(secs, 'f', 6, 64)}
		switch ts.Status {
		case gocmocka.Failed:
			tc.Failure = &junitText{Message: ts.ErrorMessage, Body: ts.ErrorMessage}
		case gocmocka.Errored:
			tc.Error = &junitText{Message: ts.ErrorMessage, Body: ts.ErrorMessage}
		case gocmocka.Skipped:
			tc.Skipped = &struct{}{}
		}
		suite.Cases = append(suite.Cases, tc)
	}
	suite.Time = strconv.FormatFloat(total, 'f', 6, 64)
	return suite
}

// RenderXML renders a single group's summary as a standalone
// <testsuites> document, for callers (such as S3Sink) that need the bytes
// directly rather than writing them to a shared file.
func RenderXML(summary *gocmocka.RunSummary) ([]byte, error) {
	doc := junitTestSuites{Suites: []junitTestSuite{buildSuite(summary)}}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (x *XML) Handle(ev gocmocka.Event) {
	if ev.Kind != gocmocka.EventGroupFinish {
		return
	}
	suite := buildSuite(ev.Summary)

	path := strings.ReplaceAll(x.pathTemplate, "%g", ev.Group)
	doc := junitTestSuites{}
	if existing, err := os.ReadFile(path); err == nil {
		_ = xml.Unmarshal(existing, &doc)
	}
	doc.Suites = append(doc.Suites, suite)

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		logErr(err)
		return
	}
	if err := os.WriteFile(path, append([]byte(xml.Header), out...), 0o644); err != nil {
		logErr(err)
	}
}

func logErr(err error) {
	// Formatter errors never fail the run (spec.md §6 treats output as
	// best-effort against the process's shared streams/files).
	os.Stderr.WriteString("gocmocka: xml formatter: " + err.Error() + "\n")
}
