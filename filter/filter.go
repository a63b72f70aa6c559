// Package filter implements gocmocka's test selection (SPEC_FULL.md §4.J):
// the spec'd glob include/skip patterns, plus an additive CEL expression
// evaluated against per-test metadata, grounded on the teacher's cel.Evaluator.
package filter

import (
	"fmt"
	"path"

	"github.com/google/cel-go/cel"
)

// Glob reports whether name matches pattern, using path.Match (spec.md
// §4.J): `*` matches any run of characters other than '/', `?` matches
// exactly one character other than '/'. `[...]` classes and `\` escapes are
// also interpreted, and a malformed pattern matches nothing.
func Glob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}

// Expr is a compiled CEL predicate evaluated against test metadata (name,
// group, tags) to decide inclusion. Unlike the teacher's cel.Evaluator
// (which compares two maps and returns an int), this compiles a single
// boolean expression over one `test` map, matching the filter's simpler
// accept/reject contract.
type Expr struct {
	source  string
	program cel.Program
}

// Compile compiles expression once; it is re-evaluated per test via Match.
// The expression sees one variable, `test`, a map[string]any built from the
// test's name, its group's name, and its Tags.
func Compile(expression string) (*Expr, error) {
	if expression == "" {
		return nil, fmt.Errorf("filter: expression must not be empty")
	}
	env, err := cel.NewEnv(
		cel.Variable("test", cel.MapType(cel.StringType, cel.AnyType)),
	)
	if err != nil {
		return nil, fmt.Errorf("filter: creating CEL environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter: compiling expression %q: %w", expression, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter: building program: %w", err)
	}
	return &Expr{source: expression, program: prg}, nil
}

// Match evaluates the compiled expression against meta, returning whether
// the test is selected.
func (e *Expr) Match(meta map[string]any) (bool, error) {
	out, _, err := e.program.Eval(map[string]any{"test": meta})
	if err != nil {
		return false, fmt.Errorf("filter: evaluating %q: %w", e.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter: expression %q did not evaluate to a bool", e.source)
	}
	return b, nil
}

// Meta builds the test-metadata map an Expr is evaluated against, the
// shape SPEC_FULL.md §4.J names: name, group, tags.
func Meta(name, group string, tags map[string]any) map[string]any {
	m := map[string]any{
		"name":  name,
		"group": group,
		"tags":  tags,
	}
	return m
}
