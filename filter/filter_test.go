package filter

import "testing"

func TestGlob(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"test_*", "test_add", true},
		{"test_*", "other_add", false},
		{"test_?dd", "test_add", true},
		{"test_?dd", "test_addd", false},
		{"*", "anything", true},
	}
	for _, c := range cases {
		if got := Glob(c.pattern, c.name); got != c.want {
			t.Errorf("Glob(%q, %q) = %v, want %v", c.pattern, c.name, got, c.want)
		}
	}
}

func TestExprMatch(t *testing.T) {
	expr, err := Compile(`test.group == "arith" && test.name == "add_two"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	meta := Meta("add_two", "arith", map[string]any{"slow": false})
	ok, err := expr.Match(meta)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching metadata to be selected")
	}

	meta2 := Meta("subtract_two", "arith", nil)
	ok2, err := expr.Match(meta2)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if ok2 {
		t.Fatalf("expected non-matching metadata to be rejected")
	}
}

func TestCompileRejectsEmptyExpression(t *testing.T) {
	if _, err := Compile(""); err == nil {
		t.Fatalf("expected an error for an empty expression")
	}
}
