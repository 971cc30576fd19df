package template

import (
	"testing"
)

func TestTransformWhitelist(t *testing.T) {
	r := NewRenderer(nil)

	tests := []struct {
		name      string
		value     any
		transform string
		want      string // compared via Format
	}{
		{"toFixed", float64(3.14159), "toFixed(2)", "3.14"},
		{"toFixed_zero", float64(5), "toFixed(0)", "5"},
		{"toFixed_string_input", "2.5", "toFixed(1)", "2.5"},
		{"multiply", float64(4), "* 2.5", "10"},
		{"divide", float64(10), "/ 4", "2.5"},
		{"add", float64(1), "+ 41", "42"},
		{"subtract", float64(5), "- 1.5", "3.5"},
		{"upper", "abc", "toUpperCase()", "ABC"},
		{"upper_no_parens", "abc", "toUpperCase", "ABC"},
		{"lower", "ABC", "toLowerCase()", "abc"},
		{"lower_no_parens", "ABC", "toLowerCase", "abc"},
		{"trim", "  pad  ", "trim()", "pad"},
		{"trim_no_parens", "  pad  ", "trim", "pad"},
		{"negate_true", true, "!", "false"},
		{"negate_zero", float64(0), "!", "true"},
		{"negate_string", "x", "!", "false"},
		{"arith_on_nonnumeric", "abc", "* 2", "NaN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Format(r.Transform(tc.value, tc.transform))
			if got != tc.want {
				t.Errorf("Transform(%v, %q) = %q, want %q", tc.value, tc.transform, got, tc.want)
			}
		})
	}
}

func TestTransformUnknownPassesThrough(t *testing.T) {
	r := NewRenderer(nil)

	tests := []string{
		"reverse()",
		"toFixed(x)",
		"sqrt",
		"",
		"**2",
	}
	for _, transform := range tests {
		got := r.Transform("unchanged", transform)
		if got != "unchanged" {
			t.Errorf("Transform(%q) = %v, want pass-through", transform, got)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(2), "2"},
		{3, "3"},
		{"4.5", "4.5"},
		{" 7 ", "7"},
		{"", "0"},
		{nil, "0"},
		{true, "1"},
		{false, "0"},
		{"abc", "NaN"},
		{[]any{}, "NaN"},
	}
	for _, tc := range tests {
		if got := Format(toNumber(tc.in)); got != tc.want {
			t.Errorf("toNumber(%v) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
