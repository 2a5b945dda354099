package report

import (
	"reflect"
	"testing"
)

func TestEscapeCSVCell(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Safe values - should not be escaped
		{"empty", "", ""},
		{"normal_text", "Ceramic brake pads", "Ceramic brake pads"},
		{"number", "123.45", "123.45"},
		{"negative_number", "-5.00", "-5.00"},
		{"signed_number", "+12", "+12"},
		{"safe_special", "#001", "#001"},
		{"internal_equal", "A=B", "A=B"},

		// Formula injections - must be escaped
		{"formula_equal", "=SUM(A1:A10)", "'=SUM(A1:A10)"},
		{"formula_plus", "+A1", "'+A1"},
		{"formula_minus", "-A1+B1", "'-A1+B1"},
		{"formula_at", "@SUM(A:A)", "'@SUM(A:A)"},
		{"formula_pipe", "|echo test", "'|echo test"},
		{"formula_percent", "%PATH%", "'%PATH%"},

		// Whitespace injections
		{"tab_start", "\t=EXEC()", "'\t=EXEC()"},
		{"newline_start", "\n=FORMULA()", "'\n=FORMULA()"},
		{"carriage_return", "\r=DATA()", "'\r=DATA()"},

		// Listing titles that look like formulas
		{"title_dash", "-2 pack wiper blades", "'-2 pack wiper blades"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeCSVCell(tt.input); got != tt.expected {
				t.Errorf("EscapeCSVCell(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestEscapeCSVRow(t *testing.T) {
	row := []string{"A1", "=HYPERLINK(\"x\")", "-3.5", "@user"}
	want := []string{"A1", "'=HYPERLINK(\"x\")", "-3.5", "'@user"}
	if got := EscapeCSVRow(row); !reflect.DeepEqual(got, want) {
		t.Errorf("EscapeCSVRow() = %v, want %v", got, want)
	}
}
