package report

import (
	"strconv"
	"strings"
)

// EscapeCSVCell protects against CSV formula injection by prefixing cells that
// start with a formula indicator. Plain numbers, negative ones included, are
// left alone.
func EscapeCSVCell(value string) string {
	if value == "" {
		return value
	}

	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}

	switch value[0] {
	case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
		return "'" + value
	}

	return value
}

// EscapeCSVRow escapes all cells in a row
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}

// sanitizeText collapses whitespace so free text stays on one CSV or text line
func sanitizeText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
