package core

import (
	"strconv"
	"strings"
)

// CSVHeader is the only header row accepted on import and the one written on export.
var CSVHeader = []string{"Title", "Description", "Duration", "Level"}

// ParseCSV tokenizes CSV text into rows of fields.
//
// Fields may be wrapped in double quotes, and "" inside quotes is a literal
// quote. Outside quotes a comma ends a field and a newline ends a row; a
// CRLF pair acts as a single row terminator. Carriage returns inside quotes
// and lone carriage returns are kept as data. The final row is emitted even
// without a trailing newline, and a trailing newline adds no empty row.
func ParseCSV(text string) [][]string {
	var (
		rows     [][]string
		row      []string
		field    strings.Builder
		inQuotes bool
		pending  bool // current row has consumed input
	)

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			pending = true

		case c == ',' && !inQuotes:
			row = append(row, field.String())
			field.Reset()
			pending = true

		case c == '\r' && !inQuotes && i+1 < len(text) && text[i+1] == '\n':
			// dropped; the '\n' terminates the row

		case c == '\n' && !inQuotes:
			row = append(row, field.String())
			field.Reset()
			rows = append(rows, row)
			row = nil
			pending = false

		default:
			field.WriteByte(c)
			pending = true
		}
	}

	if pending {
		row = append(row, field.String())
		rows = append(rows, row)
	}

	return rows
}

// SerializeCSV renders talks as quoted CSV with the standard header.
// Rows are joined with "\n" and there is no trailing newline.
func SerializeCSV(talks []Talk) string {
	lines := make([]string, 0, len(talks)+1)
	lines = append(lines, quoteRow(CSVHeader))
	for _, t := range talks {
		lines = append(lines, quoteRow([]string{
			t.Title,
			t.Description,
			strconv.Itoa(t.Duration),
			t.Level,
		}))
	}
	return strings.Join(lines, "\n")
}

// SerializeRows renders arbitrary rows with the same quoting as SerializeCSV.
func SerializeRows(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = quoteRow(row)
	}
	return strings.Join(lines, "\n")
}

func quoteRow(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// isBlankRow reports whether a parsed row came from an empty line.
func isBlankRow(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}
