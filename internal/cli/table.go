package cli

import (
	"strings"
)

// columnGap separates table columns.
const columnGap = "  "

// Table renders left-aligned columns sized to their widest cell. Columns
// with a maximum width wrap at word boundaries.
type Table struct {
	headers   []string
	rows      [][]string
	maxWidths map[int]int
}

// NewTable creates a table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers, maxWidths: make(map[int]int)}
}

// SetColumnMaxWidth wraps column col at width characters. Zero disables
// wrapping.
func (t *Table) SetColumnMaxWidth(col, width int) {
	t.maxWidths[col] = width
}

// AddRow appends a row, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	cells := make([]string, len(t.headers))
	copy(cells, row)
	t.rows = append(t.rows, cells)
}

// Render returns the table with a header and a dashed separator line.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	cells := make([][][]string, len(t.rows))
	for r, row := range t.rows {
		cells[r] = make([][]string, len(row))
		for c, cell := range row {
			lines := wrapText(cell, t.maxWidths[c])
			cells[r][c] = lines
			for _, line := range lines {
				widths[c] = max(widths[c], len(line))
			}
		}
	}

	var b strings.Builder
	t.writeLine(&b, widths, func(c int) string { return t.headers[c] })
	t.writeLine(&b, widths, func(c int) string { return strings.Repeat("-", widths[c]) })
	for _, row := range cells {
		height := 1
		for _, lines := range row {
			height = max(height, len(lines))
		}
		for l := range height {
			t.writeLine(&b, widths, func(c int) string {
				if l < len(row[c]) {
					return row[c][l]
				}
				return ""
			})
		}
	}
	return b.String()
}

func (t *Table) writeLine(b *strings.Builder, widths []int, cell func(int) string) {
	parts := make([]string, len(widths))
	for c, w := range widths {
		parts[c] = padRight(cell(c), w)
	}
	b.WriteString(strings.TrimRight(strings.Join(parts, columnGap), " "))
	b.WriteByte('\n')
}

// padRight pads s with spaces to width. Longer strings are unchanged.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// wrapText breaks text into lines of at most width characters, splitting
// at spaces and cutting words that are longer than width.
func wrapText(text string, width int) []string {
	if width <= 0 || len(text) <= width {
		return []string{text}
	}

	var lines []string
	var line string
	for _, word := range strings.Fields(text) {
		for len(word) > width {
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return []string{text}
	}
	return lines
}
