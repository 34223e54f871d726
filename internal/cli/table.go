package cli

import (
	"fmt"
	"strings"
)

// RenderTable renders rows under a styled header. Column widths adapt to the
// widest cell; rows shorter than the header are padded with blanks.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = fmt.Sprintf("%-*s", widths[i], h)
	}
	b.WriteString(TableHeaderStyle.Render(strings.Join(headerCells, "  ")))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(headers))
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		b.WriteString(TableCellStyle.Render(strings.Join(cells, "  ")))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderKeyValues renders aligned label/value pairs, one per line.
func RenderKeyValues(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		if len(p[0]) > width {
			width = len(p[0])
		}
	}

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("%-*s", width+2, p[0]+":")))
		b.WriteString(p[1])
		b.WriteString("\n")
	}
	return b.String()
}
