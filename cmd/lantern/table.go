package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"

	"github.com/lanternhq/lantern/internal/search"
)

// renderTable formats search rows as a bordered table, one column per
// projected field. The header is bold and colored only when the terminal has
// color support; the border characters are the same either way.
func renderTable(res *search.Response) string {
	if len(res.Rows) == 0 {
		return "no rows"
	}

	headers := make([]string, 0, len(res.Rows[0].Fields))
	for _, cell := range res.Rows[0].Fields {
		headers = append(headers, cell.Name)
	}

	rows := make([][]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		out := make([]string, 0, len(row.Fields))
		for _, cell := range row.Fields {
			out = append(out, formatValue(cell.Value))
		}
		rows = append(rows, out)
	}

	headerStyle := lipgloss.NewStyle()
	if termenv.EnvColorProfile() != termenv.Ascii {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("6"))
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	return t.Render()
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "∅"
	case string:
		return val
	case []byte:
		return fmt.Sprintf("0x%x", val)
	case float64:
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
