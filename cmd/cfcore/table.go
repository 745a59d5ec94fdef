package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faint     = lipgloss.NewStyle().Faint(true)
)

// table renders left-aligned columns. Cell widths are measured with
// lipgloss.Width so styled cells line up.
type table struct {
	head []string
	rows [][]string
}

func (t *table) add(cells ...string) { t.rows = append(t.rows, cells) }

func (t *table) render(w io.Writer) {
	widths := make([]int, len(t.head))
	for i, h := range t.head {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range t.rows {
		for i := 0; i < len(r) && i < len(widths); i++ {
			if cw := lipgloss.Width(r[i]); cw > widths[i] {
				widths[i] = cw
			}
		}
	}
	line := func(cells []string, style *lipgloss.Style) {
		var b strings.Builder
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			pad := widths[i] - lipgloss.Width(cell)
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", pad+2))
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
	line(t.head, &headStyle)
	for _, r := range t.rows {
		line(r, nil)
	}
}

func statusCell(s string) string {
	switch s {
	case "verified", "complete":
		return okStyle.Render(s)
	case "checksum_mismatch", "error":
		return badStyle.Render(s)
	case "planning":
		return warnStyle.Render(s)
	}
	return s
}
