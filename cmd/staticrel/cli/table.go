// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status words that [WriteTable] colors when the output supports it.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// WriteTable writes rows under a bold header, left-aligned in columns
// separated by three spaces. Cells equal to [StatusSuccess] or
// [StatusFailed] are colored green or red. Colors are dropped when w is
// not a terminal.
func WriteTable(w io.Writer, headers []string, rows [][]string) error {
	renderer := lipgloss.NewRenderer(w)
	headerStyle := renderer.NewStyle().Bold(true)
	statusStyles := map[string]lipgloss.Style{
		StatusSuccess: renderer.NewStyle().Foreground(lipgloss.Color("2")),
		StatusFailed:  renderer.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}

	widths := make([]int, len(headers))
	for column, header := range headers {
		widths[column] = lipgloss.Width(header)
	}
	for _, row := range rows {
		for column, cell := range row {
			if column < len(widths) {
				widths[column] = max(widths[column], lipgloss.Width(cell))
			}
		}
	}

	render := func(cells []string, style func(string) lipgloss.Style) string {
		var line strings.Builder
		for column, cell := range cells {
			if column >= len(widths) {
				break
			}
			padding := ""
			if column < len(cells)-1 {
				padding = strings.Repeat(" ", widths[column]-lipgloss.Width(cell)+3)
			}
			line.WriteString(style(cell).Render(cell))
			line.WriteString(padding)
		}
		return line.String()
	}

	if _, err := fmt.Fprintln(w, render(headers, func(string) lipgloss.Style { return headerStyle })); err != nil {
		return err
	}
	plain := renderer.NewStyle()
	for _, row := range rows {
		line := render(row, func(cell string) lipgloss.Style {
			if style, ok := statusStyles[cell]; ok {
				return style
			}
			return plain
		})
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
