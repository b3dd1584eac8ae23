package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/katalvlaran/hclg/hclg"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A030")).Padding(0, 1)
)

func isattyTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderStages draws one row per stage. Plain ASCII borders are used when
// the output is not a terminal.
func renderStages(stages []hclg.StageResult, styled bool) string {
	rows := make([][]string, 0, len(stages))
	for _, sr := range stages {
		note := ""
		switch {
		case sr.Regressed:
			note = "regressed (exempt)"
		case sr.Exempt:
			note = "exempt"
		}
		rows = append(rows, []string{
			sr.Stage.String(),
			strconv.Itoa(sr.States),
			strconv.Itoa(sr.Arcs),
			fmt.Sprintf("%.6f", sr.Bounds.Min),
			fmt.Sprintf("%.6f", sr.Bounds.Max),
			sr.Duration.String(),
			note,
		})
	}

	border := lipgloss.ASCIIBorder()
	if styled {
		border = lipgloss.RoundedBorder()
	}
	t := table.New().
		Border(border).
		Headers("STAGE", "STATES", "ARCS", "MIN", "MAX", "TIME", "NOTE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				if styled {
					return headerStyle
				}

				return cellStyle
			case styled && row >= 0 && row < len(stages) && stages[row].Regressed:
				return warnStyle
			}

			return cellStyle
		})

	return t.Render()
}
