package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"anvil/internal/manifest"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// WriteQueryTable prints one row per query result. Columns are padded by
// display width so wide type names line up.
func WriteQueryTable(w io.Writer, path string, results []manifest.Result, colored bool) error {
	if len(results) == 0 {
		return nil
	}
	rows := make([][3]string, len(results))
	widths := [2]int{len("#"), len("kind")}
	for i, r := range results {
		answer := r.Got
		if r.Err != nil {
			answer = "error: " + r.Err.Error()
		}
		if r.Got != "" && r.Cost > 0 {
			answer += " (cost " + strconv.FormatUint(uint64(r.Cost), 10) + ")"
		}
		rows[i] = [3]string{strconv.Itoa(r.Index), r.Kind, answer}
		widths[0] = max(widths[0], runewidth.StringWidth(rows[i][0]))
		widths[1] = max(widths[1], runewidth.StringWidth(rows[i][1]))
	}

	render := func(s lipgloss.Style, text string) string {
		if !colored {
			return text
		}
		return s.Render(text)
	}
	if _, err := fmt.Fprintln(w, render(dimStyle, path)); err != nil {
		return err
	}
	for i, row := range rows {
		mark := render(passStyle, "ok  ")
		if !results[i].Pass {
			mark = render(failStyle, "FAIL")
		}
		_, err := fmt.Fprintf(w, "  %s %s  %s  %s\n",
			mark,
			runewidth.FillLeft(row[0], widths[0]),
			runewidth.FillRight(row[1], widths[1]),
			row[2])
		if err != nil {
			return err
		}
	}
	return nil
}
