// Package preview renders the dry-run summary shown before anything is
// written.
package preview

import (
	"fmt"
	"strings"

	"modsplit/internal/render"
	"modsplit/internal/report"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#2C4A54")
)

var styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Over    lipgloss.Style
	Warning lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Header:  lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colorMuted),
	Over:    lipgloss.NewStyle().Foreground(colorError).Bold(true),
	Warning: lipgloss.NewStyle().Foreground(colorWarning),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1),
}

// Summary is what one file split into.
type Summary struct {
	Source   string
	OutDir   string
	Files    []render.File
	Warnings []report.Warning
	MaxLines int
}

// Render draws the unit table followed by the warnings, boxed.
func Render(s Summary) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(s.Source))
	if s.OutDir != "" {
		b.WriteString(styles.Muted.Render(" -> " + s.OutDir))
	}
	b.WriteString("\n\n")
	b.WriteString(table(s.Files, s.MaxLines))

	if len(s.Warnings) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.Header.Render(fmt.Sprintf("%d warning(s)", len(s.Warnings))))
		for _, w := range s.Warnings {
			b.WriteString("\n")
			b.WriteString(styles.Warning.Render("⚠ " + w.String()))
		}
	}
	return styles.Box.Render(b.String())
}

func table(files []render.File, maxLines int) string {
	pathWidth := len("FILE")
	for _, f := range files {
		if w := lipgloss.Width(f.Path); w > pathWidth {
			pathWidth = w
		}
	}
	col := lipgloss.NewStyle().Width(pathWidth + 2)
	num := lipgloss.NewStyle().Width(7).Align(lipgloss.Right)

	rows := []string{
		styles.Header.Render(col.Render("FILE") + num.Render("LINES")),
	}
	total := 0
	for _, f := range files {
		n := f.Lines()
		total += n
		count := num.Render(fmt.Sprint(n))
		if maxLines > 0 && n > maxLines {
			count = styles.Over.Render(count)
		}
		rows = append(rows, col.Render(f.Path)+count)
	}
	rows = append(rows, styles.Muted.Render(col.Render(fmt.Sprintf("%d file(s)", len(files)))+num.Render(fmt.Sprint(total))))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
