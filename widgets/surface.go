package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"go-sonify/theme"
)

// RenderPad renders a single colored cell
func RenderPad(c colorful.Color, sym rune) string {
	style := lipgloss.NewStyle().Foreground(theme.Cell(c))
	return style.Render(string(sym))
}

// RenderGrid renders binned surface colors, row 0 at the top, with spacing
// like a pad controller.
func RenderGrid(grid [][]colorful.Color, sym rune) string {
	var lines []string
	for _, row := range grid {
		var line strings.Builder
		for col, c := range row {
			if col > 0 {
				line.WriteString(" ")
			}
			line.WriteString(RenderPad(c, sym))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderField renders a w x h character field by asking at for the color
// under each character center, in normalized coordinates. Characters with
// nothing under them are blank. Runs of one color share a style.
func RenderField(w, h int, sym rune, at func(x, y float64) (colorful.Color, bool)) string {
	lines := make([]string, 0, h)
	for cy := 0; cy < h; cy++ {
		var line strings.Builder
		var run []rune
		var runColor colorful.Color
		var runLit bool
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runLit {
				line.WriteString(lipgloss.NewStyle().Foreground(theme.Cell(runColor)).Render(string(run)))
			} else {
				line.WriteString(string(run))
			}
			run = run[:0]
		}
		for cx := 0; cx < w; cx++ {
			c, ok := at((float64(cx)+0.5)/float64(w), (float64(cy)+0.5)/float64(h))
			if len(run) > 0 && (ok != runLit || (ok && c != runColor)) {
				flush()
			}
			runColor, runLit = c, ok
			if ok {
				run = append(run, sym)
			} else {
				run = append(run, ' ')
			}
		}
		flush()
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

// RenderToggle renders "● name" or "○ name"
func RenderToggle(t *theme.Theme, name string, on bool) string {
	if on {
		return lipgloss.NewStyle().Foreground(t.Success()).Render(fmt.Sprintf("%c %s", t.Symbols.On, name))
	}
	return lipgloss.NewStyle().Foreground(t.Muted()).Render(fmt.Sprintf("%c %s", t.Symbols.Off, name))
}
