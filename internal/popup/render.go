package popup

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/geom"
)

// ErrorColor is the label colour of a failed lookup.
var ErrorColor = lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FF2222"}

// Styles hold the lipgloss styles used to draw surfaces.
type Styles struct {
	Border lipgloss.Style
	Body   lipgloss.Style
	Label  lipgloss.Style
	Error  lipgloss.Style
	Pin    lipgloss.Style
	Close  lipgloss.Style
	Shadow lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
		Body:   lipgloss.NewStyle(),
		Label:  lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"}),
		Error:  lipgloss.NewStyle().Foreground(ErrorColor),
		Pin:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		Close:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Shadow: lipgloss.NewStyle().Background(lipgloss.Color("236")),
	}
}

// Render draws every shown surface over frame, bottom to top. Lines beyond
// the frame are added when a box hangs below it and the screen is unknown.
func (h *Host) Render(frame string) string {
	if len(h.order) == 0 {
		return frame
	}
	lines := strings.Split(frame, "\n")
	for _, handle := range h.order {
		s := h.surfaces[handle]
		if s == nil || !s.shown {
			continue
		}
		if s.cfg.Shadow {
			lines = h.drawShadow(lines, s.box)
		}
		lines = Composite(lines, h.renderSurface(s), s.box.X, s.box.Y)
	}
	if h.screen.Height > 0 && len(lines) > h.screen.Height {
		lines = lines[:h.screen.Height]
	}
	return strings.Join(lines, "\n")
}

func (h *Host) drawShadow(lines []string, box geom.Rect) []string {
	if h.shadow.Right > 0 {
		column := make([]string, box.Height)
		for i := range column {
			column[i] = h.styles.Shadow.Render(strings.Repeat(" ", h.shadow.Right))
		}
		lines = Composite(lines, column, box.Right(), box.Y+h.shadow.Top)
	}
	if h.shadow.Bottom > 0 {
		row := h.styles.Shadow.Render(strings.Repeat(" ", box.Width))
		rows := make([]string, h.shadow.Bottom)
		for i := range rows {
			rows[i] = row
		}
		lines = Composite(lines, rows, box.X+h.shadow.Right, box.Bottom())
	}
	return lines
}

func (h *Host) renderSurface(s *surface) []string {
	o := s.overlay
	size := o.ContentSize()
	in := s.cfg.BorderInsets
	border := lipgloss.RoundedBorder()
	width := s.box.Width
	if width < 2 {
		width = 2
	}

	padLeft := strings.Repeat(" ", maxInt(in.Left-1, 0))
	padRight := strings.Repeat(" ", maxInt(in.Right-1, 0))
	blank := strings.Repeat(" ", maxInt(width-2, 0))

	rows := make([]string, 0, s.box.Height)
	top := border.TopLeft + strings.Repeat(border.Top, maxInt(width-2, 0)) + border.TopRight
	if s.cfg.CloseButtonEnabled && width >= 4 {
		top = border.TopLeft + strings.Repeat(border.Top, width-3)
		rows = append(rows, h.styles.Border.Render(top)+h.styles.Close.Render("x")+h.styles.Border.Render(border.TopRight))
	} else {
		rows = append(rows, h.styles.Border.Render(top))
	}
	side := func(content string) string {
		return h.styles.Border.Render(border.Left) + content + h.styles.Border.Render(border.Right)
	}
	for i := 1; i < in.Top; i++ {
		rows = append(rows, side(blank))
	}

	style := h.styles.Body
	if v := o.Visual(); v != nil && v.Kind == balloon.VisualLabel {
		style = h.styles.Label
		if v.Error {
			style = h.styles.Error
		}
	}
	body := o.Body()
	for i := 0; i < size.Height; i++ {
		line := ""
		if i < len(body) {
			line = body[i]
		}
		rows = append(rows, side(padLeft+style.Render(fitCells(line, size.Width))+padRight))
	}

	for i := 1; i < in.Bottom; i++ {
		rows = append(rows, side(blank))
	}
	bottom := border.BottomLeft + strings.Repeat(border.Bottom, maxInt(width-2, 0)) + border.BottomRight
	rows = append(rows, h.styles.Border.Render(bottom))

	if pin := o.Pin(); pin.Visible {
		local := pin.Bounds.Translate(-s.box.X, -s.box.Y)
		if local.Y >= 0 && local.Y < len(rows) {
			rows = Composite(rows, []string{h.styles.Pin.Render(pin.Glyph)}, local.X, local.Y)
		}
	}
	return rows
}

// fitCells pads or clips s to exactly width printable cells.
func fitCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := ansi.PrintableRuneWidth(s)
	if w > width {
		s = truncate.String(s, uint(width))
		w = ansi.PrintableRuneWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
