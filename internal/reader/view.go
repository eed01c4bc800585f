package reader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/document"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	helperStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	sectionStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	cursorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	selectionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#bde0fe"))
	modeStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	badgeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	panelStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e"))
	helpBoxStyle     = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	pinnedMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	translationStyle = lipgloss.NewStyle().Bold(true)
	phoneticStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("147")).Italic(true)
	footnoteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	emptyLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func (m *model) View() string {
	parts := []string{m.headerView(), m.mainView(), m.statusView()}
	return m.host.Render(strings.Join(parts, "\n"))
}

func (m *model) headerView() string {
	title := "peek"
	if m.doc != nil {
		title = m.doc.Title
	}
	line := titleStyle.Render(title)
	if c := m.config.Client; c != nil {
		line += helperStyle.Render(fmt.Sprintf("  %s → %s", c.Name(), c.Target()))
	}
	return fitLine(line, m.layout.windowWidth)
}

func (m *model) mainView() string {
	body := m.bodyView()
	if m.layout.panelWidth == 0 {
		return body
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, body, m.panelView())
}

func (m *model) bodyView() string {
	width, height := m.layout.bodyWidth, m.layout.bodyHeight
	if m.helpVisible {
		box := helpBoxStyle.Render(m.help.FullHelpView(m.keys.FullHelp()))
		return padBlock(box, width, height)
	}

	rows := make([]string, 0, height)
	for i := 0; i < height; i++ {
		idx := m.top + i
		switch {
		case m.doc == nil && i == 0 && m.stage == stageLoading:
			rows = append(rows, fitLine(m.spinner.View()+" loading…", width))
		case m.doc == nil || idx >= len(m.lines):
			rows = append(rows, fitLine(emptyLineStyle.Render("~"), width))
		default:
			rows = append(rows, m.renderLine(idx, width))
		}
	}
	return strings.Join(rows, "\n")
}

// renderLine styles the cursor cell and any selected cells of line idx and
// pads it to width.
func (m *model) renderLine(idx, width int) string {
	raw := m.lines[idx]
	var b strings.Builder
	col := 0
	var run strings.Builder
	runStyle := -1
	flush := func() {
		if run.Len() == 0 {
			return
		}
		switch runStyle {
		case 1:
			b.WriteString(selectionStyle.Render(run.String()))
		case 2:
			b.WriteString(cursorStyle.Render(run.String()))
		default:
			b.WriteString(run.String())
		}
		run.Reset()
	}
	for _, r := range raw {
		style := 0
		pos := document.Position{Line: idx, Col: col}
		if m.selecting && m.selection.Contains(pos) {
			style = 1
		}
		if idx == m.cursor.Line && col == m.cursor.Col {
			style = 2
		}
		if style != runStyle {
			flush()
			runStyle = style
		}
		run.WriteRune(r)
		col += runewidth.RuneWidth(r)
	}
	flush()
	if idx == m.cursor.Line && m.cursor.Col >= col {
		b.WriteString(cursorStyle.Render(" "))
		col++
	}
	return fitLine(b.String(), width)
}

func (m *model) panelView() string {
	m.refreshPanel()
	return panelStyle.
		Width(m.layout.panelWidth - 2).
		Height(m.layout.bodyHeight - 2).
		Render(m.panel.View())
}

// refreshPanel rebuilds the pinned panel from the history store.
func (m *model) refreshPanel() {
	width := pinnedWidth - 4
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Pinned"))
	b.WriteRune('\n')

	entries := m.panelEntries()
	if len(entries) == 0 {
		b.WriteString(helperStyle.Render(wordwrap.String("Pin a result with p or the [*] button.", width)))
		m.panel.SetContent(b.String())
		return
	}
	for i, entry := range entries {
		mark := "  "
		if entry.Pinned {
			mark = pinnedMarkStyle.Render("★ ")
		}
		b.WriteString(mark + truncate.StringWithTail(entry.Query, uint(width), "…"))
		b.WriteRune('\n')
		if entry.Translation != "" {
			for _, line := range wrapCells(entry.Translation, width) {
				b.WriteString("  " + helperStyle.Render(line))
				b.WriteRune('\n')
			}
		}
		if i < len(entries)-1 {
			b.WriteRune('\n')
		}
	}
	m.panel.SetContent(b.String())
}

// panelEntries lists pinned lookups first, then the rest, newest first
// within each group.
func (m *model) panelEntries() []historyRow {
	if m.config.History == nil {
		if m.lastEntry == nil {
			return nil
		}
		return []historyRow{{Query: m.lastEntry.Query, Translation: m.lastEntry.Translation, Pinned: m.lastEntry.Pinned}}
	}
	entries := m.config.History.Entries()
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, historyRow{Query: e.Query, Translation: e.Translation, Pinned: e.Pinned})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Pinned && !rows[j].Pinned })
	return rows
}

type historyRow struct {
	Query       string
	Translation string
	Pinned      bool
}

func (m *model) statusView() string {
	width := m.layout.windowWidth
	if m.stage == stagePrompt {
		return fitLine(m.prompt.View(), width)
	}

	mode := "READ"
	switch {
	case m.stage == stageLoading:
		mode = "LOAD"
	case m.selecting:
		mode = "SELECT"
	}
	parts := []string{modeStyle.Render(mode)}
	if m.doc != nil {
		parts = append(parts, helperStyle.Render(fmt.Sprintf("%d:%d", m.cursor.Line+1, m.cursor.Col+1)))
	}
	for _, badge := range m.jobBadges() {
		parts = append(parts, badgeStyle.Render(badge))
	}

	message := m.infoMessage
	loading := m.balloonActive() && m.balloon.State() == balloon.StateLoading
	if loading || m.stage == stageLoading {
		message = m.spinner.View() + " " + message
	}
	switch {
	case m.errorMessage != "":
		parts = append(parts, errorStyle.Render(m.errorMessage))
	case message != "":
		parts = append(parts, helperStyle.Render(message))
	}
	parts = append(parts, helperStyle.Render("? help"))
	return fitLine(strings.Join(parts, " "), width)
}

func (m *model) jobBadges() []string {
	counts := map[jobKind]int{}
	for _, j := range m.running {
		counts[j.kind]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	badges := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		badge := kind
		if n := counts[jobKind(kind)]; n > 1 {
			badge = fmt.Sprintf("%s×%d", kind, n)
		}
		badges = append(badges, badge)
	}
	return badges
}

// fitLine clips or pads an ANSI styled line to exactly width cells.
func fitLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) > width {
		s = truncate.String(s, uint(width))
	}
	if pad := width - lipgloss.Width(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func padBlock(block string, width, height int) string {
	lines := strings.Split(block, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		lines[i] = fitLine(line, width)
	}
	return strings.Join(lines, "\n")
}
