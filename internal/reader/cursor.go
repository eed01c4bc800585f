package reader

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/csheth/peek/internal/document"
)

// handleMotion applies a cursor key. It reports whether the key was a
// motion.
func (m *model) handleMotion(msg tea.KeyMsg) bool {
	if len(m.lines) == 0 {
		return false
	}
	c := &m.cursor
	switch {
	case key.Matches(msg, m.keys.Up):
		c.Line--
	case key.Matches(msg, m.keys.Down):
		c.Line++
	case key.Matches(msg, m.keys.Left):
		c.Col = prevCell(m.lines[c.Line], c.Col)
	case key.Matches(msg, m.keys.Right):
		c.Col = nextCell(m.lines[c.Line], c.Col)
	case key.Matches(msg, m.keys.NextWord):
		m.nextWord()
	case key.Matches(msg, m.keys.PrevWord):
		m.prevWord()
	case key.Matches(msg, m.keys.LineStart):
		c.Col = 0
	case key.Matches(msg, m.keys.LineEnd):
		c.Col = lastCell(m.lines[c.Line])
	case key.Matches(msg, m.keys.Top):
		*c = document.Position{}
	case key.Matches(msg, m.keys.Bottom):
		*c = document.Position{Line: len(m.lines) - 1}
	case key.Matches(msg, m.keys.HalfDown):
		c.Line += max(m.layout.bodyHeight/2, 1)
	case key.Matches(msg, m.keys.HalfUp):
		c.Line -= max(m.layout.bodyHeight/2, 1)
	default:
		return false
	}
	return true
}

func (m *model) nextWord() {
	c := &m.cursor
	if col, ok := document.NextWord(m.lines[c.Line], c.Col); ok {
		c.Col = col
		return
	}
	for line := c.Line + 1; line < len(m.lines); line++ {
		if col, ok := document.NextWord(m.lines[line], -1); ok {
			*c = document.Position{Line: line, Col: col}
			return
		}
	}
}

func (m *model) prevWord() {
	c := &m.cursor
	if col, ok := document.PrevWord(m.lines[c.Line], c.Col); ok {
		c.Col = col
		return
	}
	for line := c.Line - 1; line >= 0; line-- {
		if col, ok := document.PrevWord(m.lines[line], document.Width(m.lines[line])+1); ok {
			*c = document.Position{Line: line, Col: col}
			return
		}
	}
}

// afterCursorMove keeps the cursor on the text and in view.
func (m *model) afterCursorMove() {
	m.clampCursor()
	m.ensureVisible()
	if m.selecting {
		m.selection.Cursor = m.cursor
	}
}

func (m *model) clampCursor() {
	if len(m.lines) == 0 {
		m.cursor = document.Position{}
		return
	}
	if m.cursor.Line < 0 {
		m.cursor.Line = 0
	}
	if m.cursor.Line >= len(m.lines) {
		m.cursor.Line = len(m.lines) - 1
	}
	m.cursor.Col = snapCell(m.lines[m.cursor.Line], m.cursor.Col)
}

func (m *model) ensureVisible() {
	height := m.layout.bodyHeight
	if m.cursor.Line < m.top {
		m.top = m.cursor.Line
	}
	if m.cursor.Line >= m.top+height {
		m.top = m.cursor.Line - height + 1
	}
	m.clampTop()
}

func (m *model) clampTop() {
	maxTop := len(m.lines) - m.layout.bodyHeight
	if maxTop < 0 {
		maxTop = 0
	}
	if m.top > maxTop {
		m.top = maxTop
	}
	if m.top < 0 {
		m.top = 0
	}
}

// scrollBody moves the view and drags the cursor along when it would leave
// the screen.
func (m *model) scrollBody(delta int) {
	if len(m.lines) == 0 {
		return
	}
	before := m.top
	m.top += delta
	m.clampTop()
	if m.top == before {
		return
	}
	m.dismissBalloon()
	if m.cursor.Line < m.top {
		m.cursor.Line = m.top
	}
	if last := m.top + m.layout.bodyHeight - 1; m.cursor.Line > last {
		m.cursor.Line = last
	}
	m.afterCursorMove()
}

// cellStarts lists the column where each rune of line begins.
func cellStarts(line string) []int {
	starts := make([]int, 0, len(line))
	col := 0
	for _, r := range line {
		starts = append(starts, col)
		col += runewidth.RuneWidth(r)
	}
	return starts
}

// snapCell moves col onto the start of the rune covering it. Columns past
// the end land on the last rune.
func snapCell(line string, col int) int {
	if col <= 0 {
		return 0
	}
	starts := cellStarts(line)
	best := 0
	for _, s := range starts {
		if s > col {
			break
		}
		best = s
	}
	return best
}

func nextCell(line string, col int) int {
	for _, s := range cellStarts(line) {
		if s > col {
			return s
		}
	}
	return col
}

func prevCell(line string, col int) int {
	prev := 0
	for _, s := range cellStarts(line) {
		if s >= col {
			break
		}
		prev = s
	}
	return prev
}

func lastCell(line string) int {
	starts := cellStarts(line)
	if len(starts) == 0 {
		return 0
	}
	return starts[len(starts)-1]
}
