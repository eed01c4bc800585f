package document

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
)

// Position is a cell column on a wrapped line.
type Position struct {
	Line int
	Col  int
}

// Before reports whether p comes earlier in reading order than q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Col < q.Col
}

// Span is a word found on a line. Start and End are cell columns, End
// exclusive.
type Span struct {
	Text  string
	Start int
	End   int
}

type runeClass int

const (
	classOther runeClass = iota
	classWord
	classIdeograph
)

func classify(r rune) runeClass {
	switch {
	case unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul):
		return classIdeograph
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		return classWord
	case r == '\'' || r == '’' || r == '-' || r == '_':
		return classWord
	default:
		return classOther
	}
}

type cell struct {
	r     rune
	start int
	width int
}

func cells(line string) []cell {
	out := make([]cell, 0, len(line))
	col := 0
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		out = append(out, cell{r: r, start: col, width: w})
		col += w
	}
	return out
}

// WordAt returns the word covering cell column col of line. Latin words run
// over letters, digits, apostrophes and hyphens; CJK text forms runs of its
// own. ok is false when col sits on whitespace or punctuation.
func WordAt(line string, col int) (Span, bool) {
	cs := cells(line)
	idx := -1
	for i, c := range cs {
		if col >= c.start && col < c.start+max(c.width, 1) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Span{}, false
	}
	class := classify(cs[idx].r)
	if class == classOther {
		return Span{}, false
	}

	from, to := idx, idx
	for from > 0 && classify(cs[from-1].r) == class {
		from--
	}
	for to+1 < len(cs) && classify(cs[to+1].r) == class {
		to++
	}
	// Hyphens and apostrophes only join letters.
	for from < to && isJoiner(cs[from].r) {
		from++
	}
	for to > from && isJoiner(cs[to].r) {
		to--
	}
	if isJoiner(cs[from].r) {
		return Span{}, false
	}

	var b strings.Builder
	for _, c := range cs[from : to+1] {
		b.WriteRune(c.r)
	}
	return Span{
		Text:  b.String(),
		Start: cs[from].start,
		End:   cs[to].start + cs[to].width,
	}, true
}

func isJoiner(r rune) bool {
	return r == '\'' || r == '’' || r == '-' || r == '_'
}

// NextWord returns the start column of the first word after col on line.
func NextWord(line string, col int) (int, bool) {
	cur, onWord := WordAt(line, col)
	for _, c := range cells(line) {
		if c.start <= col || (onWord && c.start < cur.End) {
			continue
		}
		if span, ok := WordAt(line, c.start); ok && span.Start == c.start {
			return c.start, true
		}
	}
	return 0, false
}

// PrevWord returns the start column of the word before col on line.
func PrevWord(line string, col int) (int, bool) {
	cs := cells(line)
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		if c.start >= col {
			continue
		}
		if span, ok := WordAt(line, c.start); ok && span.Start < col {
			return span.Start, true
		}
	}
	return 0, false
}

// Selection covers text between an anchor and the cursor, inclusive of the
// cell under the later end.
type Selection struct {
	Anchor Position
	Cursor Position
}

// Bounds returns the selection ends in reading order.
func (s Selection) Bounds() (Position, Position) {
	if s.Cursor.Before(s.Anchor) {
		return s.Cursor, s.Anchor
	}
	return s.Anchor, s.Cursor
}

// Contains reports whether p lies inside the selection.
func (s Selection) Contains(p Position) bool {
	from, to := s.Bounds()
	return !p.Before(from) && !to.Before(p)
}

// Text extracts the selected text from lines. Wrapped lines are joined with
// a single space.
func (s Selection) Text(lines []string) string {
	from, to := s.Bounds()
	if from.Line < 0 {
		from = Position{}
	}
	parts := make([]string, 0, to.Line-from.Line+1)
	for line := from.Line; line <= to.Line && line < len(lines); line++ {
		startCol, endCol := 0, -1
		if line == from.Line {
			startCol = from.Col
		}
		if line == to.Line {
			endCol = to.Col
		}
		parts = append(parts, sliceCells(lines[line], startCol, endCol))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// sliceCells returns the runes whose cells overlap [from, to]. A negative to
// means the end of the line.
func sliceCells(line string, from, to int) string {
	var b strings.Builder
	for _, c := range cells(line) {
		end := c.start + max(c.width, 1) - 1
		if end < from {
			continue
		}
		if to >= 0 && c.start > to {
			break
		}
		b.WriteRune(c.r)
	}
	return b.String()
}

// Width is the printable width of line in cells.
func Width(line string) int {
	return runewidth.StringWidth(line)
}
