package tuitest

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Frame is one settled picture of the terminal.
type Frame struct {
	Index int
	// Plain holds the screen rows with trailing blanks and empty rows
	// removed.
	Plain string
}

// screen is a minimal VT100 model: enough cursor movement and erasing to
// replay what bubbletea's renderer writes.
type screen struct {
	width, height int
	cells         [][]rune
	x, y          int
	frames        []Frame
	dirty         bool
}

// wideTail marks the second cell of a double-width rune.
const wideTail = rune(-1)

func newScreen(width, height int) *screen {
	s := &screen{width: width, height: height}
	s.cells = make([][]rune, height)
	for i := range s.cells {
		s.cells[i] = blankRow(width)
	}
	return s
}

func blankRow(width int) []rune {
	row := make([]rune, width)
	for i := range row {
		row[i] = ' '
	}
	return row
}

// replay feeds raw through the screen and returns the frames seen. A frame
// is taken whenever the program starts a repaint and once at the end.
func replay(raw []byte, width, height int) []Frame {
	s := newScreen(width, height)
	text := []rune(string(raw))
	for i := 0; i < len(text); i++ {
		r := text[i]
		switch r {
		case '\x1b':
			end, params, final := sequenceEnd(text, i)
			if final != 0 {
				s.csi(params, final)
			}
			i = end
		case '\r':
			s.x = 0
		case '\n':
			s.lineFeed()
		case '\b':
			if s.x > 0 {
				s.x--
			}
		case '\t':
			s.x = min((s.x/8+1)*8, s.width-1)
		default:
			if r < ' ' {
				continue
			}
			s.put(r)
		}
	}
	s.snapshot()
	return s.frames
}

func (s *screen) put(r rune) {
	w := runewidth.RuneWidth(r)
	if w == 0 {
		return
	}
	if s.x+w > s.width {
		s.x = 0
		s.lineFeed()
	}
	s.cells[s.y][s.x] = r
	if w == 2 {
		s.cells[s.y][s.x+1] = wideTail
	}
	s.x += w
	s.dirty = true
}

func (s *screen) lineFeed() {
	if s.y < s.height-1 {
		s.y++
		return
	}
	copy(s.cells, s.cells[1:])
	s.cells[s.height-1] = blankRow(s.width)
}

// sequenceEnd returns the index of the last rune of the escape sequence
// starting at text[i]. For CSI sequences it also returns the parameters and
// the final rune; final is zero otherwise.
func sequenceEnd(text []rune, i int) (end int, params string, final rune) {
	if i+1 >= len(text) {
		return i, "", 0
	}
	switch text[i+1] {
	case '[':
		j := i + 2
		for j < len(text) && (text[j] < 0x40 || text[j] > 0x7e) {
			j++
		}
		if j >= len(text) {
			return len(text) - 1, "", 0
		}
		return j, string(text[i+2 : j]), text[j]
	case ']':
		for j := i + 2; j < len(text); j++ {
			if text[j] == '\a' {
				return j, "", 0
			}
			if text[j] == '\x1b' && j+1 < len(text) && text[j+1] == '\\' {
				return j + 1, "", 0
			}
		}
		return len(text) - 1, "", 0
	default:
		return i + 1, "", 0
	}
}

func (s *screen) csi(params string, final rune) {
	if strings.HasPrefix(params, "?") || strings.HasPrefix(params, ">") {
		return
	}
	args := parseParams(params)
	n := func(idx, def int) int {
		if idx < len(args) && args[idx] > 0 {
			return args[idx]
		}
		return def
	}
	switch final {
	case 'A':
		s.snapshot()
		s.y = max(s.y-n(0, 1), 0)
	case 'B':
		s.y = min(s.y+n(0, 1), s.height-1)
	case 'C':
		s.x = min(s.x+n(0, 1), s.width-1)
	case 'D':
		s.x = max(s.x-n(0, 1), 0)
	case 'G':
		s.x = clamp(n(0, 1)-1, 0, s.width-1)
	case 'H', 'f':
		s.snapshot()
		s.y = clamp(n(0, 1)-1, 0, s.height-1)
		s.x = clamp(n(1, 1)-1, 0, s.width-1)
	case 'J':
		s.snapshot()
		s.eraseDisplay(n(0, 0))
	case 'K':
		s.eraseLine(n(0, 0))
	}
}

func (s *screen) eraseDisplay(mode int) {
	switch mode {
	case 2, 3:
		for i := range s.cells {
			s.cells[i] = blankRow(s.width)
		}
	default:
		s.eraseLine(0)
		for i := s.y + 1; i < s.height; i++ {
			s.cells[i] = blankRow(s.width)
		}
	}
	s.dirty = true
}

func (s *screen) eraseLine(mode int) {
	row := s.cells[s.y]
	from, to := s.x, s.width
	switch mode {
	case 1:
		from, to = 0, s.x+1
	case 2:
		from = 0
	}
	for i := from; i < to && i < s.width; i++ {
		row[i] = ' '
	}
	s.dirty = true
}

// snapshot records the screen if anything changed since the last frame.
func (s *screen) snapshot() {
	if !s.dirty {
		return
	}
	s.dirty = false
	plain := s.plain()
	if strings.TrimSpace(plain) == "" {
		return
	}
	if n := len(s.frames); n > 0 && s.frames[n-1].Plain == plain {
		return
	}
	s.frames = append(s.frames, Frame{Index: len(s.frames), Plain: plain})
}

func (s *screen) plain() string {
	rows := make([]string, len(s.cells))
	for i, row := range s.cells {
		var b strings.Builder
		for _, r := range row {
			if r != wideTail {
				b.WriteRune(r)
			}
		}
		rows[i] = strings.TrimRight(b.String(), " ")
	}
	for len(rows) > 0 && rows[len(rows)-1] == "" {
		rows = rows[:len(rows)-1]
	}
	return strings.Join(rows, "\n")
}

func parseParams(params string) []int {
	if params == "" {
		return nil
	}
	parts := strings.Split(params, ";")
	out := make([]int, len(parts))
	for i, p := range parts {
		out[i], _ = strconv.Atoi(p)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// FinalFrame returns the last captured frame. The second return value is false
// when no frames were recorded.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// Text returns everything the program printed with escape sequences removed.
// Unlike the frames it keeps text that was later overwritten.
func (r *Recording) Text() string {
	if r == nil {
		return ""
	}
	return stripANSI(string(r.Raw))
}

func stripANSI(s string) string {
	var b strings.Builder
	text := []rune(s)
	for i := 0; i < len(text); i++ {
		switch r := text[i]; {
		case r == '\x1b':
			i, _, _ = sequenceEnd(text, i)
		case r == '\r', r == '\x0e', r == '\x0f':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
