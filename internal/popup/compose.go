package popup

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const resetSeq = "\x1b[0m"

// Composite writes fg over base with its top-left corner at cell (x, y).
// Rows are added to base when fg reaches past its end; rows and columns
// before the origin are clipped.
func Composite(base []string, fg []string, x, y int) []string {
	out := append([]string(nil), base...)
	for i, line := range fg {
		row := y + i
		if row < 0 {
			continue
		}
		for len(out) <= row {
			out = append(out, "")
		}
		out[row] = overlayLine(out[row], line, x)
	}
	return out
}

func overlayLine(base, fg string, x int) string {
	if x < 0 {
		fg = skipCells(fg, -x)
		x = 0
	}
	fgWidth := ansi.PrintableRuneWidth(fg)
	if fgWidth == 0 {
		return base
	}
	left := truncate.String(base, uint(x))
	if w := ansi.PrintableRuneWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	right := skipCells(base, x+fgWidth)
	return left + resetSeq + fg + resetSeq + right
}

// skipCells drops the first n printable cells of s. Escape sequences met on
// the way are kept so styling resumes after the cut, and a wide rune split by
// the cut becomes padding.
func skipCells(s string, n int) string {
	if n <= 0 {
		return s
	}
	var seqs strings.Builder
	inSeq := false
	skipped := 0
	for i, r := range s {
		if r == ansi.Marker {
			inSeq = true
			seqs.WriteRune(r)
			continue
		}
		if inSeq {
			seqs.WriteRune(r)
			if ansi.IsTerminator(r) {
				inSeq = false
			}
			continue
		}
		if skipped >= n {
			return seqs.String() + s[i:]
		}
		skipped += runewidth.RuneWidth(r)
		if skipped > n {
			return seqs.String() + strings.Repeat(" ", skipped-n) + s[i+utf8.RuneLen(r):]
		}
	}
	return ""
}
