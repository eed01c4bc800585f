package reader

import "github.com/csheth/peek/internal/geom"

const (
	headerHeight    = 1
	statusHeight    = 1
	minBodyWidth    = 20
	minBodyHeight   = 3
	pinnedWidth     = 34
	minPinnedScreen = minBodyWidth + pinnedWidth
)

type pageLayout struct {
	windowWidth  int
	windowHeight int
	bodyWidth    int
	bodyHeight   int
	panelWidth   int
}

func newPageLayout() pageLayout {
	l := pageLayout{}
	l.Update(80, 24, false)
	return l
}

// Update recomputes the regions for a window size. The pinned panel only
// takes room when the window is wide enough for it and the body.
func (l *pageLayout) Update(width, height int, panel bool) {
	l.windowWidth = width
	l.windowHeight = height
	l.panelWidth = 0
	if panel && width >= minPinnedScreen {
		l.panelWidth = pinnedWidth
	}
	l.bodyWidth = width - l.panelWidth
	if l.bodyWidth < minBodyWidth {
		l.bodyWidth = minBodyWidth
	}
	l.bodyHeight = height - headerHeight - statusHeight
	if l.bodyHeight < minBodyHeight {
		l.bodyHeight = minBodyHeight
	}
}

// body is the document region in screen cells.
func (l pageLayout) body() geom.Rect {
	return geom.R(0, headerHeight, l.bodyWidth, l.bodyHeight)
}

// toScreen maps a wrapped document position to a screen cell given the first
// visible line.
func (l pageLayout) toScreen(line, col, top int) geom.Point {
	return geom.Point{X: col, Y: headerHeight + line - top}
}

// toDocument maps a screen cell back to a document position. ok is false
// outside the body.
func (l pageLayout) toDocument(p geom.Point, top int) (line, col int, ok bool) {
	if !l.body().Contains(p) {
		return 0, 0, false
	}
	return top + p.Y - headerHeight, p.X, true
}
