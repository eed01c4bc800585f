package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/csheth/peek/internal/geom"
)

func TestPageLayoutPanel(t *testing.T) {
	l := newPageLayout()
	assert.Equal(t, 80, l.bodyWidth)
	assert.Equal(t, 22, l.bodyHeight)

	l.Update(100, 30, true)
	assert.Equal(t, pinnedWidth, l.panelWidth)
	assert.Equal(t, 100-pinnedWidth, l.bodyWidth)
	assert.Equal(t, 28, l.bodyHeight)

	l.Update(40, 30, true)
	assert.Zero(t, l.panelWidth, "narrow windows drop the panel")
	assert.Equal(t, 40, l.bodyWidth)

	l.Update(10, 2, false)
	assert.Equal(t, minBodyWidth, l.bodyWidth)
	assert.Equal(t, minBodyHeight, l.bodyHeight)
}

func TestPageLayoutCoordinates(t *testing.T) {
	l := newPageLayout()
	assert.Equal(t, geom.Point{X: 3, Y: 1}, l.toScreen(5, 3, 5))

	line, col, ok := l.toDocument(geom.Point{X: 3, Y: 1}, 5)
	assert.True(t, ok)
	assert.Equal(t, 5, line)
	assert.Equal(t, 3, col)

	_, _, ok = l.toDocument(geom.Point{X: 3, Y: 0}, 5)
	assert.False(t, ok)
	_, _, ok = l.toDocument(geom.Point{X: 3, Y: 23}, 5)
	assert.False(t, ok)
}
