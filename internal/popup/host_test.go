package popup

import (
	"context"
	"regexp"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/geom"
)

var csi = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

func plain(s string) string { return csi.ReplaceAllString(s, "") }

type lines []string

func (l lines) Lines(width int) []string { return l }

func backend(result balloon.Result) balloon.Querier {
	return balloon.QuerierFunc(func(ctx context.Context, text string) (balloon.Result, error) {
		return result, nil
	})
}

func drive(c *balloon.Controller, cmd tea.Cmd) {
	for cmd != nil {
		cmd = c.Update(cmd())
	}
}

func blankFrame(width, height int) string {
	rows := make([]string, height)
	for i := range rows {
		rows[i] = strings.Repeat(".", width)
	}
	return strings.Join(rows, "\n")
}

func TestPlaceWithoutScreenKeepsPreferredSide(t *testing.T) {
	box := geom.Size{Width: 32, Height: 7}
	assert.Equal(t, geom.Point{X: 4, Y: 5}, Place(geom.Point{X: 20, Y: 4}, box, DefaultShadow, geom.Size{}, balloon.SideBelow, 0))
	assert.Equal(t, geom.Point{X: 4, Y: -4}, Place(geom.Point{X: 20, Y: 4}, box, DefaultShadow, geom.Size{}, balloon.SideAbove, 0))
}

func TestPlaceFlipsAndClamps(t *testing.T) {
	screen := geom.Size{Width: 80, Height: 24}
	box := geom.Size{Width: 32, Height: 7}
	cases := []struct {
		name   string
		anchor geom.Point
		side   balloon.Side
		want   geom.Point
	}{
		{name: "below fits", anchor: geom.Point{X: 40, Y: 2}, side: balloon.SideBelow, want: geom.Point{X: 24, Y: 3}},
		{name: "flip above near bottom", anchor: geom.Point{X: 20, Y: 20}, side: balloon.SideBelow, want: geom.Point{X: 4, Y: 12}},
		{name: "above preferred", anchor: geom.Point{X: 40, Y: 15}, side: balloon.SideAbove, want: geom.Point{X: 24, Y: 7}},
		{name: "clamp right edge", anchor: geom.Point{X: 78, Y: 2}, side: balloon.SideBelow, want: geom.Point{X: 47, Y: 3}},
		{name: "clamp left edge", anchor: geom.Point{X: 3, Y: 2}, side: balloon.SideBelow, want: geom.Point{X: 0, Y: 3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Place(tc.anchor, box, DefaultShadow, screen, tc.side, 0))
		})
	}
}

func TestPlaceNeitherSideFits(t *testing.T) {
	got := Place(geom.Point{X: 40, Y: 5}, geom.Size{Width: 32, Height: 7}, DefaultShadow, geom.Size{Width: 80, Height: 10}, balloon.SideBelow, 0)
	assert.Equal(t, geom.Point{X: 24, Y: 0}, got)
}

func TestHostRendersLoadingThenResult(t *testing.T) {
	host := NewHost(Options{})
	host.SetScreen(80, 24)
	c := balloon.NewController(balloon.Config{
		Host:    host,
		Backend: backend(lines{"你好"}),
		Anchor:  geom.Point{X: 10, Y: 3},
	})

	cmd := c.ShowAndQuery("hello")
	loading, _ := c.Handle()
	assert.Equal(t, geom.R(0, 4, 32, 3), host.Bounds(loading))

	frame := strings.Split(plain(host.Render(blankFrame(80, 24))), "\n")
	require.Len(t, frame, 24)
	assert.True(t, strings.HasPrefix(frame[4], "╭──"), frame[4])
	assert.Contains(t, frame[5], "Querying...")
	assert.NotContains(t, frame[4], "x╮", "loading balloon has no close button")

	drive(c, cmd)
	result, _ := c.Handle()
	require.NotEqual(t, loading, result)
	assert.True(t, host.IsDisposed(loading))
	assert.Equal(t, geom.R(0, 4, 32, 7), host.Bounds(result))

	pin := c.Overlay().Pin()
	assert.Equal(t, geom.R(28, 5, 3, 1), pin.Bounds)

	frame = strings.Split(plain(host.Render(blankFrame(80, 24))), "\n")
	assert.Contains(t, frame[4], "x╮")
	assert.Contains(t, frame[5], "你好")
	assert.Contains(t, frame[5], "[*]│")
	assert.NotContains(t, strings.Join(frame, "\n"), "Querying...")
	assert.True(t, strings.HasPrefix(frame[10], "╰"), frame[10])
}

func TestHostClickOutsideDismisses(t *testing.T) {
	host := NewHost(Options{})
	host.SetScreen(80, 24)
	c := balloon.NewController(balloon.Config{Host: host, Backend: backend(lines{"ok"}), Anchor: geom.Point{X: 10, Y: 3}})
	drive(c, c.ShowAndQuery("hello"))

	handle, _ := c.Handle()
	focused, ok := host.Focused()
	require.True(t, ok)
	assert.Equal(t, handle, focused)

	assert.Equal(t, ClickInside, host.Click(geom.Point{X: 5, Y: 6}))
	assert.False(t, c.Disposed())

	assert.Equal(t, ClickDismissedBlocked, host.Click(geom.Point{X: 70, Y: 20}))
	assert.True(t, c.Disposed())
	assert.False(t, host.Visible())
	assert.Equal(t, ClickPassed, host.Click(geom.Point{X: 70, Y: 20}))
}

func TestHostIgnoresUnknownHandles(t *testing.T) {
	host := NewHost(Options{})
	assert.True(t, host.IsDisposed(42))
	assert.NotPanics(t, func() {
		host.Hide(42, true)
		host.Revalidate(42)
		host.Show(42, geom.Point{}, balloon.SideBelow)
	})
	assert.Equal(t, geom.Rect{}, host.Bounds(42))
	assert.Equal(t, geom.Insets{}, host.ShadowInsets(42))
}

func TestHostCloseButton(t *testing.T) {
	host := NewHost(Options{})
	host.SetScreen(80, 24)
	c := balloon.NewController(balloon.Config{Host: host, Backend: backend(lines{"ok"}), Anchor: geom.Point{X: 10, Y: 3}})
	drive(c, c.ShowAndQuery("hello"))

	handle, _ := c.Handle()
	box := host.Bounds(handle)
	assert.True(t, host.Contains(geom.Point{X: box.X, Y: box.Y}))
	assert.False(t, host.Contains(geom.Point{X: 70, Y: 20}))

	assert.Equal(t, ClickClosed, host.Click(geom.Point{X: box.Right() - 2, Y: box.Y}))
	assert.True(t, c.Disposed())
}
