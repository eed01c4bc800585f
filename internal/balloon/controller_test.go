package balloon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csheth/peek/internal/geom"
)

type fakeSurface struct {
	overlay  *Overlay
	cfg      HostConfig
	bounds   geom.Rect
	disposed bool
}

// fakeHost places every surface directly below its anchor and records the
// calls it receives.
type fakeHost struct {
	next     Handle
	surfaces map[Handle]*fakeSurface
	calls    []string
	shadow   geom.Insets
	// settle shifts bounds on Revalidate to mimic the host moving the box
	// during its own layout pass.
	settle int
}

func newFakeHost() *fakeHost {
	return &fakeHost{surfaces: map[Handle]*fakeSurface{}, shadow: geom.Insets{Top: 1, Right: 1, Bottom: 1}}
}

func (h *fakeHost) CreateOverlay(content *Overlay, cfg HostConfig) Handle {
	h.next++
	h.surfaces[h.next] = &fakeSurface{overlay: content, cfg: cfg}
	h.calls = append(h.calls, fmt.Sprintf("create %d", h.next))
	return h.next
}

func (h *fakeHost) Show(handle Handle, anchor geom.Point, side Side) {
	s := h.surfaces[handle]
	size := s.overlay.ContentSize()
	s.bounds = geom.R(anchor.X-2, anchor.Y+1, size.Width+s.cfg.BorderInsets.Horizontal(), size.Height+s.cfg.BorderInsets.Vertical())
	h.calls = append(h.calls, fmt.Sprintf("show %d", handle))
}

func (h *fakeHost) Hide(handle Handle, animate bool) {
	if s, ok := h.surfaces[handle]; ok {
		s.disposed = true
	}
	h.calls = append(h.calls, fmt.Sprintf("hide %d", handle))
}

func (h *fakeHost) IsDisposed(handle Handle) bool {
	s, ok := h.surfaces[handle]
	return !ok || s.disposed
}

func (h *fakeHost) Revalidate(handle Handle) {
	s := h.surfaces[handle]
	size := s.overlay.ContentSize()
	s.bounds.Width = size.Width + s.cfg.BorderInsets.Horizontal()
	s.bounds.Height = size.Height + s.cfg.BorderInsets.Vertical()
	s.bounds.X += h.settle
	h.calls = append(h.calls, fmt.Sprintf("revalidate %d", handle))
}

func (h *fakeHost) Bounds(handle Handle) geom.Rect         { return h.surfaces[handle].bounds }
func (h *fakeHost) ShadowInsets(handle Handle) geom.Insets { return h.shadow }

type textResult []string

func (r textResult) Lines(width int) []string { return r }

type stubBackend struct {
	result Result
	err    error
	seen   []string
}

func (b *stubBackend) Query(ctx context.Context, text string) (Result, error) {
	b.seen = append(b.seen, text)
	return b.result, b.err
}

type recordingOpener struct {
	owner   any
	initial *string
	opened  int
}

func (o *recordingOpener) OpenPersistentView(owner any, initialQuery *string) tea.Cmd {
	o.owner = owner
	o.initial = initialQuery
	o.opened++
	return nil
}

type memoryRecorder struct {
	queries []string
}

func (r *memoryRecorder) Record(query string, result Result) {
	r.queries = append(r.queries, query)
}

func newTestController(t *testing.T, host *fakeHost, backend Querier) *Controller {
	t.Helper()
	return NewController(Config{
		Host:    host,
		Backend: backend,
		Anchor:  geom.Point{X: 20, Y: 4},
	})
}

// run executes a command and feeds the message back into the controller the
// way the program loop would, following any finalize message it produces.
func run(c *Controller, cmd tea.Cmd) {
	for cmd != nil {
		cmd = c.Update(cmd())
	}
}

func assertSingleVisual(t *testing.T, o *Overlay) {
	t.Helper()
	require.NotNil(t, o.Visual())
	switch o.State() {
	case StateLoading:
		assert.Equal(t, VisualLabel, o.Visual().Kind)
		assert.Equal(t, LoadingText, o.Visual().Text)
	case StateResult:
		assert.Equal(t, VisualResult, o.Visual().Kind)
		assert.Empty(t, o.Visual().Text)
	case StateError:
		assert.Equal(t, VisualLabel, o.Visual().Kind)
		assert.True(t, o.Visual().Error)
		assert.Empty(t, o.Visual().Lines)
	}
}

func TestShowAndQueryStartsLoading(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{result: textResult{"x"}})

	cmd := c.ShowAndQuery("hello")
	require.NotNil(t, cmd)

	o := c.Overlay()
	assert.Equal(t, StateLoading, o.State())
	assertSingleVisual(t, o)
	assert.Equal(t, DefaultLimits().MinWidth, o.ContentSize().Width)
	assert.False(t, o.Pin().Visible)

	surface := host.surfaces[1]
	assert.False(t, surface.cfg.CloseButtonEnabled)
	assert.True(t, surface.cfg.HideOnOutsideClick)
	assert.True(t, surface.cfg.Shadow)
	assert.True(t, surface.cfg.BlockClicksThrough)
	assert.True(t, surface.cfg.RequestFocus)
}

func TestLoadingToResultSequence(t *testing.T) {
	host := newFakeHost()
	backend := &stubBackend{result: textResult{"你好"}}
	recorder := &memoryRecorder{}
	c := NewController(Config{Host: host, Backend: backend, Recorder: recorder, Anchor: geom.Point{X: 20, Y: 4}})

	run(c, c.ShowAndQuery("hello"))

	assert.Equal(t, []string{"hello"}, backend.seen)
	assert.Equal(t, StateResult, c.State())
	assertSingleVisual(t, c.Overlay())
	assert.Equal(t, []string{"你好"}, c.Overlay().Visual().Lines)
	assert.True(t, host.IsDisposed(1), "loading surface should be disposed")
	assert.False(t, host.IsDisposed(2))
	assert.Equal(t, []string{"hello"}, recorder.queries)

	handle, shown := c.Handle()
	assert.True(t, shown)
	assert.Equal(t, Handle(2), handle)
	assert.Equal(t, []string{"create 1", "show 1", "hide 1", "create 2", "show 2", "revalidate 2"}, host.calls)
	assert.Equal(t, 1, c.Overlay().LayoutPasses())
}

func TestResultSizeStaysWithinLimits(t *testing.T) {
	limits := DefaultLimits()
	cases := []struct {
		name   string
		result textResult
	}{
		{name: "tiny", result: textResult{"a"}},
		{name: "wide", result: textResult{strings.Repeat("w", 200)}},
		{name: "tall", result: textResult(strings.Split(strings.Repeat("line\n", 120), "\n"))},
		{name: "medium", result: textResult{strings.Repeat("m", 40), "two", "three", "four", "five", "six"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := newFakeHost()
			c := newTestController(t, host, &stubBackend{result: tc.result})
			run(c, c.ShowAndQuery("q"))

			size := c.Overlay().ContentSize()
			assert.GreaterOrEqual(t, size.Width, limits.MinWidth)
			assert.LessOrEqual(t, size.Width, limits.MaxSize)
			assert.GreaterOrEqual(t, size.Height, limits.MinHeight)
			assert.LessOrEqual(t, size.Height, limits.MaxSize)
		})
	}
}

func TestOversizedResultScrollsInsteadOfGrowing(t *testing.T) {
	host := newFakeHost()
	lines := make(textResult, 80)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}
	c := newTestController(t, host, &stubBackend{result: lines})
	run(c, c.ShowAndQuery("q"))

	o := c.Overlay()
	require.True(t, o.Scrollable())
	assert.Equal(t, DefaultLimits().MaxSize, o.ContentSize().Height)
	assert.Equal(t, "line 0", o.Body()[0])

	assert.True(t, c.Scroll(5))
	assert.Equal(t, "line 5", o.Body()[0])
	assert.True(t, c.Scroll(1000))
	assert.Equal(t, "line 79", o.Body()[len(o.Body())-1])
	assert.False(t, c.Scroll(1))
	assert.True(t, c.Scroll(-1000))
	assert.Equal(t, 0, o.Visual().Scroll)
}

func TestFailedQueryShowsErrorText(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{err: errors.New("network timeout")})

	run(c, c.ShowAndQuery("hello"))

	o := c.Overlay()
	assert.Equal(t, StateError, o.State())
	assertSingleVisual(t, o)
	assert.Equal(t, "network timeout", o.Visual().Text)
	assert.True(t, o.Visual().Error)
	assert.False(t, host.IsDisposed(1), "error keeps the loading surface")
	assert.Contains(t, host.calls, "revalidate 1")
	assert.False(t, o.Pin().Visible)
}

func TestLongErrorWrapsWithinMaxSize(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{})
	c.ShowAndQuery("hello")

	text := strings.Repeat("x", 90)
	c.ShowError(text)

	o := c.Overlay()
	limit := DefaultLimits().MaxSize
	assert.Equal(t, geom.Size{Width: limit, Height: 2}, o.ContentSize())
	body := o.Body()
	require.Len(t, body, 2)
	for _, line := range body {
		assert.LessOrEqual(t, len(line), limit)
	}
	assert.Equal(t, text, strings.Join(body, ""))
}

func TestSecondShowAndQueryIsIgnored(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{result: textResult{"x"}})
	require.NotNil(t, c.ShowAndQuery("hello"))

	assert.Nil(t, c.ShowAndQuery("world"))
	assert.Len(t, host.surfaces, 1)
	assert.Equal(t, "hello", c.Overlay().Query())
	assert.Equal(t, StateLoading, c.State())
}

func TestShowErrorWithoutBalloonIsNoop(t *testing.T) {
	c := newTestController(t, newFakeHost(), &stubBackend{})
	assert.Nil(t, c.ShowError("boom"))
	assert.Nil(t, c.Overlay())
}

func TestTransitionsOnDisposedOverlayAreNoops(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{name: "result"},
		{name: "error", err: errors.New("late failure")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			host := newFakeHost()
			c := newTestController(t, host, &stubBackend{result: textResult{"late"}, err: tc.err})
			cmd := c.ShowAndQuery("hello")

			// The user clicks outside while the query is in flight.
			host.Hide(1, false)
			calls := len(host.calls)

			var follow tea.Cmd
			assert.NotPanics(t, func() { follow = c.Update(cmd()) })
			assert.Nil(t, follow)
			assert.Equal(t, StateLoading, c.State())
			assert.Equal(t, LoadingText, c.Overlay().Visual().Text)
			assert.Len(t, host.calls, calls, "no host work after dismissal")
		})
	}
}

func TestResultAndErrorAreTerminal(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{result: textResult{"first"}})
	run(c, c.ShowAndQuery("hello"))
	require.Equal(t, StateResult, c.State())

	assert.Nil(t, c.Update(QueryErrorMsg{ID: c.ID(), Query: "hello", Err: errors.New("late")}))
	assert.Nil(t, c.Update(QueryResultMsg{ID: c.ID(), Query: "hello", Result: textResult{"second"}}))
	assert.Equal(t, StateResult, c.State())
	assert.Equal(t, []string{"first"}, c.Overlay().Visual().Lines)
}

func TestMessagesForOtherControllersAreIgnored(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{})
	c.ShowAndQuery("hello")

	assert.Nil(t, c.Update(QueryResultMsg{ID: c.ID() + 100, Result: textResult{"x"}}))
	assert.Nil(t, c.Update(QueryErrorMsg{ID: c.ID() + 100, Err: errors.New("x")}))
	assert.Equal(t, StateLoading, c.State())
}

func TestExactlyOneStateAfterAnySequence(t *testing.T) {
	sequences := [][]tea.Msg{
		{QueryResultMsg{Result: textResult{"a"}}, QueryErrorMsg{Err: errors.New("b")}},
		{QueryErrorMsg{Err: errors.New("b")}, QueryResultMsg{Result: textResult{"a"}}},
		{FinalizeLayoutMsg{}, QueryResultMsg{Result: textResult{"a"}}, FinalizeLayoutMsg{}},
		{QueryErrorMsg{Err: errors.New("b")}, QueryErrorMsg{Err: errors.New("c")}},
	}
	for i, seq := range sequences {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			host := newFakeHost()
			c := newTestController(t, host, &stubBackend{})
			c.ShowAndQuery("hello")
			for _, msg := range seq {
				switch m := msg.(type) {
				case QueryResultMsg:
					m.ID = c.ID()
					msg = m
				case QueryErrorMsg:
					m.ID = c.ID()
					msg = m
				case FinalizeLayoutMsg:
					m.ID = c.ID()
					msg = m
				}
				c.Update(msg)
				assertSingleVisual(t, c.Overlay())
			}
		})
	}
}

func TestFinalizeLayoutUsesSettledHostBounds(t *testing.T) {
	host := newFakeHost()
	host.settle = 4
	c := newTestController(t, host, &stubBackend{result: textResult{"settled"}})

	cmd := c.ShowAndQuery("hello")
	finalize := c.Update(cmd())
	require.NotNil(t, finalize)

	proposed := c.Overlay().Pin().Bounds
	c.Update(finalize())
	final := c.Overlay().Pin().Bounds

	assert.Equal(t, proposed.X+4, final.X, "pin follows the host's own layout pass")
	bounds := host.Bounds(2)
	assert.Equal(t, ComputePinBounds(bounds, geom.Point{X: 20, Y: 4}, geom.Size{Width: 3, Height: 1}, 1, host.shadow), final)
}

func TestPinGeometryForBalloonBelowAnchor(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{result: textResult{"pin me"}})
	run(c, c.ShowAndQuery("hello"))

	bounds := host.Bounds(2)
	pin := c.Overlay().Pin()
	require.True(t, pin.Visible)
	assert.Equal(t, bounds.Right()-3-1, pin.Bounds.X)
	// The balloon sits below the anchor, so the top shadow inset applies.
	assert.Equal(t, bounds.Y+1+host.shadow.Top, pin.Bounds.Y)
	assert.True(t, c.HitPin(geom.Point{X: pin.Bounds.X, Y: pin.Bounds.Y}))
	assert.False(t, c.HitPin(geom.Point{X: bounds.X, Y: bounds.Y}))
}

func TestHiddenPinKeepsGeometryAndIgnoresClicks(t *testing.T) {
	host := newFakeHost()
	opener := &recordingOpener{}
	c := NewController(Config{Host: host, Backend: &stubBackend{result: textResult{"x"}}, Opener: opener})
	run(c, c.ShowAndQuery("hello"))

	before := c.Overlay().Pin().Bounds
	c.SetPinVisible(false)
	c.FinalizeLayout()
	assert.Equal(t, before, c.Overlay().Pin().Bounds)
	assert.Nil(t, c.ClickPin(1))
	assert.Zero(t, opener.opened)
}

func TestSingleClickOnPinOpensPersistentView(t *testing.T) {
	host := newFakeHost()
	opener := &recordingOpener{}
	c := NewController(Config{
		Host:    host,
		Backend: &stubBackend{result: textResult{"你好"}},
		Opener:  opener,
		Owner:   "reader",
		Anchor:  geom.Point{X: 3, Y: 3},
	})
	run(c, c.ShowAndQuery("hello"))

	assert.Nil(t, c.ClickPin(2), "double click is ignored")
	assert.Zero(t, opener.opened)

	c.ClickPin(1)
	assert.Equal(t, 1, opener.opened)
	assert.Equal(t, "reader", opener.owner)
	assert.Nil(t, opener.initial)
	assert.True(t, c.Disposed(), "balloon is dismissed before the view opens")
}

func TestDismissIsIdempotent(t *testing.T) {
	host := newFakeHost()
	c := newTestController(t, host, &stubBackend{result: textResult{"x"}})
	run(c, c.ShowAndQuery("hello"))

	c.Dismiss()
	c.Dismiss()
	assert.True(t, c.Disposed())
	assert.Equal(t, 1, strings.Count(strings.Join(host.calls, ","), "hide 2"))
	assert.False(t, c.Scroll(1))
}
