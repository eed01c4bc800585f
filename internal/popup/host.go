// Package popup is the terminal surface layer behind balloon.Host. It places
// overlay boxes relative to an anchor cell, tracks focus and click-outside
// dismissal, and composites the boxes onto the frame the reader renders.
package popup

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/geom"
)

// DefaultShadow reserves one cell to the right and one row below the box for
// the drop shadow.
var DefaultShadow = geom.Insets{Right: 1, Bottom: 1}

type surface struct {
	handle  balloon.Handle
	overlay *balloon.Overlay
	cfg     balloon.HostConfig
	anchor  geom.Point
	side    balloon.Side
	box     geom.Rect
	shown   bool
}

// Options tune a Host.
type Options struct {
	Shadow geom.Insets
	// Edge is the gap kept between a box and the screen border.
	Edge   int
	Logger *log.Logger
}

// Host implements balloon.Host for a terminal screen.
type Host struct {
	screen   geom.Size
	next     balloon.Handle
	surfaces map[balloon.Handle]*surface
	// order lists live surfaces bottom to top.
	order  []balloon.Handle
	shadow geom.Insets
	edge   int
	styles Styles
	logger *log.Logger
}

// NewHost returns an empty host. The screen size is unknown until SetScreen.
func NewHost(opts Options) *Host {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	shadow := opts.Shadow
	if shadow == (geom.Insets{}) {
		shadow = DefaultShadow
	}
	return &Host{
		surfaces: map[balloon.Handle]*surface{},
		shadow:   shadow,
		edge:     opts.Edge,
		styles:   DefaultStyles(),
		logger:   logger,
	}
}

// SetScreen records the terminal size and re-places every shown surface.
func (h *Host) SetScreen(width, height int) {
	h.screen = geom.Size{Width: width, Height: height}
	for _, handle := range h.order {
		h.Revalidate(handle)
	}
}

func (h *Host) Screen() geom.Size { return h.screen }

func (h *Host) CreateOverlay(content *balloon.Overlay, cfg balloon.HostConfig) balloon.Handle {
	h.next++
	h.surfaces[h.next] = &surface{handle: h.next, overlay: content, cfg: cfg}
	return h.next
}

func (h *Host) Show(handle balloon.Handle, anchor geom.Point, side balloon.Side) {
	s, ok := h.live(handle)
	if !ok {
		return
	}
	s.anchor = anchor
	s.side = side
	s.shown = true
	h.layout(s)
	h.raise(handle)
	h.logger.Debug("surface shown", "handle", handle, "box", s.box)
}

func (h *Host) Hide(handle balloon.Handle, animate bool) {
	s, ok := h.live(handle)
	if !ok {
		return
	}
	s.shown = false
	h.drop(handle)
	delete(h.surfaces, handle)
	h.logger.Debug("surface hidden", "handle", handle, "animate", animate)
}

func (h *Host) IsDisposed(handle balloon.Handle) bool {
	_, ok := h.live(handle)
	return !ok
}

func (h *Host) Revalidate(handle balloon.Handle) {
	s, ok := h.live(handle)
	if !ok || !s.shown {
		return
	}
	h.layout(s)
}

func (h *Host) Bounds(handle balloon.Handle) geom.Rect {
	if s, ok := h.live(handle); ok {
		return s.box
	}
	return geom.Rect{}
}

func (h *Host) ShadowInsets(handle balloon.Handle) geom.Insets {
	if s, ok := h.live(handle); ok && s.cfg.Shadow {
		return h.shadow
	}
	return geom.Insets{}
}

// Visible reports whether any surface is on screen.
func (h *Host) Visible() bool {
	return len(h.order) > 0
}

// Focused returns the topmost surface that requested focus.
func (h *Host) Focused() (balloon.Handle, bool) {
	for i := len(h.order) - 1; i >= 0; i-- {
		if s := h.surfaces[h.order[i]]; s != nil && s.cfg.RequestFocus {
			return s.handle, true
		}
	}
	return 0, false
}

// ClickResult tells the caller what a mouse press did to the popup layer.
type ClickResult int

const (
	// ClickPassed means no surface cared; the click belongs to the screen
	// below.
	ClickPassed ClickResult = iota
	// ClickInside landed on a surface that blocks clicks through.
	ClickInside
	// ClickDismissed closed one or more surfaces. The click still passes
	// through unless a dismissed surface blocked it.
	ClickDismissed
	ClickDismissedBlocked
	// ClickClosed hit the close button of a surface.
	ClickClosed
)

// Click applies a mouse press at p.
func (h *Host) Click(p geom.Point) ClickResult {
	for i := len(h.order) - 1; i >= 0; i-- {
		s := h.surfaces[h.order[i]]
		if s != nil && s.box.Contains(p) {
			if s.cfg.CloseButtonEnabled && p == closeButtonCell(s.box) {
				h.Hide(s.handle, false)
				return ClickClosed
			}
			if s.cfg.BlockClicksThrough {
				return ClickInside
			}
			return ClickPassed
		}
	}
	result := ClickPassed
	for _, handle := range append([]balloon.Handle(nil), h.order...) {
		s := h.surfaces[handle]
		if s == nil || !s.cfg.HideOnOutsideClick {
			continue
		}
		h.Hide(handle, true)
		if s.cfg.BlockClicksThrough {
			result = ClickDismissedBlocked
		} else if result == ClickPassed {
			result = ClickDismissed
		}
	}
	return result
}

// closeButtonCell is where renderSurface draws the close glyph.
func closeButtonCell(box geom.Rect) geom.Point {
	return geom.Point{X: box.Right() - 2, Y: box.Y}
}

// Contains reports whether p falls on a shown surface.
func (h *Host) Contains(p geom.Point) bool {
	for _, handle := range h.order {
		if s := h.surfaces[handle]; s != nil && s.box.Contains(p) {
			return true
		}
	}
	return false
}

func (h *Host) live(handle balloon.Handle) (*surface, bool) {
	s, ok := h.surfaces[handle]
	return s, ok
}

func (h *Host) raise(handle balloon.Handle) {
	h.drop(handle)
	h.order = append(h.order, handle)
}

func (h *Host) drop(handle balloon.Handle) {
	for i, existing := range h.order {
		if existing == handle {
			h.order = append(h.order[:i], h.order[i+1:]...)
			return
		}
	}
}

func (h *Host) layout(s *surface) {
	size := s.overlay.ContentSize()
	in := s.cfg.BorderInsets
	box := geom.Size{Width: size.Width + in.Horizontal(), Height: size.Height + in.Vertical()}
	shadow := geom.Insets{}
	if s.cfg.Shadow {
		shadow = h.shadow
	}
	origin := Place(s.anchor, box, shadow, h.screen, s.side, h.edge)
	s.box = geom.Rect{X: origin.X, Y: origin.Y, Width: box.Width, Height: box.Height}
}

// Place returns the top-left corner for a box of the given size shown next
// to anchor. The box is centred on the anchor column and goes on the
// preferred side, flipping when only the other side fits. When neither side
// fits it takes the side with more room. A zero screen disables clamping.
func Place(anchor geom.Point, box geom.Size, shadow geom.Insets, screen geom.Size, side balloon.Side, edge int) geom.Point {
	x := anchor.X - box.Width/2
	yBelow := anchor.Y + 1 + shadow.Top
	yAbove := anchor.Y - box.Height - shadow.Bottom
	if screen.Width <= 0 || screen.Height <= 0 {
		if side == balloon.SideAbove {
			return geom.Point{X: x, Y: yAbove}
		}
		return geom.Point{X: x, Y: yBelow}
	}

	minX := edge + shadow.Left
	maxX := screen.Width - box.Width - shadow.Right - edge
	if maxX < minX {
		minX = shadow.Left
		maxX = screen.Width - box.Width - shadow.Right
	}
	if maxX < 0 {
		maxX = 0
	}
	minY := edge + shadow.Top
	maxY := screen.Height - box.Height - shadow.Bottom - edge
	if maxY < minY {
		minY = shadow.Top
		maxY = screen.Height - box.Height - shadow.Bottom
	}
	if maxY < 0 {
		maxY = 0
	}

	fitsBelow := yBelow <= maxY
	fitsAbove := yAbove >= minY
	var y int
	switch {
	case side == balloon.SideBelow && fitsBelow:
		y = yBelow
	case side == balloon.SideAbove && fitsAbove:
		y = yAbove
	case fitsBelow:
		y = yBelow
	case fitsAbove:
		y = yAbove
	default:
		// Neither side fits: keep the side with more visible space.
		if yAbove-minY > maxY-yBelow {
			y = minY
		} else {
			y = maxY
		}
	}

	if x > maxX {
		x = maxX
	}
	if x < minX {
		x = minX
	}
	if y > maxY {
		y = maxY
	}
	if y < minY {
		y = minY
	}
	return geom.Point{X: x, Y: y}
}
