package balloon

import "github.com/csheth/peek/internal/geom"

// pinTolerance is how close (in cells) the anchor may sit to a vertical edge
// of the overlay and still count as beside it.
const pinTolerance = 1

// ComputePinBounds places the pin icon in the top-right corner of
// overlayBounds, inset by margin. overlayBounds excludes the host's shadow
// border, so the result is always shifted left by shadow.Left. When the anchor
// is not inside the overlay's horizontal and vertical span the overlay was
// placed beside the anchor rather than under or over it, and the shadow then
// occupies space above the content, so the rectangle also moves down by
// shadow.Top.
//
// The function is total: small overlays yield rectangles that overlap or
// extend past the box and no clamping is applied.
func ComputePinBounds(overlayBounds geom.Rect, anchor geom.Point, icon geom.Size, margin int, shadow geom.Insets) geom.Rect {
	pin := geom.Rect{
		X:      overlayBounds.X + overlayBounds.Width - icon.Width - margin,
		Y:      overlayBounds.Y + margin,
		Width:  icon.Width,
		Height: icon.Height,
	}
	pin.X -= shadow.Left

	outsideLeft := anchor.X <= overlayBounds.X+pinTolerance
	outsideRight := anchor.X >= overlayBounds.X+overlayBounds.Width-pinTolerance
	below := overlayBounds.Y >= anchor.Y
	above := overlayBounds.Y+overlayBounds.Height <= anchor.Y
	if outsideLeft || outsideRight || below || above {
		pin.Y += shadow.Top
	}
	return pin
}

// ControlSpec describes an auxiliary control hosted on the overlay.
type ControlSpec struct {
	ID      string
	Glyph   string
	Size    geom.Size
	Tooltip string
}

// ControlProvider decides which controls an overlay carries for a state and
// where they go inside the host's container bounds. LayoutControls returns one
// rectangle per ControlSpec returned by ComputeControls for the same state.
type ControlProvider interface {
	ComputeControls(state State) []ControlSpec
	LayoutControls(state State, container geom.Rect) []geom.Rect
}

// PinControlID identifies the pin in ControlSpec lists.
const PinControlID = "pin"

// PinProvider offers the pin control on result overlays only.
type PinProvider struct {
	Glyph  string
	Icon   geom.Size
	Margin int
	Anchor geom.Point
	// Shadow is refreshed from the host before every layout pass.
	Shadow geom.Insets
}

func (p *PinProvider) ComputeControls(state State) []ControlSpec {
	if state != StateResult {
		return nil
	}
	return []ControlSpec{{
		ID:      PinControlID,
		Glyph:   p.Glyph,
		Size:    p.Icon,
		Tooltip: "Pin to the side panel",
	}}
}

func (p *PinProvider) LayoutControls(state State, container geom.Rect) []geom.Rect {
	if state != StateResult {
		return nil
	}
	return []geom.Rect{ComputePinBounds(container, p.Anchor, p.Icon, p.Margin, p.Shadow)}
}
