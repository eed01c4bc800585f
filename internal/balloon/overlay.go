// Package balloon implements the lookup balloon: a transient overlay that
// shows a loading label at a text anchor and is then replaced by a result or
// an error. The package owns the state machine and the layout values; drawing
// and placement are left to a Host.
package balloon

import (
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/csheth/peek/internal/geom"
)

// State is the content an overlay currently shows.
type State int

const (
	StateLoading State = iota
	StateResult
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateResult:
		return "result"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// LoadingText is the status label shown while a query is in flight.
const LoadingText = "Querying..."

// Limits bound the content size of an overlay, in cells.
type Limits struct {
	MinWidth  int
	MinHeight int
	MaxSize   int
}

// DefaultLimits mirrors the reader's default balloon footprint.
func DefaultLimits() Limits {
	return Limits{MinWidth: 30, MinHeight: 5, MaxSize: 60}
}

// VisualKind tells a renderer how to draw a Visual.
type VisualKind int

const (
	VisualLabel VisualKind = iota
	VisualResult
)

// Visual is the single piece of content attached to an overlay.
type Visual struct {
	Kind VisualKind
	// Text and Error describe a label visual.
	Text  string
	Error bool
	// Lines hold a rendered result, already wrapped.
	Lines  []string
	Scroll int
}

// PinControl is the clickable pin icon hosted on a result overlay. Bounds are
// in the same screen frame as the host bounds they were computed from.
type PinControl struct {
	Bounds  geom.Rect
	Visible bool
	Glyph   string
}

// Overlay is the view-model of one visible balloon.
type Overlay struct {
	state  State
	visual *Visual
	size   geom.Size
	anchor geom.Point
	query  string
	pin    PinControl
	// scrollable is set when the natural content exceeded the limits.
	scrollable bool
	layouts    int
}

func newOverlay(anchor geom.Point, query string) *Overlay {
	return &Overlay{
		state:  StateLoading,
		anchor: anchor,
		query:  query,
		visual: &Visual{Kind: VisualLabel, Text: LoadingText},
	}
}

func (o *Overlay) State() State           { return o.state }
func (o *Overlay) Anchor() geom.Point     { return o.anchor }
func (o *Overlay) Query() string          { return o.query }
func (o *Overlay) ContentSize() geom.Size { return o.size }
func (o *Overlay) Pin() PinControl        { return o.pin }
func (o *Overlay) Scrollable() bool       { return o.scrollable }

// LayoutPasses counts finalized layout passes.
func (o *Overlay) LayoutPasses() int { return o.layouts }

// Visual returns the attached content. It is never nil for an overlay built
// by a Controller.
func (o *Overlay) Visual() *Visual {
	return o.visual
}

// replaceVisual swaps the attached content. The overlay holds a single
// visual slot, so the previous visual is gone once this returns.
func (o *Overlay) replaceVisual(v *Visual) {
	o.visual = v
	o.scrollable = false
}

// ScrollBy moves a scrollable result by delta lines and reports whether the
// offset changed.
func (o *Overlay) ScrollBy(delta int) bool {
	if o.visual == nil || o.visual.Kind != VisualResult || !o.scrollable {
		return false
	}
	maxOffset := len(o.visual.Lines) - o.size.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	next := o.visual.Scroll + delta
	if next < 0 {
		next = 0
	}
	if next > maxOffset {
		next = maxOffset
	}
	if next == o.visual.Scroll {
		return false
	}
	o.visual.Scroll = next
	return true
}

// Body returns the visible lines of the visual, clipped to the content size.
func (o *Overlay) Body() []string {
	if o.visual == nil {
		return nil
	}
	switch o.visual.Kind {
	case VisualResult:
		start := o.visual.Scroll
		end := start + o.size.Height
		if end > len(o.visual.Lines) {
			end = len(o.visual.Lines)
		}
		if start > end {
			start = end
		}
		return o.visual.Lines[start:end]
	default:
		return labelLines(o.visual.Text, o.size.Width)
	}
}

// resize computes the natural size of the attached visual and applies the
// bounds for the current state.
func (o *Overlay) resize(limits Limits) {
	var natural geom.Size
	switch {
	case o.visual == nil:
		natural = geom.Size{}
	case o.visual.Kind == VisualResult:
		natural = measure(o.visual.Lines)
	default:
		natural = measure(labelLines(o.visual.Text, limits.MaxSize))
	}

	upper := geom.Size{Width: limits.MaxSize, Height: limits.MaxSize}
	lower := geom.Size{Width: limits.MinWidth, Height: 1}
	if o.state == StateResult {
		lower.Height = limits.MinHeight
	}
	o.size = natural.Clamp(lower, upper)
	o.scrollable = natural.Width > o.size.Width || natural.Height > o.size.Height
}

// labelLines wraps at word boundaries and hard-wraps words wider than width,
// since labels do not scroll.
func labelLines(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	return strings.Split(wrap.String(wordwrap.String(text, width), width), "\n")
}

func measure(lines []string) geom.Size {
	width := 0
	for _, line := range lines {
		if w := ansi.PrintableRuneWidth(line); w > width {
			width = w
		}
	}
	return geom.Size{Width: width, Height: len(lines)}
}
