package balloon

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/peek/internal/geom"
)

// Handle identifies an overlay surface owned by a Host.
type Handle uint64

// Side is the preferred placement of an overlay relative to its anchor.
type Side int

const (
	SideBelow Side = iota
	SideAbove
)

// HostConfig is the surface configuration passed to Host.CreateOverlay.
type HostConfig struct {
	HideOnOutsideClick bool
	Shadow             bool
	BlockClicksThrough bool
	RequestFocus       bool
	BorderInsets       geom.Insets
	CloseButtonEnabled bool
}

// Host creates, places and disposes overlay surfaces. All methods are called
// from the UI loop.
type Host interface {
	CreateOverlay(content *Overlay, cfg HostConfig) Handle
	Show(h Handle, anchor geom.Point, side Side)
	// Hide disposes the surface. Hiding a disposed surface does nothing.
	Hide(h Handle, animate bool)
	IsDisposed(h Handle) bool
	// Revalidate recomputes the host-side layout of the surface without
	// resizing its content.
	Revalidate(h Handle)
	// Bounds is the content box of the surface in screen cells, excluding the
	// shadow border.
	Bounds(h Handle) geom.Rect
	ShadowInsets(h Handle) geom.Insets
}

// Result is a lookup result ready to be laid out in a balloon.
type Result interface {
	// Lines renders the result wrapped to at most width cells.
	Lines(width int) []string
}

// Querier runs a lookup. It is called off the UI loop.
type Querier interface {
	Query(ctx context.Context, text string) (Result, error)
}

// QuerierFunc adapts a function to Querier.
type QuerierFunc func(ctx context.Context, text string) (Result, error)

func (f QuerierFunc) Query(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}

// PersistentOpener promotes a lookup into the persistent pinned view.
// initialQuery is nil when the view should open without a query.
type PersistentOpener interface {
	OpenPersistentView(owner any, initialQuery *string) tea.Cmd
}

// HistoryRecorder is told about every result a balloon shows.
type HistoryRecorder interface {
	Record(query string, result Result)
}
