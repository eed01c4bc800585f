package balloon

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/csheth/peek/internal/geom"
)

const defaultQueryTimeout = 20 * time.Second

// Config wires a Controller to its collaborators.
type Config struct {
	Host     Host
	Backend  Querier
	Opener   PersistentOpener
	Recorder HistoryRecorder
	// Owner is handed to the opener when the pin is clicked.
	Owner any
	// Anchor is the screen cell the balloon points at.
	Anchor geom.Point

	Limits       Limits
	BorderInsets geom.Insets
	PinGlyph     string
	PinIcon      geom.Size
	PinMargin    int
	QueryTimeout time.Duration
	Controls     ControlProvider
	Logger       *log.Logger
}

func (c Config) withDefaults() Config {
	if c.Limits == (Limits{}) {
		c.Limits = DefaultLimits()
	}
	if c.BorderInsets == (geom.Insets{}) {
		c.BorderInsets = geom.Uniform(1)
	}
	if c.PinGlyph == "" {
		c.PinGlyph = "[*]"
	}
	if c.PinIcon == (geom.Size{}) {
		c.PinIcon = geom.Size{Width: 3, Height: 1}
	}
	if c.PinMargin == 0 {
		c.PinMargin = 1
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c
}

// QueryResultMsg delivers a successful lookup back onto the UI loop.
type QueryResultMsg struct {
	ID     uint64
	Query  string
	Result Result
}

// QueryErrorMsg delivers a failed lookup back onto the UI loop.
type QueryErrorMsg struct {
	ID    uint64
	Query string
	Err   error
}

// FinalizeLayoutMsg runs the second layout phase once the host has settled
// the frame that carried the content change.
type FinalizeLayoutMsg struct {
	ID uint64
}

var controllerSeq uint64

// Controller drives one balloon through Loading -> Result | Error. A new
// lookup needs a new Controller.
type Controller struct {
	id       uint64
	cfg      Config
	controls ControlProvider
	pin      *PinProvider
	logger   *log.Logger

	overlay *Overlay
	handle  Handle
	shown   bool
}

// NewController returns a controller for a balloon anchored at cfg.Anchor.
func NewController(cfg Config) *Controller {
	cfg = cfg.withDefaults()
	c := &Controller{
		id:     atomic.AddUint64(&controllerSeq, 1),
		cfg:    cfg,
		logger: cfg.Logger,
	}
	c.pin = &PinProvider{
		Glyph:  cfg.PinGlyph,
		Icon:   cfg.PinIcon,
		Margin: cfg.PinMargin,
		Anchor: cfg.Anchor,
	}
	c.controls = cfg.Controls
	if c.controls == nil {
		c.controls = c.pin
	}
	return c
}

func (c *Controller) ID() uint64 { return c.id }

// Overlay returns the balloon view-model, or nil before ShowAndQuery.
func (c *Controller) Overlay() *Overlay { return c.overlay }

// Handle returns the host surface currently showing the balloon.
func (c *Controller) Handle() (Handle, bool) { return c.handle, c.shown }

// State reports the overlay state. It is StateLoading before ShowAndQuery.
func (c *Controller) State() State {
	if c.overlay == nil {
		return StateLoading
	}
	return c.overlay.state
}

// Disposed reports whether the host has closed the balloon.
func (c *Controller) Disposed() bool {
	return c.shown && c.cfg.Host.IsDisposed(c.handle)
}

func (c *Controller) hostConfig(closeButton bool) HostConfig {
	return HostConfig{
		HideOnOutsideClick: true,
		Shadow:             true,
		BlockClicksThrough: true,
		RequestFocus:       true,
		BorderInsets:       c.cfg.BorderInsets,
		CloseButtonEnabled: closeButton,
	}
}

// ShowAndQuery shows the loading balloon and returns the command running the
// lookup. A controller runs one lookup; later calls return nil.
func (c *Controller) ShowAndQuery(text string) tea.Cmd {
	if c.overlay != nil {
		c.logger.Debug("balloon already shown", "id", c.id)
		return nil
	}
	c.overlay = newOverlay(c.cfg.Anchor, text)
	c.overlay.resize(c.cfg.Limits)
	c.handle = c.cfg.Host.CreateOverlay(c.overlay, c.hostConfig(false))
	c.shown = true
	c.cfg.Host.Show(c.handle, c.cfg.Anchor, SideBelow)
	c.ProposeLayout()
	c.logger.Debug("balloon shown", "id", c.id, "anchor", c.cfg.Anchor, "query", text)
	return c.queryCmd(text)
}

func (c *Controller) queryCmd(text string) tea.Cmd {
	id := c.id
	backend := c.cfg.Backend
	timeout := c.cfg.QueryTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		result, err := backend.Query(ctx, text)
		if err != nil {
			return QueryErrorMsg{ID: id, Query: text, Err: err}
		}
		return QueryResultMsg{ID: id, Query: text, Result: result}
	}
}

// Update applies messages addressed to this controller and ignores the rest.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case QueryResultMsg:
		if msg.ID != c.id {
			return nil
		}
		return c.ShowResult(msg.Query, msg.Result)
	case QueryErrorMsg:
		if msg.ID != c.id {
			return nil
		}
		return c.ShowError(msg.Err.Error())
	case FinalizeLayoutMsg:
		if msg.ID != c.id {
			return nil
		}
		c.FinalizeLayout()
	}
	return nil
}

// ShowResult replaces the loading balloon with a fresh surface carrying the
// result and the pin control.
func (c *Controller) ShowResult(query string, result Result) tea.Cmd {
	if c.overlay == nil || c.overlay.state != StateLoading {
		return nil
	}
	if c.shown {
		if c.cfg.Host.IsDisposed(c.handle) {
			c.logger.Debug("result for dismissed balloon dropped", "id", c.id, "query", query)
			return nil
		}
		c.cfg.Host.Hide(c.handle, true)
	}

	c.overlay.replaceVisual(&Visual{Kind: VisualResult, Lines: result.Lines(c.cfg.Limits.MaxSize)})
	c.overlay.state = StateResult
	c.overlay.resize(c.cfg.Limits)
	c.overlay.pin = PinControl{Visible: true, Glyph: c.cfg.PinGlyph}

	c.handle = c.cfg.Host.CreateOverlay(c.overlay, c.hostConfig(true))
	c.shown = true
	c.cfg.Host.Show(c.handle, c.cfg.Anchor, SideBelow)

	if c.cfg.Recorder != nil {
		c.cfg.Recorder.Record(query, result)
	}
	c.ProposeLayout()
	c.logger.Debug("balloon result", "id", c.id, "size", c.overlay.size, "scrollable", c.overlay.scrollable)
	return c.finalizeCmd()
}

// ShowError turns the status label into an error label. Without a shown
// balloon it does nothing.
func (c *Controller) ShowError(message string) tea.Cmd {
	if !c.shown || c.overlay == nil || c.overlay.state != StateLoading {
		return nil
	}
	if c.cfg.Host.IsDisposed(c.handle) {
		c.logger.Debug("error for dismissed balloon dropped", "id", c.id, "err", message)
		return nil
	}
	c.overlay.visual.Text = message
	c.overlay.visual.Error = true
	c.overlay.state = StateError
	c.overlay.resize(c.cfg.Limits)
	c.cfg.Host.Revalidate(c.handle)
	c.ProposeLayout()
	c.logger.Debug("balloon error", "id", c.id, "err", message)
	return c.finalizeCmd()
}

func (c *Controller) finalizeCmd() tea.Cmd {
	id := c.id
	return func() tea.Msg { return FinalizeLayoutMsg{ID: id} }
}

// ProposeLayout is the first layout phase: content bounds are already
// settled by resize, so it lays the controls out against the host bounds as
// they stand now.
func (c *Controller) ProposeLayout() {
	if c.Disposed() {
		return
	}
	c.layoutControls()
}

// FinalizeLayout is the second layout phase. The host recomputes its own
// layout first and the control geometry is then taken from the settled
// bounds.
func (c *Controller) FinalizeLayout() {
	if c.overlay == nil || c.Disposed() {
		return
	}
	c.cfg.Host.Revalidate(c.handle)
	c.layoutControls()
	c.overlay.layouts++
}

func (c *Controller) layoutControls() {
	if c.overlay == nil || !c.shown {
		return
	}
	c.pin.Shadow = c.cfg.Host.ShadowInsets(c.handle)
	state := c.overlay.state
	specs := c.controls.ComputeControls(state)
	rects := c.controls.LayoutControls(state, c.cfg.Host.Bounds(c.handle))
	for i, spec := range specs {
		if spec.ID != PinControlID || i >= len(rects) {
			continue
		}
		if c.overlay.pin.Visible {
			c.overlay.pin.Bounds = rects[i]
		}
	}
}

// SetPinVisible shows or hides the pin without touching its geometry.
func (c *Controller) SetPinVisible(visible bool) {
	if c.overlay == nil || c.overlay.state != StateResult {
		return
	}
	c.overlay.pin.Visible = visible
}

// HitPin reports whether p falls on the visible pin control.
func (c *Controller) HitPin(p geom.Point) bool {
	if c.overlay == nil || c.Disposed() || !c.overlay.pin.Visible {
		return false
	}
	return c.overlay.pin.Bounds.Contains(p)
}

// ClickPin handles a click on the pin. Only single clicks promote the lookup:
// the balloon is dismissed first and the persistent view then opens with no
// initial query.
func (c *Controller) ClickPin(clicks int) tea.Cmd {
	if clicks != 1 || c.overlay == nil || c.overlay.state != StateResult || !c.overlay.pin.Visible {
		return nil
	}
	if c.Disposed() {
		return nil
	}
	c.cfg.Host.Hide(c.handle, true)
	if c.cfg.Opener == nil {
		return nil
	}
	return c.cfg.Opener.OpenPersistentView(c.cfg.Owner, nil)
}

// Scroll moves a clipped result by delta lines.
func (c *Controller) Scroll(delta int) bool {
	if c.overlay == nil || c.Disposed() {
		return false
	}
	if !c.overlay.ScrollBy(delta) {
		return false
	}
	c.cfg.Host.Revalidate(c.handle)
	return true
}

// Dismiss closes the balloon. Later transitions become no-ops.
func (c *Controller) Dismiss() {
	if !c.shown || c.cfg.Host.IsDisposed(c.handle) {
		return
	}
	c.cfg.Host.Hide(c.handle, false)
	c.logger.Debug("balloon dismissed", "id", c.id)
}
