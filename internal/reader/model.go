// Package reader is the bubbletea program: a document viewport with a text
// cursor, translation balloons over it and a panel of pinned lookups.
package reader

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/document"
	"github.com/csheth/peek/internal/geom"
	"github.com/csheth/peek/internal/history"
	"github.com/csheth/peek/internal/popup"
	"github.com/csheth/peek/internal/translate"
)

const doubleClickWindow = 400 * time.Millisecond

// Config wires runtime options into the reader program.
type Config struct {
	// Document is shown immediately. Otherwise Source is loaded with Loader
	// once the program starts.
	Document *document.Document
	Source   string
	Loader   *document.Loader

	Client  translate.Client
	History *history.Store

	Limits       balloon.Limits
	PinMargin    int
	QueryTimeout time.Duration
	Logger       *log.Logger
}

type stage int

const (
	stageLoading stage = iota
	stageReading
	stagePrompt
)

type model struct {
	config Config
	stage  stage
	keys   keyMap

	help    help.Model
	prompt  textinput.Model
	spinner spinner.Model
	panel   viewport.Model
	layout  pageLayout

	host       *popup.Host
	jobs       *jobBus
	logger     *log.Logger
	balloonLog *log.Logger

	doc       *document.Document
	lines     []string
	wrapWidth int
	top       int
	cursor    document.Position
	selecting bool
	selection document.Selection

	balloon        *balloon.Controller
	pendingHistory []history.Entry
	lastEntry      *history.Entry
	panelVisible   bool
	running        map[uint64]job

	lastClickAt  time.Time
	lastClickPos geom.Point
	clicks       int

	helpVisible  bool
	infoMessage  string
	errorMessage string
	now          func() time.Time
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if config.Loader == nil {
		config.Loader = &document.Loader{Logger: logger.WithPrefix("document")}
	}

	prompt := textinput.New()
	prompt.Prompt = "translate: "
	prompt.Placeholder = "type a word or phrase…"
	prompt.CharLimit = 200

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := &model{
		config:     config,
		keys:       defaultKeyMap(),
		help:       help.New(),
		prompt:     prompt,
		spinner:    spin,
		panel:      viewport.New(pinnedWidth-2, 10),
		layout:     newPageLayout(),
		jobs:       newJobBus(logger.WithPrefix("jobs")),
		logger:     logger.WithPrefix("reader"),
		balloonLog: logger.WithPrefix("balloon"),
		running:    map[uint64]job{},
		now:        time.Now,
	}
	m.host = popup.NewHost(popup.Options{Logger: logger.WithPrefix("popup")})
	m.host.SetScreen(m.layout.windowWidth, m.layout.windowHeight)

	switch {
	case config.Document != nil:
		m.setDocument(config.Document)
	case strings.TrimSpace(config.Source) != "":
		m.stage = stageLoading
		m.infoMessage = fmt.Sprintf("Loading %s…", config.Source)
	default:
		m.stage = stageReading
		m.infoMessage = "No document loaded. Press / to translate typed text."
	}
	return m
}

func (m *model) Init() tea.Cmd {
	if m.stage == stageLoading {
		return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindLoad, loadDocumentJob(m.config.Loader, m.config.Source)))
	}
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case jobStartedMsg:
		m.running[msg.job.id] = msg.job
		return m, m.spinner.Tick
	case jobDoneMsg:
		delete(m.running, msg.job.id)
		if msg.payload == nil {
			return m, nil
		}
		return m.Update(msg.payload)
	case documentLoadedMsg:
		if msg.err != nil {
			m.stage = stageReading
			m.errorMessage = msg.err.Error()
			m.infoMessage = "Press / to translate typed text, q to quit."
			return m, nil
		}
		m.setDocument(msg.doc)
		return m, nil
	case historySavedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("history: %v", msg.err)
		}
		m.refreshPanel()
		return m, nil
	case pinnedMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("pin: %v", msg.err)
			return m, nil
		}
		m.infoMessage = fmt.Sprintf("Pinned %q.", msg.query)
		m.refreshPanel()
		return m, nil
	case openPinnedMsg:
		return m, m.openPinned(msg)
	case balloon.QueryResultMsg, balloon.QueryErrorMsg, balloon.FinalizeLayoutMsg:
		return m, m.updateBalloon(msg)
	}
	return m, nil
}

func (m *model) updateBalloon(msg tea.Msg) tea.Cmd {
	if m.balloon == nil {
		return nil
	}
	cmd := m.balloon.Update(msg)
	switch msg := msg.(type) {
	case balloon.QueryResultMsg:
		if msg.ID == m.balloon.ID() && m.balloon.State() == balloon.StateResult {
			m.errorMessage = ""
			m.infoMessage = "p or a click on [*] pins this lookup."
		}
	case balloon.QueryErrorMsg:
		if msg.ID == m.balloon.ID() && m.balloon.State() == balloon.StateError {
			m.logger.Warn("lookup failed", "query", msg.Query, "err", msg.Err)
			m.infoMessage = ""
			m.errorMessage = msg.Err.Error()
		}
	}
	return tea.Batch(cmd, m.flushHistory())
}

// Record queues a shown result for the history file.
func (m *model) Record(query string, result balloon.Result) {
	entry := historyEntry(query, result, m.now())
	m.lastEntry = &entry
	m.pendingHistory = append(m.pendingHistory, entry)
}

func (m *model) flushHistory() tea.Cmd {
	if len(m.pendingHistory) == 0 {
		return nil
	}
	pending := m.pendingHistory
	m.pendingHistory = nil
	if m.config.History == nil {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(pending))
	for _, entry := range pending {
		cmds = append(cmds, m.jobs.Start(jobKindHistory, saveHistoryJob(m.config.History, entry)))
	}
	return tea.Batch(cmds...)
}

// OpenPersistentView is called by the balloon when its pin is clicked.
func (m *model) OpenPersistentView(owner any, initialQuery *string) tea.Cmd {
	return func() tea.Msg {
		return openPinnedMsg{owner: owner, initialQuery: initialQuery}
	}
}

func (m *model) openPinned(msg openPinnedMsg) tea.Cmd {
	m.panelVisible = true
	m.relayout()
	m.refreshPanel()
	m.logger.Debug("pinned view opened", "owner", msg.owner)

	if msg.initialQuery != nil {
		return m.startLookup(*msg.initialQuery, m.cursorAnchor())
	}
	if m.lastEntry == nil || m.config.History == nil {
		m.infoMessage = "Pinned view opened."
		return nil
	}
	entry := *m.lastEntry
	entry.Pinned = true
	return m.jobs.Start(jobKindPin, pinHistoryJob(m.config.History, entry))
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.stage == stagePrompt {
		return m.handlePromptKey(msg)
	}
	if m.helpVisible {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		m.helpVisible = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpVisible = true
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.dismiss()
		return m, nil
	case key.Matches(msg, m.keys.Prompt):
		m.stage = stagePrompt
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	case key.Matches(msg, m.keys.Panel):
		m.panelVisible = !m.panelVisible
		m.relayout()
		m.refreshPanel()
		return m, nil
	case key.Matches(msg, m.keys.Pin):
		return m, m.pinBalloon()
	case key.Matches(msg, m.keys.ScrollUp):
		m.scrollBalloon(-1)
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		m.scrollBalloon(1)
		return m, nil
	}

	if m.doc == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Lookup):
		return m, m.lookupAtCursor()
	case key.Matches(msg, m.keys.Select):
		m.toggleSelection()
		return m, nil
	}
	if m.handleMotion(msg) {
		m.dismissBalloon()
		m.afterCursorMove()
	}
	return m, nil
}

func (m *model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stage = stageReading
		m.prompt.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.prompt.Value())
		m.prompt.SetValue("")
		m.prompt.Blur()
		m.stage = stageReading
		if value == "" {
			m.infoMessage = "Type something to translate or press Esc to cancel."
			return m, nil
		}
		return m, m.startLookup(value, m.cursorAnchor())
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := geom.Point{X: msg.X, Y: msg.Y}
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		delta := 1
		if msg.Button == tea.MouseButtonWheelUp {
			delta = -1
		}
		if m.host.Contains(p) {
			m.scrollBalloon(delta)
			return m, nil
		}
		m.scrollBody(delta * 3)
		return m, nil
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
	default:
		return m, nil
	}

	clicks := m.clickCount(p)
	if m.balloon != nil && m.balloon.HitPin(p) {
		return m, m.balloon.ClickPin(clicks)
	}
	switch m.host.Click(p) {
	case popup.ClickInside, popup.ClickDismissedBlocked, popup.ClickClosed:
		return m, nil
	}

	line, col, ok := m.layout.toDocument(p, m.top)
	if !ok || m.doc == nil || line >= len(m.lines) {
		return m, nil
	}
	m.cursor = document.Position{Line: line, Col: col}
	m.afterCursorMove()
	return m, nil
}

func (m *model) clickCount(p geom.Point) int {
	now := m.now()
	if p == m.lastClickPos && now.Sub(m.lastClickAt) <= doubleClickWindow {
		m.clicks++
	} else {
		m.clicks = 1
	}
	m.lastClickAt = now
	m.lastClickPos = p
	return m.clicks
}

func (m *model) lookupAtCursor() tea.Cmd {
	if m.selecting {
		text := m.selection.Text(m.lines)
		from, _ := m.selection.Bounds()
		m.selecting = false
		if strings.TrimSpace(text) == "" {
			m.infoMessage = "Selection is empty."
			return nil
		}
		return m.startLookup(text, m.layout.toScreen(from.Line, from.Col, m.top))
	}
	if m.cursor.Line >= len(m.lines) {
		return nil
	}
	span, ok := document.WordAt(m.lines[m.cursor.Line], m.cursor.Col)
	if !ok {
		m.infoMessage = "Nothing to translate under the cursor."
		return nil
	}
	return m.startLookup(span.Text, m.layout.toScreen(m.cursor.Line, span.Start, m.top))
}

// startLookup replaces any balloon with a new one anchored at anchor.
func (m *model) startLookup(text string, anchor geom.Point) tea.Cmd {
	if m.config.Client == nil {
		m.errorMessage = "No translation backend configured."
		return nil
	}
	m.dismissBalloon()
	m.balloon = balloon.NewController(balloon.Config{
		Host:         m.host,
		Backend:      lookup{client: m.config.Client},
		Opener:       m,
		Recorder:     m,
		Owner:        m.owner(),
		Anchor:       anchor,
		Limits:       m.config.Limits,
		PinMargin:    m.config.PinMargin,
		QueryTimeout: m.config.QueryTimeout,
		Logger:       m.balloonLog,
	})
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Translating %q…", clipLabel(text, 40))
	m.logger.Debug("lookup", "query", text, "anchor", anchor)
	return tea.Batch(m.balloon.ShowAndQuery(text), m.spinner.Tick)
}

func (m *model) pinBalloon() tea.Cmd {
	if !m.balloonActive() {
		m.infoMessage = "Nothing to pin yet."
		return nil
	}
	cmd := m.balloon.ClickPin(1)
	if cmd == nil {
		m.infoMessage = "Wait for the translation before pinning."
	}
	return cmd
}

func (m *model) scrollBalloon(delta int) {
	if m.balloonActive() {
		m.balloon.Scroll(delta)
	}
}

func (m *model) balloonActive() bool {
	if m.balloon == nil || m.balloon.Disposed() {
		return false
	}
	_, shown := m.balloon.Handle()
	return shown
}

func (m *model) dismissBalloon() {
	if m.balloon != nil {
		m.balloon.Dismiss()
	}
}

// dismiss peels one layer: balloon, then selection, then the pinned panel.
func (m *model) dismiss() {
	switch {
	case m.balloonActive():
		m.balloon.Dismiss()
	case m.selecting:
		m.selecting = false
	case m.panelVisible:
		m.panelVisible = false
		m.relayout()
	}
}

func (m *model) toggleSelection() {
	if m.selecting {
		m.selecting = false
		return
	}
	m.selecting = true
	m.selection = document.Selection{Anchor: m.cursor, Cursor: m.cursor}
}

func (m *model) busy() bool {
	if m.stage == stageLoading || len(m.running) > 0 {
		return true
	}
	return m.balloonActive() && m.balloon.State() == balloon.StateLoading
}

func (m *model) owner() any {
	if m.doc == nil {
		return nil
	}
	return m.doc.Source
}

func (m *model) cursorAnchor() geom.Point {
	if m.doc == nil {
		return geom.Point{X: 0, Y: headerHeight}
	}
	return m.layout.toScreen(m.cursor.Line, m.cursor.Col, m.top)
}

func (m *model) setDocument(doc *document.Document) {
	m.doc = doc
	m.stage = stageReading
	m.cursor = document.Position{}
	m.top = 0
	m.wrapWidth = 0
	m.selecting = false
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Loaded %s. t translates the word under the cursor.", doc.Title)
	m.rewrap()
}

func (m *model) resize(width, height int) {
	m.layout.Update(width, height, m.panelVisible)
	m.host.SetScreen(width, height)
	m.help.Width = width
	m.prompt.Width = width - len(m.prompt.Prompt) - 2
	m.rewrap()
}

func (m *model) relayout() {
	m.layout.Update(m.layout.windowWidth, m.layout.windowHeight, m.panelVisible)
	m.rewrap()
}

// rewrap reflows the document for the current body width. A balloon
// anchored to the old layout is dismissed.
func (m *model) rewrap() {
	m.panel.Width = pinnedWidth - 2
	m.panel.Height = m.layout.bodyHeight - 2
	if m.doc == nil {
		return
	}
	if m.wrapWidth != m.layout.bodyWidth {
		m.dismissBalloon()
	}
	m.wrapWidth = m.layout.bodyWidth
	m.lines = m.doc.Lines(m.wrapWidth)
	m.clampCursor()
	m.ensureVisible()
}

func clipLabel(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
