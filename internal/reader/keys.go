package reader

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	NextWord   key.Binding
	PrevWord   key.Binding
	LineStart  key.Binding
	LineEnd    key.Binding
	Top        key.Binding
	Bottom     key.Binding
	HalfDown   key.Binding
	HalfUp     key.Binding
	Lookup     key.Binding
	Select     key.Binding
	Pin        key.Binding
	Panel      key.Binding
	Prompt     key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Dismiss    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		NextWord:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "next word")),
		PrevWord:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous word")),
		LineStart:  key.NewBinding(key.WithKeys("0", "home"), key.WithHelp("0", "line start")),
		LineEnd:    key.NewBinding(key.WithKeys("$", "end"), key.WithHelp("$", "line end")),
		Top:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
		Bottom:     key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
		HalfDown:   key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "half page down")),
		HalfUp:     key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "half page up")),
		Lookup:     key.NewBinding(key.WithKeys("t", "enter"), key.WithHelp("t/enter", "translate")),
		Select:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select")),
		Pin:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pin result")),
		Panel:      key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pinned panel")),
		Prompt:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "translate text")),
		ScrollUp:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "scroll balloon up")),
		ScrollDown: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "scroll balloon down")),
		Dismiss:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Lookup, k.Select, k.Pin, k.Prompt, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.NextWord, k.PrevWord},
		{k.LineStart, k.LineEnd, k.Top, k.Bottom, k.HalfDown, k.HalfUp},
		{k.Lookup, k.Select, k.Prompt, k.Dismiss},
		{k.Pin, k.Panel, k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
