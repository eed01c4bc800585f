package reader

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/csheth/peek/internal/balloon"
	"github.com/csheth/peek/internal/document"
	"github.com/csheth/peek/internal/history"
	"github.com/csheth/peek/internal/translate"
)

const loadTimeout = 45 * time.Second

type documentLoadedMsg struct {
	doc *document.Document
	err error
}

type historySavedMsg struct {
	query string
	err   error
}

type pinnedMsg struct {
	query string
	err   error
}

type openPinnedMsg struct {
	owner        any
	initialQuery *string
}

func loadDocumentJob(loader *document.Loader, source string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, loadTimeout)
		defer cancel()
		doc, err := loader.Load(ctx, source)
		return documentLoadedMsg{doc: doc, err: err}, err
	}
}

func saveHistoryJob(store *history.Store, entry history.Entry) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := store.Add(entry)
		return historySavedMsg{query: entry.Query, err: err}, err
	}
}

// pinHistoryJob adds the entry pinned. Add keeps the pin when the plain save
// of the same lookup lands later.
func pinHistoryJob(store *history.Store, entry history.Entry) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		entry.Pinned = true
		err := store.Add(entry)
		return pinnedMsg{query: entry.Query, err: err}, err
	}
}

// lookup adapts a translate.Client to the balloon's backend.
type lookup struct {
	client translate.Client
}

func (l lookup) Query(ctx context.Context, text string) (balloon.Result, error) {
	result, err := l.client.Translate(ctx, text)
	if err != nil {
		return nil, err
	}
	return resultView{result: result}, nil
}

// resultView lays a translation out for the balloon body.
type resultView struct {
	result translate.Result
}

func (r resultView) Lines(width int) []string {
	if width <= 0 {
		width = 60
	}
	var out []string
	add := func(text string, render func(...string) string) {
		for _, line := range wrapCells(text, width) {
			out = append(out, render(line))
		}
	}

	add(r.result.Translation, translationStyle.Render)
	if r.result.Phonetic != "" {
		add("/"+r.result.Phonetic+"/", phoneticStyle.Render)
	}
	if len(r.result.Explains) > 0 {
		out = append(out, "")
		for _, item := range r.result.Explains {
			for i, line := range wrapCells(item, width-2) {
				prefix := "  "
				if i == 0 {
					prefix = "• "
				}
				out = append(out, prefix+line)
			}
		}
	}
	if r.result.Provider != "" {
		out = append(out, "")
		add(fmt.Sprintf("%s → %s", r.result.Provider, r.result.Target), footnoteStyle.Render)
	}
	return out
}

func wrapCells(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Split(wrap.String(wordwrap.String(text, width), width), "\n")
}

// historyEntry converts what a balloon showed into a history entry.
func historyEntry(query string, result balloon.Result, now time.Time) history.Entry {
	entry := history.Entry{Query: translate.NormalizeQuery(query), CreatedAt: now}
	if view, ok := result.(resultView); ok {
		entry.Translation = view.result.Translation
		entry.Provider = view.result.Provider
	}
	return entry
}
