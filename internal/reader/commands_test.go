package reader

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/csheth/peek/internal/translate"
)

func TestResultViewLines(t *testing.T) {
	view := resultView{result: translate.Result{
		Query:       "run",
		Translation: "跑",
		Phonetic:    "rʌn",
		Explains:    []string{"to move quickly on foot, faster than walking", "to manage"},
		Provider:    "Ollama (m)",
		Target:      "Chinese",
	}}

	lines := view.Lines(20)
	for _, line := range lines {
		assert.LessOrEqual(t, lipgloss.Width(line), 20, "line %q too wide", line)
	}
	text := plain(joinLines(lines))
	assert.Contains(t, text, "跑")
	assert.Contains(t, text, "/rʌn/")
	assert.Contains(t, text, "• to move")
	assert.Contains(t, text, "• to manage")
	assert.Contains(t, text, "Ollama (m) → Chinese")
}

func TestResultViewMinimal(t *testing.T) {
	lines := resultView{result: translate.Result{Translation: "猫"}}.Lines(0)
	assert.Len(t, lines, 1)
	assert.Equal(t, "猫", plain(lines[0]))
}

func TestHistoryEntryFromResult(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entry := historyEntry("  big   cat ", resultView{result: translate.Result{Translation: "大猫", Provider: "p"}}, at)
	assert.Equal(t, "big cat", entry.Query)
	assert.Equal(t, "大猫", entry.Translation)
	assert.Equal(t, "p", entry.Provider)
	assert.Equal(t, at, entry.CreatedAt)
}

func TestJobBadges(t *testing.T) {
	m, _ := newTestModel(t, "x", &fakeClient{})
	m.running[1] = job{id: 1, kind: jobKindHistory}
	m.running[2] = job{id: 2, kind: jobKindHistory}
	m.running[3] = job{id: 3, kind: jobKindLoad}
	assert.Equal(t, []string{"history×2", "load"}, m.jobBadges())
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
