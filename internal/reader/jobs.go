package reader

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

// jobKind names a kind of background work in the status bar.
type jobKind string

const (
	jobKindLoad    jobKind = "load"
	jobKindHistory jobKind = "history"
	jobKindPin     jobKind = "pin"
)

// jobTimeout bounds disk and network work that is not a translation query.
const jobTimeout = time.Minute

type job struct {
	id      uint64
	kind    jobKind
	started time.Time
}

// jobStartedMsg reaches the model before the work begins so the status bar
// can show it.
type jobStartedMsg struct{ job job }

// jobDoneMsg carries the runner's own message back to Update.
type jobDoneMsg struct {
	job     job
	took    time.Duration
	err     error
	payload tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	ids     atomic.Uint64
	timeout time.Duration
	logger  *log.Logger
}

func newJobBus(logger *log.Logger) *jobBus {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &jobBus{timeout: jobTimeout, logger: logger}
}

// Start announces the job, then runs it off the UI loop under the bus
// deadline.
func (b *jobBus) Start(kind jobKind, runner jobRunner) tea.Cmd {
	j := job{id: b.ids.Add(1), kind: kind, started: time.Now()}
	announce := func() tea.Msg { return jobStartedMsg{job: j} }
	return tea.Sequence(announce, func() tea.Msg { return b.run(j, runner) })
}

func (b *jobBus) run(j job, runner jobRunner) jobDoneMsg {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	payload, err := runner(ctx)
	done := jobDoneMsg{job: j, took: time.Since(j.started), err: err, payload: payload}
	if err != nil {
		b.logger.Warn("job failed", "kind", j.kind, "id", j.id, "took", done.took, "err", err)
	} else {
		b.logger.Debug("job done", "kind", j.kind, "id", j.id, "took", done.took)
	}
	return done
}
