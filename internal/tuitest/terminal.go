package tuitest

import (
	"bytes"
	"io"
)

// replies maps the terminal queries bubbletea and termenv send at startup to
// the answers of a dark xterm. OSC colour queries come with either
// terminator.
var replies = []struct {
	query, answer string
}{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b[c", "\x1b[?62;22c"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

// maxPending bounds the unanswered bytes kept between reads. Queries are
// short, so only the tail matters.
const maxPending = 64

// terminalResponder watches program output for queries and writes the
// answers back into the PTY so the program does not block waiting for them.
type terminalResponder struct {
	w       io.Writer
	pending []byte
}

func newTerminalResponder(w io.Writer) *terminalResponder {
	return &terminalResponder{w: w}
}

// Process answers every complete query in chunk, in the order they appear.
// A query split across two chunks is answered once the second arrives.
func (tr *terminalResponder) Process(chunk []byte) {
	tr.pending = append(tr.pending, chunk...)
	for {
		at, reply := nextQuery(tr.pending)
		if reply < 0 {
			break
		}
		_, _ = io.WriteString(tr.w, replies[reply].answer)
		tr.pending = tr.pending[at+len(replies[reply].query):]
	}
	if len(tr.pending) > maxPending {
		tr.pending = append([]byte(nil), tr.pending[len(tr.pending)-maxPending:]...)
	}
}

// nextQuery finds the earliest known query in buf. reply is -1 when none is
// present.
func nextQuery(buf []byte) (at, reply int) {
	at, reply = -1, -1
	for i, r := range replies {
		idx := bytes.Index(buf, []byte(r.query))
		if idx >= 0 && (at < 0 || idx < at) {
			at, reply = idx, i
		}
	}
	return at, reply
}
