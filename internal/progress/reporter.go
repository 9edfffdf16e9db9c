package progress

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// Reporter draws one overwritable status line per worker on a shared stream.
//
// Each worker's erase width is tracked separately and every write goes
// through one mutex, so a worker only ever blanks out what it wrote itself.
type Reporter struct {
	mu          sync.Mutex
	w           io.Writer
	interactive bool
	lastLen     map[int]int
	pending     map[int]string
}

// New creates a Reporter writing to w. Redraws are only emitted when w is a
// terminal; otherwise each worker's final text is printed once on Finish.
func New(w io.Writer) *Reporter {
	return NewWithMode(w, IsTerminal(w))
}

// NewWithMode creates a Reporter with an explicit interactive mode.
func NewWithMode(w io.Writer, interactive bool) *Reporter {
	return &Reporter{
		w:           w,
		interactive: interactive,
		lastLen:     make(map[int]int),
		pending:     make(map[int]string),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Interactive reports whether redraws are written.
func (r *Reporter) Interactive() bool {
	return r.interactive
}

// Update replaces the worker's current line with text.
func (r *Reporter) Update(worker int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.interactive {
		r.pending[worker] = text
		return
	}

	prev := r.lastLen[worker]
	io.WriteString(r.w, "\r"+strings.Repeat(" ", prev)+"\r"+text)
	r.lastLen[worker] = max(runewidth.StringWidth(text), prev)
}

// Finish ends the worker's line and resets its tracked width.
func (r *Reporter) Finish(worker int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.interactive {
		text, ok := r.pending[worker]
		delete(r.pending, worker)
		if !ok {
			return
		}
		io.WriteString(r.w, text+"\n")
		return
	}

	io.WriteString(r.w, "\n")
	r.lastLen[worker] = 0
}

// Println writes a complete line that belongs to no worker.
func (r *Reporter) Println(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	io.WriteString(r.w, text+"\n")
}

// Tracked returns the erase width currently recorded for worker.
func (r *Reporter) Tracked(worker int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastLen[worker]
}
