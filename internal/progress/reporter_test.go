package progress

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestUpdate_ErasesPreviousText(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, true)

	r.Update(0, "song.mp3 | preparing...")
	r.Update(0, "song.mp3 | done")

	want := "\r\r" + "song.mp3 | preparing..." +
		"\r" + strings.Repeat(" ", 23) + "\r" + "song.mp3 | done"
	if buf.String() != want {
		t.Errorf("output = %q\nwant     %q", buf.String(), want)
	}
	if got := r.Tracked(0); got != 23 {
		t.Errorf("Tracked(0) = %d, want 23 (longest text so far)", got)
	}
}

func TestFinish_ResetsTrackedLength(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, true)

	r.Update(1, "abcdef")
	r.Finish(1)

	if r.Tracked(1) != 0 {
		t.Errorf("Tracked(1) = %d after Finish, want 0", r.Tracked(1))
	}
	if !strings.HasSuffix(buf.String(), "abcdef\n") {
		t.Errorf("Finish should end the line, got %q", buf.String())
	}

	buf.Reset()
	r.Update(1, "x")
	if buf.String() != "\r\rx" {
		t.Errorf("new line should not erase old width, got %q", buf.String())
	}
}

func TestWorkersDoNotShareEraseWidth(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, true)

	r.Update(0, strings.Repeat("a", 30))
	r.Update(1, "bb")
	r.Update(0, "a")
	r.Update(1, "b")

	if got := r.Tracked(0); got != 30 {
		t.Errorf("worker 0 tracked = %d, want 30", got)
	}
	if got := r.Tracked(1); got != 2 {
		t.Errorf("worker 1 tracked = %d, want 2", got)
	}

	// Worker 1's second update must only blank its own two cells.
	if !strings.HasSuffix(buf.String(), "\r  \rb") {
		t.Errorf("worker 1 erased with foreign width: %q", buf.String())
	}
}

func TestAlternatingWorkersAccounting(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, true)

	want := map[int]int{}
	for i := 0; i < 20; i++ {
		worker := i % 2
		text := strings.Repeat("x", (i*7)%13+1)
		r.Update(worker, text)
		want[worker] = max(want[worker], len(text))

		for w, n := range want {
			if got := r.Tracked(w); got != n {
				t.Fatalf("step %d: Tracked(%d) = %d, want %d", i, w, got, n)
			}
		}
	}
}

func TestTrackedUsesDisplayWidth(t *testing.T) {
	r := NewWithMode(&bytes.Buffer{}, true)
	r.Update(0, "日本")
	if got := r.Tracked(0); got != 4 {
		t.Errorf("Tracked(0) = %d, want 4 for two wide runes", got)
	}
}

func TestConcurrentUpdates(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, true)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Update(worker, fmt.Sprintf("worker %d step %d", worker, i))
			}
			r.Finish(worker)
		}(w)
	}
	wg.Wait()

	for w := 0; w < 8; w++ {
		if r.Tracked(w) != 0 {
			t.Errorf("worker %d tracked = %d after Finish", w, r.Tracked(w))
		}
	}
}

func TestNonInteractivePrintsFinalTextOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithMode(&buf, false)

	r.Update(0, "preparing")
	r.Update(0, "sending [---]")
	r.Update(0, "C | AudD: Spotify | song.mp3")
	r.Finish(0)
	r.Finish(0)

	if got := buf.String(); got != "C | AudD: Spotify | song.mp3\n" {
		t.Errorf("output = %q", got)
	}
}

func TestNewOnBufferIsNotInteractive(t *testing.T) {
	if New(&bytes.Buffer{}).Interactive() {
		t.Error("a bytes.Buffer is not a terminal")
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		sent, total int64
		width       int
		want        string
	}{
		{0, 100, 10, "[----------]   0%"},
		{50, 100, 10, "[#####-----]  50%"},
		{100, 100, 10, "[##########] 100%"},
		{150, 100, 10, "[##########] 100%"},
		{0, 0, 4, "[####] 100%"},
		{1, 3, 0, "[#######-------------]  33%"},
	}
	for _, tt := range tests {
		if got := Bar(tt.sent, tt.total, tt.width); got != tt.want {
			t.Errorf("Bar(%d, %d, %d) = %q, want %q", tt.sent, tt.total, tt.width, got, tt.want)
		}
	}
}
