package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rcheck/internal/pipeline"
	"rcheck/internal/recognition"
)

func outcomes() []pipeline.Outcome {
	return []pipeline.Outcome{
		{Index: 0, File: "a.mp3", Provider: recognition.KindAudD, Result: recognition.Result{Status: recognition.Copyrighted, Service: "AudD: Spotify"}},
		{Index: 1, File: "b.mp3", Provider: recognition.KindAudD, Result: recognition.Result{Status: recognition.Free, Service: "AudD"}},
		{Index: 2, File: "c.mp3", Provider: recognition.KindAcoustID, Result: recognition.Result{Status: recognition.Unknown, Service: "AcoustID"}},
	}
}

func TestConsoleLine_Plain(t *testing.T) {
	got := NewConsole(false).Line(outcomes()[0])
	want := "C   | AudD: Spotify" + strings.Repeat(" ", 40-len("AudD: Spotify")) + " | a.mp3"
	if got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestConsoleLine_LongServiceNotTruncated(t *testing.T) {
	o := outcomes()[0]
	o.Result.Service = strings.Repeat("x", 50)
	got := NewConsole(false).Line(o)
	if !strings.Contains(got, o.Result.Service+" | a.mp3") {
		t.Errorf("Line() = %q", got)
	}
}

func TestConsoleLine_Color(t *testing.T) {
	got := NewConsole(true).Line(outcomes()[0])
	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escapes in %q", got)
	}
	if !strings.Contains(got, "a.mp3") {
		t.Errorf("file name missing from %q", got)
	}
}

func TestHeader(t *testing.T) {
	h := Header()
	if !strings.HasPrefix(h, "Status | Service") || !strings.HasSuffix(h, " | File") {
		t.Errorf("Header() = %q", h)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.txt")
	if err := os.WriteFile(path, []byte("stale content\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, outcomes()); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "C | AudD: Spotify | a.mp3\nF | AudD | b.mp3\nU | AcoustID | c.mp3\n"
	if string(data) != want {
		t.Errorf("file = %q, want %q", data, want)
	}
}

func TestWriteFile_BadDirectory(t *testing.T) {
	if err := WriteFile("/nonexistent/dir/results.txt", outcomes()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSummaryTable(t *testing.T) {
	got := SummaryTable(outcomes())
	for _, want := range []string{"PROVIDER", "audd", "acoustid", "ALL"} {
		if !strings.Contains(strings.ToUpper(got), strings.ToUpper(want)) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Index(got, "audd") > strings.Index(got, "acoustid") {
		t.Errorf("providers should appear in first-seen order:\n%s", got)
	}
}
