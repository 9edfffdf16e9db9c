package audd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"rcheck/internal/logger"
	"rcheck/internal/recognition"
)

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sample.mp3")
	if err := os.WriteFile(p, []byte("ID3fakeaudio"), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRecognize_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus recognition.Status
		wantSvc    string
	}{
		{
			name:       "platform links",
			status:     200,
			body:       `{"status": "success", "result": {"artist": "Queen", "title": "Bohemian Rhapsody", "spotify": {"id": "x"}, "apple_music": {"url": "y"}}}`,
			wantStatus: recognition.Copyrighted,
			wantSvc:    "AudD: Spotify, Apple Music",
		},
		{
			name:       "recognized without links",
			status:     200,
			body:       `{"status": "success", "result": {"artist": "Unsigned", "title": "Demo", "spotify": null}}`,
			wantStatus: recognition.Free,
			wantSvc:    "AudD",
		},
		{
			name:       "no result",
			status:     200,
			body:       `{"status": "success", "result": null}`,
			wantStatus: recognition.Unknown,
			wantSvc:    "AudD",
		},
		{
			name:       "limit reached",
			status:     200,
			body:       `{"status": "error", "error": {"error_code": 902, "error_message": "limit"}}`,
			wantStatus: recognition.Unknown,
			wantSvc:    "AudD: API limit reached",
		},
		{
			name:       "other api error",
			status:     200,
			body:       `{"status": "error", "error": {"error_code": 900, "error_message": "bad token"}}`,
			wantStatus: recognition.Unknown,
			wantSvc:    "AudD Error 900",
		},
		{
			name:       "http error",
			status:     502,
			body:       `bad gateway`,
			wantStatus: recognition.Unknown,
			wantSvc:    "AudD",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("ParseMultipartForm: %v", err)
					return
				}
				if r.FormValue("api_token") != "tok" {
					t.Errorf("api_token = %q", r.FormValue("api_token"))
				}
				if r.FormValue("return") != "spotify,apple_music,youtube" {
					t.Errorf("return = %q", r.FormValue("return"))
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient("tok", nil, 5*time.Second)
			c.apiURL = srv.URL
			r := New(c, logger.New(false)).Recognize(context.Background(), recognition.Sample{Path: writeSample(t)})
			if r.Status != tt.wantStatus || r.Service != tt.wantSvc {
				t.Errorf("Recognize() = %+v, want %v %q", r, tt.wantStatus, tt.wantSvc)
			}
		})
	}
}

func TestRecognize_RateLimitKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "error": {"error_code": 902}}`))
	}))
	defer srv.Close()

	c := NewClient("tok", nil, 5*time.Second)
	c.apiURL = srv.URL
	_, err := c.Recognize(context.Background(), writeSample(t), nil)
	if !recognition.IsKind(err, recognition.ErrRateLimit) {
		t.Errorf("error = %v, want rate limit", err)
	}
}

func TestRecognize_NetworkError(t *testing.T) {
	c := NewClient("tok", nil, time.Second)
	c.apiURL = "http://127.0.0.1:1/"
	r := New(c, logger.New(false)).Recognize(context.Background(), recognition.Sample{Path: writeSample(t)})
	if r.Service != "AudD Network Error" {
		t.Errorf("Service = %q", r.Service)
	}
}

func TestRecognize_ConfiguredPlatformsOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "result": {"spotify": {"id": "x"}, "deezer": {"id": "y"}}}`))
	}))
	defer srv.Close()

	c := NewClient("tok", []string{"deezer"}, 5*time.Second)
	c.apiURL = srv.URL
	song, err := c.Recognize(context.Background(), writeSample(t), nil)
	if err != nil {
		t.Fatalf("Recognize() error: %v", err)
	}
	if len(song.Platforms) != 1 || song.Platforms[0] != "deezer" {
		t.Errorf("Platforms = %v", song.Platforms)
	}
}

func TestDisplayNames(t *testing.T) {
	got := displayNames([]string{"spotify", "apple_music", "youtube"})
	want := []string{"Spotify", "Apple Music", "Youtube"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("displayNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "ok", 10, "ok"},
		{"ascii", "abcdef", 3, "abc..."},
		{"inside two-byte rune", "aé", 2, "a..."},
		{"on rune boundary", "éé", 2, "é..."},
		{"inside three-byte rune", "ab€", 3, "ab..."},
		{"inside first rune", "€€", 1, "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) = %q is not valid UTF-8", tt.in, tt.n, got)
			}
		})
	}
}
