package musicbrainz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		apiURL:     url,
	}
}

func TestRecording_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recording/b1a9c0e9-d987-4042-ae91-78d6a3267d69" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("inc") != "artist-credits" {
			t.Errorf("missing inc=artist-credits: %s", r.URL.RawQuery)
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("missing User-Agent header")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "b1a9c0e9-d987-4042-ae91-78d6a3267d69",
			"title": "Bohemian Rhapsody",
			"length": 354000,
			"artist-credit": [{"name": "Queen", "joinphrase": "", "artist": {"id": "a1", "name": "Queen"}}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	rec, err := c.Recording(context.Background(), "b1a9c0e9-d987-4042-ae91-78d6a3267d69")
	if err != nil {
		t.Fatalf("Recording() error: %v", err)
	}
	if rec.Title != "Bohemian Rhapsody" {
		t.Errorf("Title = %q, want %q", rec.Title, "Bohemian Rhapsody")
	}
	if rec.Artist != "Queen" {
		t.Errorf("Artist = %q, want %q", rec.Artist, "Queen")
	}
	if rec.ID != "b1a9c0e9-d987-4042-ae91-78d6a3267d69" {
		t.Errorf("ID = %q", rec.ID)
	}
}

func TestRecording_EmptyID(t *testing.T) {
	c := newTestClient("http://unused")
	if _, err := c.Recording(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestRecording_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Recording(context.Background(), "id"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestRecording_RetryOn429(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "r1", "title": "Test", "artist-credit": [{"name": "Artist"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	rec, err := c.Recording(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Recording() error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls (1 retry), got %d", calls)
	}
	if rec.Title != "Test" {
		t.Errorf("Title = %q", rec.Title)
	}
}

func TestJoinArtistCredits(t *testing.T) {
	tests := []struct {
		name    string
		credits []artistCredit
		want    string
	}{
		{
			name:    "single",
			credits: []artistCredit{{Name: "Queen"}},
			want:    "Queen",
		},
		{
			name: "join phrase",
			credits: []artistCredit{
				{Name: "Queen", JoinPhrase: " & "},
				{Name: "David Bowie"},
			},
			want: "Queen & David Bowie",
		},
		{
			name: "fallback to artist name and comma",
			credits: []artistCredit{
				{Artist: artistInfo{Name: "A"}},
				{Artist: artistInfo{Name: "B"}},
			},
			want: "A, B",
		},
		{
			name: "empty",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinArtistCredits(tt.credits); got != tt.want {
				t.Errorf("joinArtistCredits() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecording_SecondBusyAnswerReturned(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Recording(context.Background(), "r1"); err == nil {
		t.Fatal("expected error after repeated 503")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWait_SpacesRequests(t *testing.T) {
	c := &Client{interval: 50 * time.Millisecond}
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := c.wait(ctx); err != nil {
			t.Fatalf("wait() error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("three requests took %v, want >= 100ms", elapsed)
	}
}

func TestWait_Cancelled(t *testing.T) {
	c := &Client{interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	if err := c.wait(ctx); err != nil {
		t.Fatalf("first wait() error: %v", err)
	}
	cancel()
	if err := c.wait(ctx); err == nil {
		t.Fatal("expected error from cancelled wait")
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", defaultRetryAfter},
		{"3", 3 * time.Second},
		{"600", maxRetryAfter},
		{"soon", defaultRetryAfter},
		{now.Add(4 * time.Second).Format(http.TimeFormat), 4 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.header, now); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
