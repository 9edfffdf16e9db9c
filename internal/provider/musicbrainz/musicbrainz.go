// Package musicbrainz resolves recording IDs returned by AcoustID into a
// title and artist when the lookup response carries no metadata.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"rcheck/internal/provider"
)

const (
	defaultInterval   = time.Second
	defaultRetryAfter = 2 * time.Second
	maxRetryAfter     = 10 * time.Second
)

// Recording is the part of a MusicBrainz recording used to describe a match.
type Recording struct {
	ID     string
	Title  string
	Artist string
}

// Client resolves MusicBrainz recording IDs. Requests from all workers share
// one client so the service's one-request-per-second limit holds per run.
type Client struct {
	httpClient *http.Client
	apiURL     string
	interval   time.Duration

	mu   sync.Mutex
	next time.Time
}

func New() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://musicbrainz.org/ws/2",
		interval:   defaultInterval,
	}
}

// Recording fetches a recording by its MusicBrainz ID.
func (c *Client) Recording(ctx context.Context, id string) (Recording, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Recording{}, fmt.Errorf("musicbrainz: empty recording id")
	}

	reqURL := fmt.Sprintf("%s/recording/%s?inc=artist-credits&fmt=json", c.apiURL, url.PathEscape(id))
	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return Recording{}, fmt.Errorf("musicbrainz recording %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Recording{}, fmt.Errorf("musicbrainz recording %s returned %d: %s", id, resp.StatusCode, body)
	}

	var rec recording
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return Recording{}, fmt.Errorf("failed to decode musicbrainz response: %w", err)
	}

	return Recording{
		ID:     rec.ID,
		Title:  rec.Title,
		Artist: joinArtistCredits(rec.ArtistCredit),
	}, nil
}

// get issues a throttled GET, retrying once when the service answers 429 or
// 503.
func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", provider.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		busy := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable
		if !busy || attempt > 0 {
			return resp, nil
		}
		resp.Body.Close()

		c.delay(retryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
}

// wait reserves the next request slot and sleeps until it arrives.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	slot := c.next
	if slot.Before(now) {
		slot = now
	}
	c.next = slot.Add(c.interval)
	c.mu.Unlock()

	d := time.Until(slot)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// delay pushes the next slot at least d into the future.
func (c *Client) delay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at := time.Now().Add(d); at.After(c.next) {
		c.next = at
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	d := defaultRetryAfter
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		d = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(header); err == nil {
		d = at.Sub(now)
	}
	if d < 0 {
		d = 0
	}
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

// joinArtistCredits renders credits the way MusicBrainz displays them,
// using join phrases when present ("A feat. B") and ", " otherwise.
func joinArtistCredits(credits []artistCredit) string {
	var b strings.Builder
	for i, ac := range credits {
		name := ac.Name
		if name == "" {
			name = ac.Artist.Name
		}
		b.WriteString(name)
		if i < len(credits)-1 {
			if ac.JoinPhrase != "" {
				b.WriteString(ac.JoinPhrase)
			} else {
				b.WriteString(", ")
			}
		}
	}
	return b.String()
}

type recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	ArtistCredit []artistCredit `json:"artist-credit"`
}

type artistCredit struct {
	Name       string     `json:"name"`
	JoinPhrase string     `json:"joinphrase"`
	Artist     artistInfo `json:"artist"`
}

type artistInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
