package acoustid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rcheck/internal/provider"
	"rcheck/internal/recognition"
)

const serviceName = "AcoustID"

// AcoustID error codes with a specific meaning for us.
const (
	codeInvalidAPIKey     = 4
	codeInvalidUserAPIKey = 6
	codeTooManyRequests   = 14
)

// Candidate is one (result, recording) pair returned by a lookup.
type Candidate struct {
	Score       float64
	RecordingID string
	Title       string
	Artist      string
}

// Client queries the AcoustID lookup API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewClient creates an AcoustID client using apiKey.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: provider.NewHTTPClient(timeout),
		apiURL:     "https://api.acoustid.org/v2",
		apiKey:     apiKey,
	}
}

// Lookup sends fp to AcoustID and flattens the response into candidates.
// Results without recordings are skipped.
func (c *Client) Lookup(ctx context.Context, fp recognition.Fingerprint) ([]Candidate, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, recognition.NewError(serviceName, recognition.ErrCredentials, "AcoustID: missing API key", nil)
	}

	form := url.Values{
		"client":      {c.apiKey},
		"format":      {"json"},
		"meta":        {"recordings"},
		"duration":    {strconv.Itoa(fp.Duration)},
		"fingerprint": {fp.Encoded},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/lookup", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create acoustid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", provider.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrNetwork, "AcoustID Network Error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrNetwork, "AcoustID Network Error", err)
	}

	var lr lookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, recognition.NewError(serviceName, recognition.ErrRateLimit, "AcoustID: rate limited", nil)
		}
		return nil, recognition.NewError(serviceName, recognition.ErrProtocol, "AcoustID",
			fmt.Errorf("status %d: %w", resp.StatusCode, err))
	}

	if lr.Status != "ok" {
		return nil, lookupError(resp.StatusCode, lr.Error)
	}

	var out []Candidate
	for _, res := range lr.Results {
		for _, rec := range res.Recordings {
			out = append(out, Candidate{
				Score:       res.Score,
				RecordingID: rec.ID,
				Title:       rec.Title,
				Artist:      joinArtists(rec.Artists),
			})
		}
	}
	return out, nil
}

func lookupError(status int, e *apiError) error {
	if e == nil {
		return recognition.NewError(serviceName, recognition.ErrProtocol, "AcoustID",
			fmt.Errorf("status %d without error details", status))
	}
	cause := errors.New(e.Message)
	switch e.Code {
	case codeTooManyRequests:
		return recognition.NewError(serviceName, recognition.ErrRateLimit, "AcoustID: rate limited", cause)
	case codeInvalidAPIKey, codeInvalidUserAPIKey:
		return recognition.NewError(serviceName, recognition.ErrCredentials, "AcoustID: invalid API key", cause)
	default:
		return recognition.NewError(serviceName, recognition.ErrProtocol, fmt.Sprintf("AcoustID Error %d", e.Code), cause)
	}
}

func joinArtists(artists []artist) string {
	var b strings.Builder
	for i, a := range artists {
		b.WriteString(a.Name)
		if i < len(artists)-1 {
			if a.JoinPhrase != "" {
				b.WriteString(a.JoinPhrase)
			} else {
				b.WriteString(", ")
			}
		}
	}
	return b.String()
}

// AcoustID API response types

type lookupResponse struct {
	Status  string         `json:"status"`
	Results []lookupResult `json:"results"`
	Error   *apiError      `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type lookupResult struct {
	ID         string      `json:"id"`
	Score      float64     `json:"score"`
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Artists []artist `json:"artists"`
}

type artist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	JoinPhrase string `json:"joinphrase"`
}
