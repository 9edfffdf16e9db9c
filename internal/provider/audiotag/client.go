package audiotag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rcheck/internal/provider"
	"rcheck/internal/recognition"
)

const serviceName = "AudioTag"

// State is the outcome of one poll request.
type State int

const (
	Pending State = iota
	Found
	NotFound
)

// PollResult is one decoded get_result response.
type PollResult struct {
	State      State
	Title      string
	Artist     string
	Confidence string
	HasTrack   bool
}

// Client talks to the AudioTag identify/get_result API.
type Client struct {
	uploadClient *http.Client
	pollClient   *http.Client
	apiURL       string
	apiKey       string
}

// NewClient creates a client. uploadTimeout bounds the identify upload;
// each poll is bounded to 30 seconds.
func NewClient(apiKey string, uploadTimeout time.Duration) *Client {
	return &Client{
		uploadClient: provider.NewHTTPClient(uploadTimeout),
		pollClient:   provider.NewHTTPClient(30 * time.Second),
		apiURL:       "https://audiotag.info/api",
		apiKey:       apiKey,
	}
}

// Submit uploads the sample and returns the result token.
func (c *Client) Submit(ctx context.Context, path string, onSent func(sent, total int64)) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", recognition.NewError(serviceName, recognition.ErrCredentials, "AudioTag: missing API key", nil)
	}

	upload, err := provider.NewUpload([]provider.Field{
		{Name: "apikey", Value: c.apiKey},
		{Name: "action", Value: "identify"},
	}, "file", path)
	if err != nil {
		return "", recognition.NewError(serviceName, recognition.ErrProtocol, serviceName, err)
	}

	req, err := upload.Request(ctx, c.apiURL, onSent)
	if err != nil {
		return "", fmt.Errorf("failed to create audiotag request: %w", err)
	}

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return "", recognition.NewError(serviceName, recognition.ErrNetwork, "AudioTag Network Error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", recognition.NewError(serviceName, recognition.ErrProtocol, serviceName,
			fmt.Errorf("identify returned status %d", resp.StatusCode))
	}

	var ir identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", recognition.NewError(serviceName, recognition.ErrProtocol, serviceName, err)
	}
	if ir.Token == "" {
		return "", recognition.NewError(serviceName, recognition.ErrProtocol, serviceName,
			fmt.Errorf("no token in identify response: %s", ir.Error))
	}
	return ir.Token, nil
}

// Poll asks once for the result of token. A non-200 reply is reported as
// Pending so the caller keeps polling; transport failures are errors.
func (c *Client) Poll(ctx context.Context, token string) (PollResult, error) {
	form := url.Values{
		"apikey": {c.apiKey},
		"action": {"get_result"},
		"token":  {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to create audiotag poll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", provider.UserAgent)

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return PollResult{}, recognition.NewError(serviceName, recognition.ErrNetwork, serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return PollResult{State: Pending}, nil
	}

	var rr resultResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return PollResult{}, recognition.NewError(serviceName, recognition.ErrProtocol, serviceName, err)
	}
	return rr.decode(), nil
}

// AudioTag API response types

type identifyResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	Error   string `json:"error"`
}

type resultResponse struct {
	Success bool         `json:"success"`
	Result  string       `json:"result"`
	Data    []resultItem `json:"data"`
}

type resultItem struct {
	Confidence json.RawMessage `json:"confidence"`
	Tracks     [][]any         `json:"tracks"`
}

func (r resultResponse) decode() PollResult {
	switch r.Result {
	case "found":
		out := PollResult{State: Found}
		if len(r.Data) == 0 {
			return out
		}
		item := r.Data[0]
		out.Confidence = rawString(item.Confidence)
		if len(item.Tracks) > 0 && len(item.Tracks[0]) >= 2 {
			out.HasTrack = true
			out.Title = fmt.Sprint(item.Tracks[0][0])
			out.Artist = fmt.Sprint(item.Tracks[0][1])
		}
		return out
	case "not found":
		return PollResult{State: NotFound}
	default:
		return PollResult{State: Pending}
	}
}

// rawString renders a JSON scalar that may be a number or a string.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "?"
	}
	return strings.Trim(s, `"`)
}
