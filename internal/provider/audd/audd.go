// Package audd implements the multi-platform provider. A recognized sample is
// Copyrighted when any streaming platform carries it and Free when the song is
// identified but no platform lists it. It is the only provider that can
// report Free.
package audd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"rcheck/internal/logger"
	"rcheck/internal/provider"
	"rcheck/internal/recognition"
)

const serviceName = "AudD"

const codeLimitReached = 902

// DefaultPlatforms is the platform list requested when none is configured.
var DefaultPlatforms = []string{"spotify", "apple_music", "youtube"}

// Song is a recognized track with the platforms that returned a link.
type Song struct {
	Artist    string
	Title     string
	Platforms []string
}

// Client uploads samples to the AudD recognize endpoint.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiToken   string
	platforms  []string
}

func NewClient(apiToken string, platforms []string, timeout time.Duration) *Client {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	return &Client{
		httpClient: provider.NewHTTPClient(timeout),
		apiURL:     "https://api.audd.io/",
		apiToken:   apiToken,
		platforms:  platforms,
	}
}

// Recognize uploads the sample. A nil Song with a nil error means AudD did
// not recognize anything.
func (c *Client) Recognize(ctx context.Context, path string, onSent func(sent, total int64)) (*Song, error) {
	if strings.TrimSpace(c.apiToken) == "" {
		return nil, recognition.NewError(serviceName, recognition.ErrCredentials, "AudD: missing API token", nil)
	}

	upload, err := provider.NewUpload([]provider.Field{
		{Name: "api_token", Value: c.apiToken},
		{Name: "return", Value: strings.Join(c.platforms, ",")},
	}, "file", path)
	if err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrProtocol, serviceName, err)
	}

	req, err := upload.Request(ctx, c.apiURL, onSent)
	if err != nil {
		return nil, fmt.Errorf("failed to create audd request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrNetwork, "AudD Network Error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrNetwork, "AudD Network Error", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, recognition.NewError(serviceName, recognition.ErrProtocol, serviceName,
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var ar apiResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, recognition.NewError(serviceName, recognition.ErrProtocol, serviceName, err)
	}

	if ar.Status == "error" {
		code := 0
		msg := ""
		if ar.Error != nil {
			code, msg = ar.Error.Code, ar.Error.Message
		}
		if code == codeLimitReached {
			return nil, recognition.NewError(serviceName, recognition.ErrRateLimit, "AudD: API limit reached", nil)
		}
		return nil, recognition.NewError(serviceName, recognition.ErrProtocol, fmt.Sprintf("AudD Error %d", code),
			fmt.Errorf("%s", msg))
	}

	if len(ar.Result) == 0 {
		return nil, nil
	}

	song := &Song{
		Artist: stringField(ar.Result, "artist"),
		Title:  stringField(ar.Result, "title"),
	}
	for _, p := range c.platforms {
		if present(ar.Result[p]) {
			song.Platforms = append(song.Platforms, p)
		}
	}
	return song, nil
}

// Recognizer is the remote half of the provider.
type Recognizer interface {
	Recognize(ctx context.Context, path string, onSent func(sent, total int64)) (*Song, error)
}

type Provider struct {
	client Recognizer
	logger *logger.Logger
}

func New(client Recognizer, log *logger.Logger) *Provider {
	return &Provider{client: client, logger: log.Named("audd")}
}

func (p *Provider) Kind() recognition.Kind { return recognition.KindAudD }
func (p *Provider) Name() string           { return serviceName }

func (p *Provider) Recognize(ctx context.Context, sample recognition.Sample) recognition.Result {
	obs := sample.Notify()

	song, err := p.client.Recognize(ctx, sample.Path, obs.Sent)
	if err != nil {
		p.logger.Debug("%s: %v", sample.Path, err)
		return recognition.FromError(serviceName, err)
	}
	if song == nil {
		return recognition.UnknownResult(serviceName)
	}

	p.logger.Debug("%s: recognized %s - %s on %v", sample.Path, song.Artist, song.Title, song.Platforms)
	if len(song.Platforms) == 0 {
		return recognition.Result{Status: recognition.Free, Service: serviceName}
	}
	return recognition.Result{
		Status:  recognition.Copyrighted,
		Service: serviceName + ": " + strings.Join(displayNames(song.Platforms), ", "),
	}
}

// displayNames turns platform keys like apple_music into "Apple Music".
func displayNames(platforms []string) []string {
	caser := cases.Title(language.English)
	out := make([]string, len(platforms))
	for i, p := range platforms {
		out[i] = caser.String(strings.ReplaceAll(p, "_", " "))
	}
	return out
}

// AudD API response types

type apiResponse struct {
	Status string                     `json:"status"`
	Result map[string]json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "{}" && s != "[]" && s != `""` && s != "false"
}

func stringField(m map[string]json.RawMessage, key string) string {
	var s string
	if err := json.Unmarshal(m[key], &s); err != nil {
		return ""
	}
	return s
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
