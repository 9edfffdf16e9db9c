package acrcloud

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"rcheck/internal/provider"
	"rcheck/internal/recognition"
)

const serviceName = "ACRCloud"

const (
	identifyPath = "/v1/identify"
	dataType     = "audio"
	sigVersion   = "1"

	codeSuccess   = 0
	codeRateLimit = 3003
)

// Match is the first music entry of a successful identify response.
type Match struct {
	Title   string
	Artists []string
	Score   int
}

// Config holds the project credentials.
type Config struct {
	Host         string
	AccessKey    string
	AccessSecret string
	Timeout      time.Duration
}

// Client calls the ACRCloud identify endpoint.
type Client struct {
	httpClient *http.Client
	cfg        Config
	baseURL    string
	now        func() time.Time
}

// NewClient creates a client for cfg.Host.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "identify-eu-west-1.acrcloud.com"
	}
	base := host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		base = "https://" + host
	}
	return &Client{
		httpClient: provider.NewHTTPClient(cfg.Timeout),
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		now:        time.Now,
	}
}

// sign computes the base64 HMAC-SHA1 request signature.
func sign(secret, accessKey, timestamp string) string {
	msg := strings.Join([]string{"POST", identifyPath, accessKey, dataType, sigVersion, timestamp}, "\n")
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Identify uploads the sample and returns the first music match.
func (c *Client) Identify(ctx context.Context, path string, onSent func(sent, total int64)) (Match, error) {
	if c.cfg.AccessKey == "" || c.cfg.AccessSecret == "" {
		return Match{}, recognition.NewError(serviceName, recognition.ErrCredentials, "ACRCloud: missing access key", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Match{}, recognition.NewError(serviceName, recognition.ErrProtocol, "ACRCloud Error: unreadable sample", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	upload, err := provider.NewUpload([]provider.Field{
		{Name: "access_key", Value: c.cfg.AccessKey},
		{Name: "data_type", Value: dataType},
		{Name: "signature_version", Value: sigVersion},
		{Name: "signature", Value: sign(c.cfg.AccessSecret, c.cfg.AccessKey, timestamp)},
		{Name: "sample_bytes", Value: strconv.FormatInt(info.Size(), 10)},
		{Name: "timestamp", Value: timestamp},
	}, "sample", path)
	if err != nil {
		return Match{}, recognition.NewError(serviceName, recognition.ErrProtocol, "ACRCloud Error: unreadable sample", err)
	}

	req, err := upload.Request(ctx, c.baseURL+identifyPath, onSent)
	if err != nil {
		return Match{}, fmt.Errorf("failed to create acrcloud request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Match{}, recognition.NewError(serviceName, recognition.ErrNetwork, "ACRCloud Network Error", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Match{}, recognition.NewError(serviceName, recognition.ErrNetwork, "ACRCloud Network Error", err)
	}

	var ir identifyResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return Match{}, recognition.NewError(serviceName, recognition.ErrProtocol,
			fmt.Sprintf("ACRCloud Error: HTTP %d", resp.StatusCode), err)
	}

	switch ir.Status.Code {
	case codeSuccess:
	case codeRateLimit:
		return Match{}, recognition.NewError(serviceName, recognition.ErrRateLimit, "ACRCloud: "+ir.Status.Msg, nil)
	default:
		return Match{}, recognition.NewError(serviceName, recognition.ErrProtocol, "ACRCloud: "+ir.Status.Msg,
			fmt.Errorf("status code %d", ir.Status.Code))
	}

	if ir.Metadata == nil || len(ir.Metadata.Music) == 0 {
		return Match{}, recognition.NewError(serviceName, recognition.ErrProtocol, "ACRCloud: empty metadata", nil)
	}

	m := ir.Metadata.Music[0]
	match := Match{Title: m.Title, Score: m.Score}
	for _, a := range m.Artists {
		match.Artists = append(match.Artists, a.Name)
	}
	return match, nil
}

// ACRCloud API response types

type identifyResponse struct {
	Status struct {
		Msg     string `json:"msg"`
		Code    int    `json:"code"`
		Version string `json:"version"`
	} `json:"status"`
	Metadata *struct {
		Music []music `json:"music"`
	} `json:"metadata"`
}

type music struct {
	Title   string `json:"title"`
	Score   int    `json:"score"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}
