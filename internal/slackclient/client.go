package slackclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL       = "https://slack.com/api"
	defaultMaxMessageLen = 39000

	truncationNotice = "\n\n_[Message truncated - exceeded Slack's 40KB limit]_"
)

// Client is a minimal Slack Web API client covering what the streamer
// needs: posting and updating thread messages, toggling reactions, and
// downloading user-uploaded files.
type Client struct {
	http          *http.Client
	baseURL       string
	botToken      string
	maxMessageLen int
}

func New(httpClient *http.Client, baseURL, botToken string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimSpace(strings.TrimRight(baseURL, "/"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		http:          httpClient,
		baseURL:       baseURL,
		botToken:      strings.TrimSpace(botToken),
		maxMessageLen: defaultMaxMessageLen,
	}
}

// MaxMessageLen is the length at which outgoing message text is
// truncated before hitting the API.
func (c *Client) MaxMessageLen() int {
	if c == nil || c.maxMessageLen <= 0 {
		return defaultMaxMessageLen
	}
	return c.maxMessageLen
}

func (c *Client) ready() error {
	if c == nil || c.http == nil {
		return fmt.Errorf("slack client is not initialized")
	}
	if strings.TrimSpace(c.botToken) == "" {
		return fmt.Errorf("slack token is required")
	}
	return nil
}

type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// callAPI posts a JSON payload to one Slack method and decodes the
// standard ok/error envelope. A non-2xx status or ok=false is an error.
func (c *Client) callAPI(ctx context.Context, method string, payload any) (apiResponse, int, http.Header, error) {
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return apiResponse{}, 0, nil, fmt.Errorf("marshal slack payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(bodyRaw))
	if err != nil {
		return apiResponse{}, 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apiResponse{}, 0, nil, err
	}
	status := resp.StatusCode
	headers := resp.Header
	respRaw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return apiResponse{}, status, headers, readErr
	}
	var out apiResponse
	if parseErr := json.Unmarshal(respRaw, &out); parseErr != nil {
		return apiResponse{}, status, headers, parseErr
	}
	if status < 200 || status >= 300 {
		return out, status, headers, fmt.Errorf("slack %s http %d", method, status)
	}
	if !out.OK {
		code := strings.TrimSpace(out.Error)
		if code == "" {
			code = "unknown_error"
		}
		return out, status, headers, fmt.Errorf("slack %s failed: %s", method, code)
	}
	return out, status, headers, nil
}

func retryDelay(status int, headers http.Header, attempt int) (time.Duration, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		retryAfter := strings.TrimSpace(headers.Get("Retry-After"))
		if retryAfter == "" {
			return 1 * time.Second, true
		}
		secs, err := strconv.Atoi(retryAfter)
		if err != nil || secs <= 0 {
			return 1 * time.Second, true
		}
		return time.Duration(secs) * time.Second, true
	case status >= 500 && status <= 599:
		switch attempt {
		case 1:
			return 300 * time.Millisecond, true
		case 2:
			return 1 * time.Second, true
		default:
			return 2 * time.Second, true
		}
	default:
		return 0, false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
