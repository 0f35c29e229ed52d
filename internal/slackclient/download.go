package slackclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// DownloadFile streams a private Slack file URL to dstPath, enforcing
// maxBytes during the transfer. Returns the bytes written and whether
// the limit was the reason for failure.
func (c *Client) DownloadFile(ctx context.Context, fileURL, dstPath string, maxBytes int64) (int64, bool, error) {
	if err := c.ready(); err != nil {
		return 0, false, err
	}
	fileURL = strings.TrimSpace(fileURL)
	dstPath = strings.TrimSpace(dstPath)
	if fileURL == "" {
		return 0, false, fmt.Errorf("missing file url")
	}
	if dstPath == "" {
		return 0, false, fmt.Errorf("missing dst path")
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, false, fmt.Errorf("slack file download http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.ContentLength > maxBytes {
		return 0, true, fmt.Errorf("slack file too large (%d > %d bytes)", resp.ContentLength, maxBytes)
	}

	f, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, false, err
	}
	defer f.Close()

	limited := io.LimitReader(resp.Body, maxBytes+1)
	n, err := io.Copy(f, limited)
	if err != nil {
		return n, false, err
	}
	if n > maxBytes {
		_ = os.Remove(dstPath)
		return n, true, fmt.Errorf("slack file too large (>%d bytes)", maxBytes)
	}
	if err := f.Close(); err != nil {
		return n, false, err
	}
	return n, false, nil
}
