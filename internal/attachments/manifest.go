package attachments

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// FileMeta mirrors the subset of Slack's file object the relay needs.
type FileMeta struct {
	URLPrivate         string `json:"url_private"`
	URLPrivateDownload string `json:"url_private_download"`
	Name               string `json:"name"`
	Mimetype           string `json:"mimetype"`
	Size               int64  `json:"size"`
}

// ParseManifest decodes the base64-encoded JSON file manifest passed
// on the command line. An empty argument means no attachments.
func ParseManifest(encoded string) ([]FileMeta, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode file manifest: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var files []FileMeta
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("parse file manifest: %w", err)
	}
	return files, nil
}
