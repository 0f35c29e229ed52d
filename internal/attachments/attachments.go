// Package attachments handles Slack file uploads sent along with a
// message: decoding the file manifest, filtering to formats the CLI
// can read, downloading into a private scratch directory, and building
// the prompt preamble that points the CLI at the local copies.
package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the broad attachment category exposed to the prompt.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

// label is the human form used in thread notices.
func (k Kind) label() string {
	if k == KindImage {
		return "image"
	}
	return "PDF"
}

const (
	// MaxFileCount caps how many attachments are processed per message.
	MaxFileCount = 5
	// MaxFileSizeMB is the per-file size cap.
	MaxFileSizeMB    = 10
	MaxFileSizeBytes = MaxFileSizeMB * 1024 * 1024
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// Candidate is a manifest entry that passed type filtering and is
// queued for download.
type Candidate struct {
	URL      string
	Name     string
	Mimetype string
	Size     int64
	Kind     Kind
}

// Downloaded describes a file successfully written to the scratch dir.
type Downloaded struct {
	Path string
	Name string
	Kind Kind
}

// FilterSupported keeps manifest entries the CLI can analyze. Images
// match by extension or image/* mimetype, PDFs by extension or exact
// mimetype. truncated reports how many supported files were dropped by
// the count cap.
func FilterSupported(files []FileMeta) (kept []Candidate, truncated int) {
	for _, f := range files {
		url := strings.TrimSpace(f.URLPrivate)
		if url == "" {
			url = strings.TrimSpace(f.URLPrivateDownload)
		}
		if url == "" {
			continue
		}
		name := f.Name
		if strings.TrimSpace(name) == "" {
			name = "file"
		}

		ext := strings.ToLower(filepath.Ext(name))
		isImage := imageExtensions[ext] || strings.HasPrefix(f.Mimetype, "image/")
		isPDF := ext == ".pdf" || f.Mimetype == "application/pdf"

		var kind Kind
		switch {
		case isImage:
			kind = KindImage
		case isPDF:
			kind = KindPDF
		default:
			continue
		}
		kept = append(kept, Candidate{
			URL:      url,
			Name:     name,
			Mimetype: f.Mimetype,
			Size:     f.Size,
			Kind:     kind,
		})
	}
	if len(kept) > MaxFileCount {
		truncated = len(kept) - MaxFileCount
		kept = kept[:MaxFileCount]
	}
	return kept, truncated
}

// SecureTempDir creates an owner-only scratch directory for downloads,
// preferring the user's RAM-backed runtime dir when present. The
// returned cleanup removes the directory and its contents.
func SecureTempDir(logger *slog.Logger) (string, func(), error) {
	parent := ""
	if runtime := fmt.Sprintf("/run/user/%d", os.Getuid()); dirExists(runtime) {
		parent = runtime
	}
	dir, err := os.MkdirTemp(parent, "claude_slack_")
	if err != nil {
		return "", nil, err
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil && logger != nil {
			logger.Warn("attachment_dir_cleanup_failed", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

func dirExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Downloader fetches a private Slack URL to a local path with a byte
// cap. The bool reports whether the size limit caused the failure.
type Downloader interface {
	DownloadFile(ctx context.Context, fileURL, dstPath string, maxBytes int64) (int64, bool, error)
}

// Notifier posts a short progress notice to the conversation thread.
// Delivery failures are the notifier's problem; Fetch never fails on
// them.
type Notifier func(ctx context.Context, text string)

// Fetch downloads candidates into dir, posting a notice per file.
// Oversized files are skipped using the manifest size when available,
// so most rejections cost no transfer at all. Individual failures do
// not stop the batch.
func Fetch(ctx context.Context, dl Downloader, notify Notifier, dir string, candidates []Candidate, logger *slog.Logger) []Downloaded {
	var got []Downloaded
	for _, c := range candidates {
		label := c.Kind.label()
		if c.Size > MaxFileSizeBytes {
			sizeMB := float64(c.Size) / (1024 * 1024)
			notify(ctx, fmt.Sprintf("Skipped %s `%s`: %.1fMB exceeds %dMB limit", label, c.Name, sizeMB, MaxFileSizeMB))
			continue
		}

		dst := filepath.Join(dir, sanitizeFilename(c.Name))
		_, tooBig, err := dl.DownloadFile(ctx, c.URL, dst, MaxFileSizeBytes)
		switch {
		case err == nil:
			got = append(got, Downloaded{Path: dst, Name: c.Name, Kind: c.Kind})
			notify(ctx, fmt.Sprintf("Downloaded %s: `%s`", label, c.Name))
			if logger != nil {
				logger.Info("attachment_downloaded", "name", c.Name, "kind", string(c.Kind))
			}
		case tooBig:
			notify(ctx, fmt.Sprintf("Skipped %s `%s`: exceeds %dMB limit", label, c.Name, MaxFileSizeMB))
			if logger != nil {
				logger.Warn("attachment_too_large", "name", c.Name)
			}
		default:
			notify(ctx, fmt.Sprintf("Failed to download %s: `%s`", label, c.Name))
			if logger != nil {
				logger.Error("attachment_download_failed", "name", c.Name, "error", err)
			}
		}
	}
	return got
}

// sanitizeFilename strips path separators and traversal so a hostile
// upload name cannot escape the scratch directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// PromptPreamble wraps the user's message with instructions pointing
// the CLI at the downloaded files. With no files it returns the
// message unchanged.
func PromptPreamble(files []Downloaded, message string) string {
	if len(files) == 0 {
		return message
	}
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("- %s: %s", strings.ToUpper(string(f.Kind)), f.Path))
	}
	filesText := strings.Join(lines, "\n")
	if message != "" {
		return fmt.Sprintf("The user has attached the following file(s). Please read and analyze them as part of your response:\n\n%s\n\nUser's message: %s", filesText, message)
	}
	return fmt.Sprintf("The user has attached the following file(s). Please read and analyze them:\n\n%s", filesText)
}
