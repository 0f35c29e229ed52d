package attachments

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseManifest(t *testing.T) {
	t.Parallel()

	payload := `[{"url_private":"https://files.slack.com/a","name":"chart.png","mimetype":"image/png","size":1234}]`
	files, err := ParseManifest(base64.StdEncoding.EncodeToString([]byte(payload)))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("len(files) = %d, want 1", len(files))
	}
	if files[0].Name != "chart.png" || files[0].Size != 1234 {
		t.Fatalf("unexpected file: %+v", files[0])
	}
}

func TestParseManifestEmpty(t *testing.T) {
	t.Parallel()

	files, err := ParseManifest("")
	if err != nil || files != nil {
		t.Fatalf("ParseManifest(\"\") = %v, %v, want nil, nil", files, err)
	}
}

func TestParseManifestBadBase64(t *testing.T) {
	t.Parallel()

	if _, err := ParseManifest("not base64!!"); err == nil {
		t.Fatal("ParseManifest() error = nil, want decode error")
	}
}

func TestFilterSupported(t *testing.T) {
	t.Parallel()

	files := []FileMeta{
		{URLPrivate: "u1", Name: "photo.JPG"},
		{URLPrivate: "u2", Name: "doc.pdf"},
		{URLPrivate: "u3", Name: "noext", Mimetype: "image/png"},
		{URLPrivate: "u4", Name: "report", Mimetype: "application/pdf"},
		{URLPrivate: "u5", Name: "notes.txt"},
		{URLPrivateDownload: "u6", Name: "anim.gif"},
		{Name: "nourl.png"},
	}
	kept, truncated := FilterSupported(files)
	if truncated != 1 {
		t.Fatalf("truncated = %d, want 1", truncated)
	}
	if len(kept) != MaxFileCount {
		t.Fatalf("len(kept) = %d, want %d", len(kept), MaxFileCount)
	}
	if kept[0].Kind != KindImage || kept[1].Kind != KindPDF {
		t.Fatalf("kinds = %s, %s, want image, pdf", kept[0].Kind, kept[1].Kind)
	}
	if kept[4].URL != "u6" {
		t.Fatalf("fallback url = %q, want url_private_download", kept[4].URL)
	}
	for _, c := range kept {
		if c.Name == "notes.txt" || c.Name == "nourl.png" {
			t.Fatalf("kept unsupported file %q", c.Name)
		}
	}
}

func TestSecureTempDir(t *testing.T) {
	t.Parallel()

	dir, cleanup, err := SecureTempDir(nil)
	if err != nil {
		t.Fatalf("SecureTempDir() error = %v", err)
	}
	fi, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0o700 {
		t.Fatalf("perm = %#o, want 0700", fi.Mode().Perm())
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("dir still exists after cleanup: %v", err)
	}
}

type fakeDownloader struct {
	tooBig map[string]bool
	fail   map[string]bool
	urls   []string
}

func (d *fakeDownloader) DownloadFile(_ context.Context, fileURL, dstPath string, _ int64) (int64, bool, error) {
	d.urls = append(d.urls, fileURL)
	if d.tooBig[fileURL] {
		return 0, true, errors.New("too large")
	}
	if d.fail[fileURL] {
		return 0, false, errors.New("http 500")
	}
	if err := os.WriteFile(dstPath, []byte("x"), 0o600); err != nil {
		return 0, false, err
	}
	return 1, false, nil
}

func TestFetch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dl := &fakeDownloader{
		tooBig: map[string]bool{"u2": true},
		fail:   map[string]bool{"u3": true},
	}
	var notices []string
	notify := func(_ context.Context, text string) { notices = append(notices, text) }

	candidates := []Candidate{
		{URL: "u1", Name: "a.png", Kind: KindImage},
		{URL: "u2", Name: "b.pdf", Kind: KindPDF},
		{URL: "u3", Name: "c.png", Kind: KindImage},
		{URL: "u4", Name: "huge.png", Kind: KindImage, Size: MaxFileSizeBytes + 1},
	}
	got := Fetch(context.Background(), dl, notify, dir, candidates, nil)

	if len(got) != 1 || got[0].Name != "a.png" {
		t.Fatalf("downloaded = %+v, want just a.png", got)
	}
	if got[0].Path != filepath.Join(dir, "a.png") {
		t.Fatalf("path = %q, want inside %q", got[0].Path, dir)
	}
	// The oversized metadata entry is skipped without a transfer.
	for _, u := range dl.urls {
		if u == "u4" {
			t.Fatal("oversized file was downloaded despite manifest size")
		}
	}
	wantNotices := []string{
		"Downloaded image: `a.png`",
		"Skipped PDF `b.pdf`: exceeds 10MB limit",
		"Failed to download image: `c.png`",
		fmt.Sprintf("Skipped image `huge.png`: %.1fMB exceeds 10MB limit", float64(MaxFileSizeBytes+1)/(1024*1024)),
	}
	if len(notices) != len(wantNotices) {
		t.Fatalf("notices = %v, want %v", notices, wantNotices)
	}
	for i, want := range wantNotices {
		if notices[i] != want {
			t.Fatalf("notice[%d] = %q, want %q", i, notices[i], want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"photo.png", "photo.png"},
		{"../../etc/passwd", "passwd"},
		{"dir\\evil.png", "evil.png"},
		{"..", "file"},
		{"  ", "file"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPromptPreamble(t *testing.T) {
	t.Parallel()

	files := []Downloaded{
		{Path: "/tmp/x/a.png", Name: "a.png", Kind: KindImage},
		{Path: "/tmp/x/b.pdf", Name: "b.pdf", Kind: KindPDF},
	}
	got := PromptPreamble(files, "describe these")
	if !strings.Contains(got, "- IMAGE: /tmp/x/a.png") || !strings.Contains(got, "- PDF: /tmp/x/b.pdf") {
		t.Fatalf("missing file lines:\n%s", got)
	}
	if !strings.Contains(got, "User's message: describe these") {
		t.Fatalf("missing user message:\n%s", got)
	}

	noMsg := PromptPreamble(files, "")
	if strings.Contains(noMsg, "User's message") {
		t.Fatalf("empty message should omit the trailer:\n%s", noMsg)
	}

	if got := PromptPreamble(nil, "hello"); got != "hello" {
		t.Fatalf("PromptPreamble(nil) = %q, want passthrough", got)
	}
}
