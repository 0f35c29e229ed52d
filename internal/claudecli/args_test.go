package claudecli

import (
	"reflect"
	"testing"
)

func TestBuildArgsNewSession(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Prompt:    "fix the bug",
		SessionID: "11111111-2222-3333-4444-555555555555",
	}
	got := buildArgs(cfg, false)
	want := []string{
		"--output-format", "stream-json",
		"--verbose",
		"-p", "fix the bug",
		"--session-id", "11111111-2222-3333-4444-555555555555",
		"--dangerously-skip-permissions",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildArgs() = %v, want %v", got, want)
	}
}

func TestBuildArgsResumeWithDirs(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Prompt:    "describe the attachments",
		SessionID: "abc",
		AddDirs:   []string{"/run/user/1000/claude_slack_1", "", "  "},
	}
	got := buildArgs(cfg, true)
	want := []string{
		"--output-format", "stream-json",
		"--verbose",
		"-p", "describe the attachments",
		"--resume", "abc",
		"--dangerously-skip-permissions",
		"--add-dir", "/run/user/1000/claude_slack_1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildArgs() = %v, want %v", got, want)
	}
}

func TestConfigBinaryDefault(t *testing.T) {
	t.Parallel()

	if got := (Config{}).binary(); got != "claude" {
		t.Fatalf("binary() = %q, want claude", got)
	}
	if got := (Config{Binary: " /usr/local/bin/claude "}).binary(); got != "/usr/local/bin/claude" {
		t.Fatalf("binary() = %q", got)
	}
}
