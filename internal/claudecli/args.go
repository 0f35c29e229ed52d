package claudecli

import "strings"

// Config describes one claude CLI invocation.
type Config struct {
	// Binary is the claude executable; defaults to "claude" on PATH.
	Binary string
	// Prompt is the full user prompt, attachments preamble included.
	Prompt string
	// SessionID is the conversation UUID.
	SessionID string
	// AddDirs grants the CLI access to extra directories (downloaded
	// attachments).
	AddDirs []string
}

func (c Config) binary() string {
	if b := strings.TrimSpace(c.Binary); b != "" {
		return b
	}
	return "claude"
}

// buildArgs assembles the CLI argument list. New conversations use
// --session-id; resume reattaches to an existing session after a
// conflict.
func buildArgs(cfg Config, resume bool) []string {
	args := []string{
		"--output-format", "stream-json",
		"--verbose",
		"-p", cfg.Prompt,
	}
	if resume {
		args = append(args, "--resume", cfg.SessionID)
	} else {
		args = append(args, "--session-id", cfg.SessionID)
	}
	args = append(args, "--dangerously-skip-permissions")
	for _, dir := range cfg.AddDirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		args = append(args, "--add-dir", dir)
	}
	return args
}
