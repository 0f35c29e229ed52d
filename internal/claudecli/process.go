package claudecli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// SessionConflictMarker is the diagnostic the CLI prints when the
// requested --session-id is already attached to a running session. The
// runner restarts once with --resume when the first output line
// contains it.
const SessionConflictMarker = "already in use"

const maxLineBytes = 4 * 1024 * 1024

// Process is one running claude CLI invocation. Stdout and stderr are
// merged into a single line stream, matching the CLI's habit of
// printing diagnostics to stderr mid-stream.
type Process struct {
	cmd     *exec.Cmd
	out     *os.File
	scanner *bufio.Scanner
}

// Start launches the CLI. The returned Process must be finished with
// Wait (or Kill) on every path.
func Start(ctx context.Context, cfg Config, resume bool, logger *slog.Logger) (*Process, error) {
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if strings.TrimSpace(cfg.SessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}

	args := buildArgs(cfg, resume)
	cmd := exec.CommandContext(ctx, cfg.binary(), args...)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.binary(), err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	if logger != nil {
		logger.Info("claude_started", "pid", cmd.Process.Pid, "resume", resume, "session", shortSession(cfg.SessionID))
	}

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Process{cmd: cmd, out: pr, scanner: scanner}, nil
}

// ReadLine returns the next output line. ok is false once the stream is
// exhausted.
func (p *Process) ReadLine() (line string, ok bool) {
	if !p.scanner.Scan() {
		return "", false
	}
	return p.scanner.Text(), true
}

// Wait closes the output stream and reaps the child, returning its exit
// code.
func (p *Process) Wait() int {
	_ = p.out.Close()
	if err := p.cmd.Wait(); err != nil {
		if exitErr, okExit := err.(*exec.ExitError); okExit {
			return exitErr.ExitCode()
		}
		return -1
	}
	return p.cmd.ProcessState.ExitCode()
}

// Kill terminates the child and reaps it.
func (p *Process) Kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.out.Close()
	_ = p.cmd.Wait()
}

// StartWithSessionFallback starts the CLI with --session-id and peeks
// at the first output line. When that line reports the session is
// already in use, the process is killed and restarted once with
// --resume. firstLine carries the peeked line when it still needs
// processing; it is empty after a restart.
func StartWithSessionFallback(ctx context.Context, cfg Config, logger *slog.Logger) (proc *Process, firstLine string, resumed bool, err error) {
	proc, err = Start(ctx, cfg, false, logger)
	if err != nil {
		return nil, "", false, err
	}

	line, ok := proc.ReadLine()
	if ok && strings.Contains(line, SessionConflictMarker) {
		if logger != nil {
			logger.Info("claude_session_conflict", "session", shortSession(cfg.SessionID))
		}
		proc.Kill()
		proc, err = Start(ctx, cfg, true, logger)
		if err != nil {
			return nil, "", true, err
		}
		return proc, "", true, nil
	}
	return proc, line, false, nil
}

// shortSession truncates a session UUID for logging.
func shortSession(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
