package terminal

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// Host reports the width of the terminal behind a file descriptor.
type Host struct {
	fd       int
	fallback int
}

// NewHost creates a host for f, usually os.Stdout.
func NewHost(f *os.File) *Host {
	return &Host{fd: int(f.Fd()), fallback: defaultWidth}
}

// Width returns the terminal width, or 80 when f is not a terminal.
func (h *Host) Width() int {
	width, _, err := term.GetSize(h.fd)
	if err != nil || width <= 0 {
		return h.fallback
	}
	return width
}

// Interactive reports whether the descriptor is a terminal.
func (h *Host) Interactive() bool {
	return term.IsTerminal(h.fd)
}

// Executor runs an accepted command.
type Executor interface {
	Execute(ctx context.Context, command string) error
}

// ShellExecutor runs commands through "<shell> -c".
type ShellExecutor struct {
	Shell  string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewShellExecutor returns an executor attached to the process's stdio.
// An empty shell means sh.
func NewShellExecutor(shell string) *ShellExecutor {
	if strings.TrimSpace(shell) == "" {
		shell = "sh"
	}
	return &ShellExecutor{
		Shell:  shell,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Execute runs command and waits for it to exit.
func (e *ShellExecutor) Execute(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, e.Shell, "-c", command)
	cmd.Dir = e.Dir
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	return cmd.Run()
}
