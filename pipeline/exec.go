// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"v.io/x/lib/vlog"
)

// Command is one invocation of an external tool.
type Command struct {
	// Stage is the pipeline stage the command belongs to.
	Stage Stage
	// Path is the program to run.
	Path string
	// Args excludes the program name.
	Args []string
	// Stdin, if non-nil, is fed to the program.
	Stdin io.Reader
	// Stdout, if non-nil, receives the program's standard output.
	Stdout io.Writer
	// Input is the alignment file the command reads.
	Input string
	// Output is the file the command is expected to create, "" if the
	// command only writes to Stdout.
	Output string
	// Redirect is set if the program writes Output through its standard
	// output rather than opening it itself.
	Redirect bool
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

// String renders the command as a shell command line.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+3)
	parts = append(parts, shellQuote(c.Path))
	for _, arg := range c.Args {
		parts = append(parts, shellQuote(arg))
	}
	if c.Redirect {
		parts = append(parts, ">", shellQuote(c.Output))
	}
	return strings.Join(parts, " ")
}

// Executor runs external commands. Execute blocks until the command exits. A
// non-nil error means the command failed; implementations return *ExitError
// to report the exit status and diagnostics.
type Executor interface {
	Execute(ctx context.Context, c Command) error
}

// ExitError reports a command that failed to start, exited non-zero, or was
// cancelled.
type ExitError struct {
	// Code is the exit status, or -1 if the process did not exit normally.
	Code int
	// Stderr is the tail of the process's standard error.
	Stderr string
	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d: %v", e.Code, e.Err)
}

const (
	// DefaultStderrTail is the default ProcessExecutor.StderrTail.
	DefaultStderrTail = 16 << 10
	// DefaultKillDelay is the default ProcessExecutor.KillDelay.
	DefaultKillDelay = 10 * time.Second
)

// ProcessExecutor runs commands as child processes. Each child is placed in
// its own process group so that cancellation also reaches the processes it
// spawns, such as the JVM behind a wrapper script.
type ProcessExecutor struct {
	// Stdout receives a command's standard output when Command.Stdout is
	// nil. Nil discards it.
	Stdout io.Writer
	// Stderr receives a copy of every command's standard error. Nil
	// discards it; the tail is kept for ExitError regardless.
	Stderr io.Writer
	// Env is the child environment. Nil inherits the current environment.
	Env []string
	// StderrTail is the number of trailing stderr bytes kept for
	// diagnostics. Zero means DefaultStderrTail.
	StderrTail int
	// KillDelay is how long a cancelled command has between SIGTERM and
	// SIGKILL. Zero means DefaultKillDelay.
	KillDelay time.Duration
}

// Execute implements Executor.
func (e *ProcessExecutor) Execute(ctx context.Context, c Command) error {
	if err := ctx.Err(); err != nil {
		return &ExitError{Code: -1, Err: err}
	}
	tailSize, killDelay := e.StderrTail, e.KillDelay
	if tailSize <= 0 {
		tailSize = DefaultStderrTail
	}
	if killDelay <= 0 {
		killDelay = DefaultKillDelay
	}
	tail := newTailBuffer(tailSize)

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Env = e.Env
	cmd.Stdin = c.Stdin
	switch {
	case c.Stdout != nil:
		cmd.Stdout = c.Stdout
	case e.Stdout != nil:
		cmd.Stdout = e.Stdout
	default:
		cmd.Stdout = ioutil.Discard
	}
	cmd.Stderr = tail
	if e.Stderr != nil {
		cmd.Stderr = io.MultiWriter(e.Stderr, tail)
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	vlog.VI(1).Infof("exec: %v", c)
	if err := cmd.Start(); err != nil {
		return &ExitError{Code: -1, Err: err}
	}
	pid := cmd.Process.Pid
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
			return
		case <-ctx.Done():
		}
		vlog.VI(1).Infof("exec: %v: terminating process group %d", ctx.Err(), pid)
		killGroup(pid, unix.SIGTERM)
		select {
		case <-done:
		case <-time.After(killDelay):
			killGroup(pid, unix.SIGKILL)
		}
	}()
	err := cmd.Wait()
	close(done)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &ExitError{Code: exitCode(err), Stderr: tail.String(), Err: ctxErr}
	}
	if err != nil {
		return &ExitError{Code: exitCode(err), Stderr: tail.String(), Err: err}
	}
	return nil
}

func killGroup(pid int, sig syscall.Signal) {
	if err := unix.Kill(-pid, sig); err != nil && err != unix.ESRCH {
		vlog.Infof("kill process group %d: %v", pid, err)
	}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Exited() {
			return ws.ExitStatus()
		}
	}
	return -1
}

// tailBuffer is an io.Writer that retains the last max bytes written.
type tailBuffer struct {
	max       int
	buf       []byte
	truncated bool
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= t.max {
		t.buf = append(t.buf[:0], p[len(p)-t.max:]...)
		t.truncated = true
		return n, nil
	}
	if over := len(t.buf) + len(p) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.truncated = true
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

func (t *tailBuffer) String() string {
	if t.truncated {
		return "..." + string(t.buf)
	}
	return string(t.buf)
}
