// Package proc runs external commands for hooks and git, capturing output.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fulmenhq/affiance/pkg/logger"
)

// maxArgBytes bounds the combined size of batched arguments per invocation,
// well under common ARG_MAX limits.
const maxArgBytes = 100 * 1024

// Command describes one invocation.
type Command struct {
	// Argv is the program and its fixed arguments.
	Argv []string
	// Args are appended to Argv and may be split across several invocations
	// when they would exceed the argument size limit.
	Args []string
	// Env replaces the process environment when non-nil.
	Env []string
	// Dir is the working directory.
	Dir string
	// Stdin is fed to every invocation.
	Stdin string
}

// Result is the outcome of a command. For batched commands the outputs are
// concatenated and the exit code is the first non-zero one.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports a zero exit status.
func (r *Result) Success() bool { return r != nil && r.ExitCode == 0 }

// Combined returns stdout followed by stderr.
func (r *Result) Combined() string {
	if r == nil {
		return ""
	}
	return r.Stdout + r.Stderr
}

// Run executes cmd. A non-zero exit is reported in Result; the error is
// reserved for commands that could not be started. The context is checked
// before each invocation starts; a running process is not killed.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.New("empty command")
	}
	batches := batch(cmd.Args, maxArgBytes-argBytes(cmd.Argv))
	total := &Result{}
	var stdout, stderr strings.Builder
	for _, args := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := runOnce(cmd, args)
		if err != nil {
			return nil, err
		}
		stdout.WriteString(res.Stdout)
		stderr.WriteString(res.Stderr)
		if total.ExitCode == 0 {
			total.ExitCode = res.ExitCode
		}
	}
	total.Stdout = stdout.String()
	total.Stderr = stderr.String()
	return total, nil
}

func runOnce(cmd Command, args []string) (*Result, error) {
	argv := append(append([]string(nil), cmd.Argv[1:]...), args...)
	// #nosec G204 -- commands come from repository configuration, which has the
	// same trust level as a Makefile and is guarded by signature verification
	c := exec.Command(cmd.Argv[0], argv...)
	c.Dir = cmd.Dir
	if cmd.Env != nil {
		c.Env = cmd.Env
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	logger.Trace("proc: exec", logger.String("cmd", formatCommand(cmd.Argv, args)))
	err := c.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return nil, fmt.Errorf("%s: %w", cmd.Argv[0], err)
	}
	return res, nil
}

// batch splits args into groups whose combined size stays under limit. An
// empty list yields a single empty batch so the command still runs once.
func batch(args []string, limit int) [][]string {
	if len(args) == 0 {
		return [][]string{nil}
	}
	if limit < 1024 {
		limit = 1024
	}
	var out [][]string
	var cur []string
	size := 0
	for _, a := range args {
		n := len(a) + 1
		if len(cur) > 0 && size+n > limit {
			out = append(out, cur)
			cur, size = nil, 0
		}
		cur = append(cur, a)
		size += n
	}
	return append(out, cur)
}

func argBytes(argv []string) int {
	n := 0
	for _, a := range argv {
		n += len(a) + 1
	}
	return n
}

func formatCommand(argv, args []string) string {
	parts := append(append([]string(nil), argv...), args...)
	if len(parts) > 12 {
		return fmt.Sprintf("%s ... (%d args)", strings.Join(parts[:12], " "), len(parts))
	}
	return strings.Join(parts, " ")
}
