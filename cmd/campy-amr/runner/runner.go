// Package runner executes the external bioinformatics tools the pipeline
// depends on and records their output in log files.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campy-amr/tools/cmd/campy-amr/logging"
)

// Command describes a single invocation of an external program.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// LogFile receives stdout followed by stderr. It is appended to so
	// several invocations can share one log.
	LogFile string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// ExitError is returned when a program exits with a non-zero status.
type ExitError struct {
	Command Command
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("command failed with exit status %d: %s", e.Code, e.Command)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += "\n" + s
	}
	return msg
}

// Runner runs commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// Exec runs commands as child processes without a shell.
type Exec struct{}

func (Exec) Run(ctx context.Context, c Command) error {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.L.Debug("running command", zap.Stringer("command", c), zap.String("dir", c.Dir))

	start := time.Now()
	err := cmd.Run()

	if c.LogFile != "" {
		if lerr := appendLog(c.LogFile, stdout.Bytes(), stderr.Bytes()); lerr != nil {
			logging.L.Warn("could not write command log", zap.String("path", c.LogFile), zap.Error(lerr))
		}
	}

	logging.L.Debug("command finished", zap.Stringer("command", c), zap.Duration("elapsed", time.Since(start)))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{
			Command: c,
			Code:    exitErr.ExitCode(),
			Stderr:  stderr.String(),
		}
	}

	return err
}

func appendLog(path string, stdout, stderr []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	for _, b := range [][]byte{stdout, []byte("\n"), stderr, []byte("\n")} {
		if _, err := f.Write(b); err != nil {
			f.Close()
			return err
		}
	}

	return f.Close()
}

// LookPath reports the tools that cannot be found on the PATH.
func LookPath(names ...string) error {
	var missing []string

	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("required tools not found on PATH: %s", strings.Join(missing, ", "))
	}

	return nil
}
