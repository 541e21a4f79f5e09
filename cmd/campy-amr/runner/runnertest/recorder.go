// Package runnertest provides a runner that records commands instead of
// executing them.
package runnertest

import (
	"context"
	"sync"

	"github.com/campy-amr/tools/cmd/campy-amr/runner"
)

// Recorder records every command. If Func is set it is called to simulate the
// program, for example by writing the files it would produce.
type Recorder struct {
	Func func(cmd runner.Command) error

	mu       sync.Mutex
	commands []runner.Command
}

func (r *Recorder) Run(ctx context.Context, cmd runner.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.Func != nil {
		return r.Func(cmd)
	}

	return nil
}

// Commands returns the recorded commands in the order they ran.
func (r *Recorder) Commands() []runner.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]runner.Command(nil), r.commands...)
}
