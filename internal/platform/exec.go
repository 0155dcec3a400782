package platform

import (
	"context"
	"os/exec"
)

// runner abstracts subprocess invocation so backends can be tested with
// canned output.
type runner interface {
	// output runs the command and returns its combined stdout/stderr.
	output(ctx context.Context, name string, args ...string) (string, error)
	// run executes the command for its side effect only.
	run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return string(out), err
}

func (execRunner) run(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Interface guard; *execRunner is what New wires in.
var _ runner = (*execRunner)(nil)
