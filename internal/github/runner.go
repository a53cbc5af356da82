package github

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

type Runner interface {
	Run(ctx context.Context, args []string, stdin []byte) ([]byte, error)
}

// RealRunner shells out to the gh CLI. Command defaults to "gh".
type RealRunner struct {
	Command string
}

func (r RealRunner) Run(ctx context.Context, args []string, stdin []byte) ([]byte, error) {
	command := r.Command
	if command == "" {
		command = "gh"
	}
	cmd := exec.CommandContext(ctx, command, args...)
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("gh %v failed: %w\n%s", args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
