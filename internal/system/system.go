// Package system holds the host integrations of the covermaker service:
// console mode, exit keys and address discovery.
package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

type Runner interface {
	Run(ctx context.Context, cmd string, args ...string) (stdout, stderr string, err error)
}

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

type NoopRunner struct{}

func (NoopRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	return "", "", nil
}

// ShellRunner executes commands resolved through PATH, via sudo when Sudo is set.
// It returns stdout, stderr, and an error if the command exits non-zero.
type ShellRunner struct {
	Sudo bool
}

func (s ShellRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	name := cmd
	if s.Sudo {
		args = append([]string{cmd}, args...)
		name = "sudo"
	}
	c := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	c.Stdout = &outBuf
	c.Stderr = &errBuf
	if err := c.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return outBuf.String(), errBuf.String(), fmt.Errorf("exit %d: %w", exitErr.ExitCode(), err)
		}
		return outBuf.String(), errBuf.String(), err
	}
	return outBuf.String(), errBuf.String(), nil
}
