// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package shell runs the external command line tools (gcloud, pip) that the
// scheduler uses as side channels.
package shell

import (
	"bytes"
	"context"
	"errors"
	"notebook-scheduler/pkg/logging"
	"os/exec"
	"strings"
)

// CommandResult holds the outcome of a finished command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the command exited with status 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Runner executes commands. Tests substitute a fake to avoid invoking gcloud.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) CommandResult
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) CommandResult {
	return NewCommandContext(ctx, name, args...).Execute()
}

// Command is a command waiting to be executed.
type Command struct {
	ctx  context.Context
	name string
	args []string
}

// NewCommand prepares a command. A single name containing spaces is split into
// the program and its arguments.
func NewCommand(name string, args ...string) *Command {
	return NewCommandContext(context.Background(), name, args...)
}

// NewCommandContext is NewCommand bound to a context.
func NewCommandContext(ctx context.Context, name string, args ...string) *Command {
	if len(args) == 0 && strings.Contains(name, " ") {
		fields := strings.Fields(name)
		name, args = fields[0], fields[1:]
	}
	return &Command{ctx: ctx, name: name, args: args}
}

// String returns the command line.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// Execute runs the command and waits for it to finish.
func (c *Command) Execute() CommandResult {
	logging.Debug("Executing: %s", c.String())

	cmd := exec.CommandContext(c.ctx, c.name, c.args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := CommandResult{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			// the binary could not be started at all
			res.ExitCode = -1
			stderr.WriteString(err.Error())
		}
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}
