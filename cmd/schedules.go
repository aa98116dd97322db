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

package cmd

import (
	"fmt"
	"io"
	"notebook-scheduler/pkg/orchestrator"
	"notebook-scheduler/pkg/orchestrator/composer"
	"notebook-scheduler/pkg/orchestrator/vertex"

	"github.com/spf13/cobra"
)

const (
	backendComposer = orchestrator.BackendComposer
	backendVertex   = orchestrator.BackendVertex
)

var statusOK = map[string]int{"status": 0}

var scheduleBackend string

var schedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Lists schedules of either backend in a common form.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, closer, err := newOrchestrator(cmd, scheduleBackend)
		if err != nil {
			return err
		}
		defer closer.Close()
		schedules, err := o.ListSchedules(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(schedules)
	},
}

func init() {
	rootCmd.AddCommand(schedulesCmd)
	schedulesCmd.Flags().StringVarP(&scheduleBackend, "backend", "b", backendComposer, "Backend to list: composer or vertex.")
	schedulesCmd.Flags().StringVarP(&composerEnv, "env", "e", "", "Name of the Composer environment, for the composer backend.")
}

// newOrchestrator returns backend's orchestrator and the client to close once
// the command is done.
func newOrchestrator(cmd *cobra.Command, backend string) (orchestrator.Orchestrator, io.Closer, error) {
	switch backend {
	case backendComposer:
		if err := requireEnv(); err != nil {
			return nil, nil, err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return nil, nil, err
		}
		return composer.NewComposerOrchestrator(c, composerEnv, cfg.ProjectID, cfg.RegionID), c, nil
	case backendVertex:
		c, err := vertex.NewClient(cmd.Context(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return vertex.NewVertexOrchestrator(c, cfg.RegionID), c, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q, expected %s or %s", backend, backendComposer, backendVertex)
}

// withOrchestrator runs a single-schedule control operation against backend.
func withOrchestrator(backend string, run func(*cobra.Command, orchestrator.Orchestrator, string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		o, closer, err := newOrchestrator(cmd, backend)
		if err != nil {
			return err
		}
		defer closer.Close()
		res, err := run(cmd, o, args[0])
		if err != nil {
			return err
		}
		return printResult(res)
	}
}
