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
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/orchestrator"
	"notebook-scheduler/pkg/orchestrator/vertex"

	"github.com/spf13/cobra"
)

var (
	vertexPageSize  int64
	vertexPageToken string
	vertexRunsStart string
	vertexRunsEnd   string
)

var vertexCmd = &cobra.Command{
	Use:   "vertex",
	Short: "Schedules notebooks as Vertex AI schedules.",
}

var vertexCreateCmd = &cobra.Command{
	Use:   "create [job.json|-]",
	Short: "Creates a Vertex AI notebook schedule from a JSON request.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := readVertexJob(cmd, args)
		if err != nil {
			return err
		}
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.CreateSchedule(cmd.Context(), job)
		})
	},
}

var vertexUpdateCmd = &cobra.Command{
	Use:   "update SCHEDULE_ID [job.json|-]",
	Short: "Replaces the settings of a schedule.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		job, err := readVertexJob(cmd, args[1:])
		if err != nil {
			return err
		}
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.UpdateSchedule(cmd.Context(), cfg.RegionID, args[0], job)
		})
	},
}

var vertexListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists notebook schedules with the state of their latest run.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.ListSchedules(cmd.Context(), cfg.RegionID, vertexPageSize, vertexPageToken)
		})
	},
}

var vertexGetCmd = &cobra.Command{
	Use:   "get SCHEDULE_ID",
	Short: "Prints a schedule.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.GetSchedule(cmd.Context(), cfg.RegionID, args[0])
		})
	},
}

var vertexPauseCmd = &cobra.Command{
	Use:   "pause SCHEDULE_ID",
	Short: "Pauses a schedule.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendVertex, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return statusOK, o.PauseSchedule(cmd.Context(), id)
	}),
}

var vertexResumeCmd = &cobra.Command{
	Use:   "resume SCHEDULE_ID",
	Short: "Resumes a paused schedule.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendVertex, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return statusOK, o.ResumeSchedule(cmd.Context(), id)
	}),
}

var vertexTriggerCmd = &cobra.Command{
	Use:   "trigger SCHEDULE_ID",
	Short: "Starts a run of a schedule now.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendVertex, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return o.TriggerSchedule(cmd.Context(), id)
	}),
}

var vertexDeleteCmd = &cobra.Command{
	Use:   "delete SCHEDULE_ID",
	Short: "Deletes a schedule.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.DeleteSchedule(cmd.Context(), cfg.RegionID, args[0])
		})
	},
}

var vertexRunsCmd = &cobra.Command{
	Use:   "runs SCHEDULE_ID",
	Short: "Lists the executions of a schedule, newest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			return c.ListNotebookExecutionJobs(cmd.Context(), cfg.RegionID, args[0], vertexRunsStart, vertexRunsEnd)
		})
	},
}

var vertexDownloadCmd = &cobra.Command{
	Use:   "download OUTPUT_URI RUN_ID FILE_NAME",
	Short: "Downloads the output notebook of an execution into the workspace.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			p, err := c.DownloadOutput(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return nil, err
			}
			return map[string]any{"status": 0, "path": p}, nil
		})
	},
}

var vertexOutputExistsCmd = &cobra.Command{
	Use:   "output-exists OUTPUT_URI RUN_ID FILE_NAME",
	Short: "Reports whether an execution wrote its output notebook.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVertex(cmd, func(c *vertex.Client) (any, error) {
			ok, err := c.OutputFileExists(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return nil, err
			}
			return map[string]bool{"exists": ok}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(vertexCmd)

	vertexListCmd.Flags().Int64Var(&vertexPageSize, "page-size", 0, "Maximum number of schedules per page.")
	vertexListCmd.Flags().StringVar(&vertexPageToken, "page-token", "", "Token of the page to fetch.")
	vertexRunsCmd.Flags().StringVar(&vertexRunsStart, "start", "", "Only runs created at or after this RFC 3339 time.")
	vertexRunsCmd.Flags().StringVar(&vertexRunsEnd, "end", "", "Only runs created before this RFC 3339 time.")

	vertexCmd.AddCommand(
		vertexCreateCmd,
		vertexUpdateCmd,
		vertexListCmd,
		vertexGetCmd,
		vertexPauseCmd,
		vertexResumeCmd,
		vertexTriggerCmd,
		vertexDeleteCmd,
		vertexRunsCmd,
		vertexDownloadCmd,
		vertexOutputExistsCmd,
	)
}

func withVertex(cmd *cobra.Command, run func(*vertex.Client) (any, error)) error {
	c, err := vertex.NewClient(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	res, err := run(c)
	if err != nil {
		return err
	}
	return printResult(res)
}

func readVertexJob(cmd *cobra.Command, args []string) (*models.VertexJob, error) {
	input, err := readRequest(cmd, args)
	if err != nil {
		return nil, err
	}
	return models.DecodeVertexJob(input)
}
