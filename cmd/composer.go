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
	"encoding/json"
	"fmt"
	"io"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/orchestrator"
	"notebook-scheduler/pkg/orchestrator/composer"
	"notebook-scheduler/pkg/storage"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// dryRunDir holds the objects a dry run would have uploaded, relative to the
// workspace.
const dryRunDir = ".dry-run"

var (
	composerEnv  string
	dryRun       bool
	runsStart    string
	runsEnd      string
	runsOffset   int
	logTry       int
	outputBucket string
	installPkgs  []string
)

var composerCmd = &cobra.Command{
	Use:   "composer",
	Short: "Schedules notebooks as Airflow DAGs in Cloud Composer.",
}

var composerEnvironmentsCmd = &cobra.Command{
	Use:   "environments",
	Short: "Lists the Composer environments of the project and region.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		ctx, cancel := requestContext(cmd)
		defer cancel()
		envs, err := c.ListEnvironments(ctx, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(envs)
	},
}

var composerBucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Prints the Cloud Storage bucket of an environment.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		ctx, cancel := requestContext(cmd)
		defer cancel()
		bucket, err := c.GetBucket(ctx, composerEnv, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(models.BucketName{BucketName: bucket})
	},
}

var composerAirflowURICmd = &cobra.Command{
	Use:   "airflow-uri",
	Short: "Prints the Airflow webserver URL of an environment.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		ctx, cancel := requestContext(cmd)
		defer cancel()
		uri, err := c.AirflowURI(ctx, composerEnv, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(map[string]string{"airflow_uri": uri})
	},
}

var composerCreateCmd = &cobra.Command{
	Use:   "create [job.json|-]",
	Short: "Creates a scheduled notebook job from a JSON request.",
	Long: `Creates a scheduled notebook job. The request is read from the given file,
or from stdin when the argument is "-" or missing. The notebook, its payload and
the generated DAG are uploaded to the environment's bucket.

With --dry-run the bucket is still looked up but every upload is written below
` + dryRunDir + ` in the workspace instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := readRequest(cmd, args)
		if err != nil {
			return err
		}
		c, err := newComposerClient(cmd, dryRun)
		if err != nil {
			return err
		}
		defer c.Close()
		res, err := c.Execute(cmd.Context(), input, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

var composerPackagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "Checks and installs the Python packages scheduled notebooks need.",
}

var composerPackagesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Lists the required packages missing from an environment.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		missing, err := c.CheckRequiredPackages(cmd.Context(), composerEnv, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(missing)
	},
}

var composerPackagesInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Installs packages into an environment.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		pkgs := installPkgs
		if len(pkgs) == 0 {
			if pkgs, err = c.CheckRequiredPackages(cmd.Context(), composerEnv, cfg.RegionID); err != nil {
				return err
			}
		}
		installed, err := c.InstallPackages(cmd.Context(), true, composerEnv, pkgs, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(map[string]any{"installed": installed, "packages": pkgs})
	},
}

var composerDagsCmd = &cobra.Command{
	Use:   "dags",
	Short: "Inspects the scheduler's DAGs in Airflow.",
}

var composerDagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the DAGs created by the scheduler.",
	Args:  cobra.NoArgs,
	RunE: withAirflow(func(cmd *cobra.Command, af *composer.Airflow, args []string) (any, error) {
		return af.ListDags(cmd.Context())
	}),
}

var composerRunsCmd = &cobra.Command{
	Use:   "runs DAG_ID",
	Short: "Lists the runs of a DAG.",
	Args:  cobra.ExactArgs(1),
	RunE: withAirflow(func(cmd *cobra.Command, af *composer.Airflow, args []string) (any, error) {
		return af.ListDagRuns(cmd.Context(), args[0], runsStart, runsEnd, runsOffset)
	}),
}

var composerTasksCmd = &cobra.Command{
	Use:   "tasks DAG_ID RUN_ID",
	Short: "Lists the task instances of a DAG run.",
	Args:  cobra.ExactArgs(2),
	RunE: withAirflow(func(cmd *cobra.Command, af *composer.Airflow, args []string) (any, error) {
		return af.ListDagRunTasks(cmd.Context(), args[0], args[1])
	}),
}

var composerLogsCmd = &cobra.Command{
	Use:   "logs DAG_ID RUN_ID TASK_ID",
	Short: "Prints the log of a task instance.",
	Args:  cobra.ExactArgs(3),
	RunE: withAirflow(func(cmd *cobra.Command, af *composer.Airflow, args []string) (any, error) {
		content, err := af.TaskLogs(cmd.Context(), args[0], args[1], args[2], logTry)
		if err != nil {
			return nil, err
		}
		return map[string]string{"content": content}, nil
	}),
}

var composerImportErrorsCmd = &cobra.Command{
	Use:   "import-errors",
	Short: "Lists DAG files Airflow failed to import.",
	Args:  cobra.NoArgs,
	RunE: withAirflow(func(cmd *cobra.Command, af *composer.Airflow, args []string) (any, error) {
		return af.ListImportErrors(cmd.Context())
	}),
}

var composerPauseCmd = &cobra.Command{
	Use:   "pause DAG_ID",
	Short: "Pauses a DAG.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendComposer, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return statusOK, o.PauseSchedule(cmd.Context(), id)
	}),
}

var composerResumeCmd = &cobra.Command{
	Use:   "resume DAG_ID",
	Short: "Resumes a paused DAG.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendComposer, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return statusOK, o.ResumeSchedule(cmd.Context(), id)
	}),
}

var composerDeleteCmd = &cobra.Command{
	Use:   "delete DAG_ID",
	Short: "Deletes a DAG file and its Airflow metadata.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendComposer, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return statusOK, o.DeleteSchedule(cmd.Context(), id)
	}),
}

var composerTriggerCmd = &cobra.Command{
	Use:   "trigger DAG_ID",
	Short: "Starts a manual run of a DAG.",
	Args:  cobra.ExactArgs(1),
	RunE: withOrchestrator(backendComposer, func(cmd *cobra.Command, o orchestrator.Orchestrator, id string) (any, error) {
		return o.TriggerSchedule(cmd.Context(), id)
	}),
}

var composerDownloadCmd = &cobra.Command{
	Use:   "download DAG_ID RUN_ID",
	Short: "Downloads the output notebook of a DAG run into the workspace.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		p, err := c.DownloadDAGOutput(cmd.Context(), composerEnv, outputBucket, args[0], args[1], cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		return printResult(map[string]any{"status": 0, "path": p})
	},
}

var composerPayloadCmd = &cobra.Command{
	Use:   "payload DAG_ID",
	Short: "Prints the request a DAG was created from.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		bucket, err := c.GetBucket(cmd.Context(), composerEnv, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		payload, err := c.GetJobPayload(cmd.Context(), bucket, args[0])
		if err != nil {
			return err
		}
		return printResult(payload)
	},
}

func init() {
	rootCmd.AddCommand(composerCmd)
	composerCmd.PersistentFlags().StringVarP(&composerEnv, "env", "e", "", "Name of the Composer environment.")

	composerCreateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Write uploads to the workspace instead of Cloud Storage.")
	composerRunsCmd.Flags().StringVar(&runsStart, "start", "", "Only runs started at or after this RFC 3339 time.")
	composerRunsCmd.Flags().StringVar(&runsEnd, "end", "", "Only runs started at or before this RFC 3339 time.")
	composerRunsCmd.Flags().IntVar(&runsOffset, "offset", 0, "Number of runs to skip.")
	composerLogsCmd.Flags().IntVar(&logTry, "try", 1, "Task try number.")
	composerDownloadCmd.Flags().StringVar(&outputBucket, "bucket", "", "Bucket holding the output. Defaults to the environment's bucket.")
	composerPackagesInstallCmd.Flags().StringSliceVar(&installPkgs, "packages", nil, "Packages to install. Defaults to the missing required packages.")

	composerPackagesCmd.AddCommand(composerPackagesCheckCmd, composerPackagesInstallCmd)
	composerDagsCmd.AddCommand(composerDagsListCmd)
	composerCmd.AddCommand(
		composerEnvironmentsCmd,
		composerBucketCmd,
		composerAirflowURICmd,
		composerCreateCmd,
		composerPackagesCmd,
		composerDagsCmd,
		composerRunsCmd,
		composerTasksCmd,
		composerLogsCmd,
		composerPauseCmd,
		composerResumeCmd,
		composerDeleteCmd,
		composerTriggerCmd,
		composerDownloadCmd,
		composerImportErrorsCmd,
		composerPayloadCmd,
	)
}

func newComposerClient(cmd *cobra.Command, dryRun bool) (*composer.Client, error) {
	var opts []composer.Option
	if dryRun {
		fs := afero.NewBasePathFs(cfg.Workspace(), dryRunDir)
		opts = append(opts, composer.WithStore(storage.NewFsStore(fs)))
		logging.Info("Dry run: uploads go to %s", dryRunDir)
	}
	return composer.NewClient(cmd.Context(), cfg, opts...)
}

// requireEnv fails commands that talk to a specific environment without --env.
func requireEnv() error {
	if composerEnv == "" {
		return fmt.Errorf("--env is required")
	}
	return nil
}

func withAirflow(run func(*cobra.Command, *composer.Airflow, []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := requireEnv(); err != nil {
			return err
		}
		c, err := newComposerClient(cmd, false)
		if err != nil {
			return err
		}
		defer c.Close()
		af, err := c.Airflow(cmd.Context(), composerEnv, cfg.ProjectID, cfg.RegionID)
		if err != nil {
			return err
		}
		res, err := run(cmd, af, args)
		if err != nil {
			return err
		}
		return printResult(res)
	}
}

// readRequest decodes a JSON object from the file named by args[0] or stdin.
func readRequest(cmd *cobra.Command, args []string) (map[string]any, error) {
	var r io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var input map[string]any
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return input, nil
}
