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

// Package cmd implements the notebook-scheduler command line.
package cmd

import (
	"context"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/shell"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	verbosity    int
	quiet        bool
	outputFormat string

	// cfg is loaded once per invocation by the root PersistentPreRunE.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "notebook-scheduler",
	Short: "Schedules Jupyter notebooks on Cloud Composer and Vertex AI.",
	Long: `notebook-scheduler turns a notebook and its parameters into a recurring job,
either as an Airflow DAG uploaded to a Cloud Composer environment or as a
Vertex AI schedule, and lists, pauses, resumes, triggers and deletes those
schedules.

The access token, project and region are read from scheduler.yaml, from
NOTEBOOK_SCHEDULER_* environment variables or from the flags below.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v debug, -vv trace).")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Only log errors.")
	flags.StringVarP(&outputFormat, "output", "o", "", "Output format: json, yaml or table. Defaults to table on a terminal and json otherwise.")
	flags.String("project", "", "Google Cloud project ID. Inferred from gcloud when not set.")
	flags.String("region", "", "Google Cloud region.")
	flags.String("token", "", "OAuth2 access token.")
	flags.String("workspace", "", "Local directory for staged DAGs and downloaded outputs.")
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"project":   "project_id",
	"region":    "region_id",
	"token":     "access_token",
	"workspace": "workspace_dir",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command, args []string) error {
	logging.SetVerbosity(verbosity)
	if quiet {
		logging.SetQuiet()
	}
	if err := validateFormat(outputFormat); err != nil {
		return err
	}

	v := config.NewViper()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	loaded.ResolveFromGcloud(cmd.Context(), shell.ExecRunner{})
	cfg = loaded
	return nil
}

// requestContext bounds a single remote request by the configured timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
}

// Execute runs the root command. Errors are printed as JSON on stdout.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fail(err)
	}
}
