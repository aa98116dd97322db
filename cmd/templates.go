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
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/orchestrator/composer"

	"github.com/otiai10/copy"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Works with the embedded DAG templates.",
}

var templatesExportCmd = &cobra.Command{
	Use:   "export DIR",
	Short: "Writes the DAG templates and the papermill wrapper to DIR.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := exportTemplates(args[0]); err != nil {
			return err
		}
		return printResult(map[string]any{"status": 0, "path": args[0]})
	},
}

func exportTemplates(dir string) error {
	logging.Info("Exporting templates to %s", dir)
	return copy.Copy("templates", dir, copy.Options{
		FS: composer.Templates,
		// Embedded files are read-only.
		PermissionControl: copy.AddPermission(0o200),
	})
}

func init() {
	templatesCmd.AddCommand(templatesExportCmd)
	rootCmd.AddCommand(templatesCmd)
}
