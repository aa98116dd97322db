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
	"notebook-scheduler/pkg/version"

	"github.com/spf13/cobra"
)

// Version is the release of this binary, set at build time with
// -ldflags "-X notebook-scheduler/cmd.Version=...".
var Version = "0.1.0"

var currentVersion string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version and manages plugin upgrades.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printResult(map[string]string{"version": Version})
	},
}

var versionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compares the installed plugin with the latest release.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := version.NewClient(cfg)
		latest, err := c.LatestVersion(cmd.Context(), cfg.PluginPackage)
		if err != nil {
			return err
		}
		upToDate, err := version.IsUpToDate(currentVersion, latest)
		if err != nil {
			return err
		}
		return printResult(map[string]any{
			"package":    cfg.PluginPackage,
			"current":    currentVersion,
			"latest":     latest,
			"up_to_date": upToDate,
		})
	},
}

var versionUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrades the plugin package with pip.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := version.NewClient(cfg).UpdatePlugin(cmd.Context(), cfg.PluginPackage)
		if err != nil {
			return err
		}
		return printResult(res)
	},
}

func init() {
	versionCheckCmd.Flags().StringVar(&currentVersion, "current", Version, "Installed plugin version to compare.")
	versionCmd.AddCommand(versionCheckCmd, versionUpgradeCmd)
	rootCmd.AddCommand(versionCmd)
}
