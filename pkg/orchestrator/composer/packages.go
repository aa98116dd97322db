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

package composer

import (
	"context"
	"fmt"
	"notebook-scheduler/pkg/logging"
	"strings"
)

// RequiredPackages must be present in an environment before a notebook can run
// on the Airflow workers.
var RequiredPackages = []string{"apache-airflow-providers-papermill", "ipykernel"}

// CheckPackages returns the required packages missing from env.
func (c *Client) CheckPackages(ctx context.Context, env, region string) ([]string, error) {
	if region == "" {
		region = c.cfg.RegionID
	}
	res := c.runner.Run(ctx, "gcloud", "beta", "composer", "environments", "list-packages", env, "--location", region)
	if !res.Success() {
		logging.Error("Error checking packages: %s", res.Stderr)
		return nil, fmt.Errorf("error checking packages: %s", strings.TrimSpace(res.Stderr))
	}

	installed := map[string]bool{}
	lines := strings.Split(res.Stdout, "\n")
	if len(lines) > 2 {
		lines = lines[2:]
	} else {
		lines = nil
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		installed[strings.ToLower(fields[0])] = true
	}

	missing := []string{}
	for _, pkg := range RequiredPackages {
		if installed[strings.ToLower(pkg)] {
			logging.Info("%s is already installed.", pkg)
			continue
		}
		missing = append(missing, pkg)
	}
	return missing, nil
}

// InstallPackages adds packages to env one at a time. Packages are only
// installed for jobs running on the local kernel. It reports whether any
// install ran.
func (c *Client) InstallPackages(ctx context.Context, localKernel bool, env string, packages []string, region string) (bool, error) {
	if !localKernel {
		return false, nil
	}
	if region == "" {
		region = c.cfg.RegionID
	}
	installing := false
	for _, pkg := range packages {
		logging.Info("%s is not installed. Installing...", pkg)
		installing = true
		res := c.runner.Run(ctx, "gcloud", "composer", "environments", "update", env,
			"--location", region, "--update-pypi-package", pkg)
		if !res.Success() {
			logging.Error("can not create schedule, error in installing the packages, error: %s", res.Stderr)
			return installing, fmt.Errorf("can not create schedule, error in installing the packages, error: %s", strings.TrimSpace(res.Stderr))
		}
	}
	return installing, nil
}

// CheckRequiredPackages is CheckPackages for the configured region.
func (c *Client) CheckRequiredPackages(ctx context.Context, env, region string) ([]string, error) {
	return c.CheckPackages(ctx, env, region)
}
