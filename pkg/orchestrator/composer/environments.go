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
	"net/http"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/storage"
	"path"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/pkg/errors"
	composerapi "google.golang.org/api/composer/v1"
	"google.golang.org/api/googleapi"
)

// ErrEnvironmentNotFound is returned when the named environment does not exist.
var ErrEnvironmentNotFound = errors.New("composer environment not found")

func environmentName(project, region, env string) string {
	return fmt.Sprintf("projects/%s/locations/%s/environments/%s", project, region, env)
}

// ListEnvironments returns every Composer environment in the location.
func (c *Client) ListEnvironments(ctx context.Context, project, region string) ([]models.ComposerEnvironment, error) {
	project, region = c.location(project, region)
	parent := fmt.Sprintf("projects/%s/locations/%s", project, region)
	logging.Debug("Listing composer environments in %s", parent)

	var envs []models.ComposerEnvironment
	err := c.service.Projects.Locations.Environments.List(parent).Pages(ctx, func(resp *composerapi.ListEnvironmentsResponse) error {
		for _, e := range resp.Environments {
			envs = append(envs, toModel(e))
		}
		return nil
	})
	if err != nil {
		logging.Error("Error fetching environments list: %v", err)
		return nil, fmt.Errorf("error fetching environments list: %w", err)
	}
	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

func toModel(e *composerapi.Environment) models.ComposerEnvironment {
	name := path.Base(e.Name)
	env := models.ComposerEnvironment{
		Name:           name,
		Label:          name,
		Description:    "Environment: " + name,
		State:          e.State,
		FileExtensions: []string{"ipynb"},
		Metadata:       map[string]string{"path": e.Name},
	}
	if e.Config != nil && e.Config.SoftwareConfig != nil && len(e.Config.SoftwareConfig.PypiPackages) > 0 {
		env.PypiPackages = e.Config.SoftwareConfig.PypiPackages
	}
	return env
}

// GetEnvironment fetches a single environment. An unknown name is reported
// together with the closest existing one.
func (c *Client) GetEnvironment(ctx context.Context, env, project, region string) (*composerapi.Environment, error) {
	project, region = c.location(project, region)
	e, err := c.service.Projects.Locations.Environments.Get(environmentName(project, region, env)).Context(ctx).Do()
	if err == nil {
		return e, nil
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		msg := fmt.Sprintf("%q in %s", env, region)
		if envs, lerr := c.ListEnvironments(ctx, project, region); lerr == nil {
			if s := suggest(env, envs); s != "" {
				msg += fmt.Sprintf(", did you mean %q?", s)
			}
		}
		return nil, errors.Wrap(ErrEnvironmentNotFound, msg)
	}
	return nil, fmt.Errorf("failed to get composer environment %s: %w", env, err)
}

// suggest returns the environment name closest to name, if any is close
// enough to be a plausible typo.
func suggest(name string, envs []models.ComposerEnvironment) string {
	best, bestDist := "", -1
	for _, e := range envs {
		d := levenshtein.Distance(strings.ToLower(name), strings.ToLower(e.Name), nil)
		if bestDist < 0 || d < bestDist {
			best, bestDist = e.Name, d
		}
	}
	if bestDist < 0 || bestDist > len(name)/2+1 {
		return ""
	}
	return best
}

// GetBucket returns the bucket holding the environment's DAGs.
func (c *Client) GetBucket(ctx context.Context, env, project, region string) (string, error) {
	e, err := c.GetEnvironment(ctx, env, project, region)
	if err != nil {
		logging.Error("Error getting bucket name: %v", err)
		return "", fmt.Errorf("error getting composer bucket: %w", err)
	}
	return bucketOf(env, e)
}

func bucketOf(env string, e *composerapi.Environment) (string, error) {
	if e.StorageConfig != nil && e.StorageConfig.Bucket != "" {
		return e.StorageConfig.Bucket, nil
	}
	if e.Config != nil && e.Config.DagGcsPrefix != "" {
		if bucket, _, err := storage.ParseURI(e.Config.DagGcsPrefix); err == nil {
			return bucket, nil
		}
	}
	return "", fmt.Errorf("error getting composer bucket: environment %s has no storage bucket", env)
}

// AirflowURI returns the base URL of the environment's Airflow webserver.
func (c *Client) AirflowURI(ctx context.Context, env, project, region string) (string, error) {
	e, err := c.GetEnvironment(ctx, env, project, region)
	if err != nil {
		return "", err
	}
	return airflowURIOf(env, e)
}

func airflowURIOf(env string, e *composerapi.Environment) (string, error) {
	if e.Config == nil || e.Config.AirflowUri == "" {
		return "", fmt.Errorf("environment %s has no airflow webserver", env)
	}
	return strings.TrimSuffix(e.Config.AirflowUri, "/"), nil
}
