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

package gcp

import (
	"context"
	"fmt"
	"notebook-scheduler/pkg/config"

	crm "google.golang.org/api/cloudresourcemanager/v3"
)

// Project is a project the caller can see.
type Project struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Name      string `json:"name" yaml:"name"`
}

// ListProjects returns every project visible to the token.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	svc, err := crm.NewService(ctx, c.cfg.ClientOptions(config.ServiceResourceManager)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager client: %w", err)
	}
	projects := []Project{}
	err = svc.Projects.Search().Pages(ctx, func(resp *crm.SearchProjectsResponse) error {
		for _, p := range resp.Projects {
			projects = append(projects, Project{ProjectID: p.ProjectId, Name: p.DisplayName})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("projects", err)
	}
	return projects, nil
}
