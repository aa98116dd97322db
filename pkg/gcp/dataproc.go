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

	"google.golang.org/api/dataproc/v1"
)

func (c *Client) dataproc(ctx context.Context) (*dataproc.Service, error) {
	svc, err := dataproc.NewService(ctx, c.cfg.ClientOptions(config.ServiceDataproc)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataproc client: %w", err)
	}
	return svc, nil
}

// ListClusters returns one page of the region's Dataproc clusters.
func (c *Client) ListClusters(ctx context.Context, pageSize int64, pageToken string) (*dataproc.ListClustersResponse, error) {
	svc, err := c.dataproc(ctx)
	if err != nil {
		return nil, err
	}
	call := svc.Projects.Regions.Clusters.List(c.cfg.ProjectID, c.cfg.RegionID).Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(pageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, wrap("clusters", err)
	}
	return resp, nil
}

// ListRuntimes returns one page of the region's serverless session templates.
func (c *Client) ListRuntimes(ctx context.Context, pageSize int64, pageToken string) (*dataproc.ListSessionTemplatesResponse, error) {
	svc, err := c.dataproc(ctx)
	if err != nil {
		return nil, err
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, c.cfg.RegionID)
	call := svc.Projects.Locations.SessionTemplates.List(parent).Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(pageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, wrap("runtimes", err)
	}
	return resp, nil
}
