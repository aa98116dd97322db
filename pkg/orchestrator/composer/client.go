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

// Package composer schedules notebooks as Airflow DAGs on Cloud Composer.
//
// A scheduled job is a generated DAG file in the environment's bucket together
// with the input notebook, a papermill wrapper and a JSON copy of the request
// that produced it. Runs, task instances and logs are read back through the
// environment's Airflow REST API.
package composer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/shell"
	"notebook-scheduler/pkg/storage"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	composerapi "google.golang.org/api/composer/v1"
)

// Client talks to Composer, its bucket and its Airflow webserver.
type Client struct {
	cfg        *config.Config
	service    *composerapi.Service
	store      storage.ObjectStore
	runner     shell.Runner
	fs         afero.Fs
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithStore replaces the Cloud Storage backed object store.
func WithStore(s storage.ObjectStore) Option {
	return func(c *Client) { c.store = s }
}

// WithRunner replaces the runner used for gcloud commands.
func WithRunner(r shell.Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithFs replaces the local workspace filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

// WithHTTPClient replaces the client used for Airflow REST calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates the credentials and builds the Composer API client.
func NewClient(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	svc, err := composerapi.NewService(ctx, cfg.ClientOptions(config.ServiceComposer)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create composer client: %w", err)
	}
	c.service = svc

	if c.store == nil {
		gcs, err := storage.NewGCS(ctx, cfg.ClientOptions(config.ServiceStorage)...)
		if err != nil {
			return nil, err
		}
		c.store = gcs
	}
	if c.runner == nil {
		c.runner = shell.ExecRunner{}
	}
	if c.fs == nil {
		c.fs = cfg.Workspace()
	}
	if c.httpClient == nil {
		c.httpClient = oauth2.NewClient(ctx, cfg.TokenSource())
	}
	return c, nil
}

// Close releases the object store's client, if it holds one.
func (c *Client) Close() error {
	if cl, ok := c.store.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// location falls back to the configured project and region when either is
// empty.
func (c *Client) location(project, region string) (string, string) {
	if project == "" || region == "" {
		return c.cfg.ProjectID, c.cfg.RegionID
	}
	return project, region
}
