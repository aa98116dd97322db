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

// Package vertex schedules notebooks as Vertex AI schedules that create
// notebook execution jobs.
package vertex

import (
	"context"
	"fmt"
	"io"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/storage"
	"sync"
	"time"

	"github.com/spf13/afero"
	aiplatform "google.golang.org/api/aiplatform/v1"
	"google.golang.org/api/option"
)

// Client manages Vertex AI schedules. Services are regional and created on
// first use.
type Client struct {
	cfg   *config.Config
	store storage.ObjectStore
	fs    afero.Fs
	now   func() time.Time

	mu       sync.Mutex
	services map[string]*aiplatform.Service
}

// Option customizes a Client.
type Option func(*Client)

// WithStore replaces the Cloud Storage backed object store used to upload
// local notebooks.
func WithStore(s storage.ObjectStore) Option {
	return func(c *Client) { c.store = s }
}

// WithFs replaces the local workspace filesystem.
func WithFs(fs afero.Fs) Option {
	return func(c *Client) { c.fs = fs }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient validates the credentials and prepares a client.
func NewClient(ctx context.Context, cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{cfg: cfg, now: time.Now, services: map[string]*aiplatform.Service{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		gcs, err := storage.NewGCS(ctx, cfg.ClientOptions(config.ServiceStorage)...)
		if err != nil {
			return nil, err
		}
		c.store = gcs
	}
	if c.fs == nil {
		c.fs = cfg.Workspace()
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

// Endpoint returns the regional Vertex AI endpoint.
func Endpoint(region string) string {
	return fmt.Sprintf("https://%s-aiplatform.googleapis.com/", region)
}

func (c *Client) region(region string) string {
	if region == "" {
		return c.cfg.RegionID
	}
	return region
}

func (c *Client) service(ctx context.Context, region string) (*aiplatform.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if svc, ok := c.services[region]; ok {
		return svc, nil
	}

	endpoint := c.cfg.Endpoint(config.ServiceAIPlatform)
	if endpoint == "" {
		endpoint = Endpoint(region)
	}
	svc, err := aiplatform.NewService(ctx,
		option.WithTokenSource(c.cfg.TokenSource()),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	c.services[region] = svc
	return svc, nil
}

func (c *Client) parent(region string) string {
	return fmt.Sprintf("projects/%s/locations/%s", c.cfg.ProjectID, region)
}

func (c *Client) scheduleName(region, id string) string {
	return fmt.Sprintf("%s/schedules/%s", c.parent(region), id)
}
