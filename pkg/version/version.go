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

// Package version checks the package index for plugin releases and upgrades
// the installed plugin.
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/shell"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// lookupTimeout bounds the package index request.
const lookupTimeout = 3 * time.Second

// Client talks to a package index and the local pip.
type Client struct {
	indexURL string
	python   string
	http     *http.Client
	runner   shell.Runner
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used to query the index.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRunner replaces the runner used to invoke pip.
func WithRunner(r shell.Runner) Option {
	return func(c *Client) { c.runner = r }
}

// WithPython sets the interpreter used to run pip.
func WithPython(python string) Option {
	return func(c *Client) { c.python = python }
}

func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		indexURL: strings.TrimSuffix(cfg.PackageIndexURL, "/"),
		python:   "python3",
		http:     http.DefaultClient,
		runner:   shell.ExecRunner{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type release struct {
	Info struct {
		Version string `json:"version"`
	} `json:"info"`
}

// LatestVersion returns the newest released version of pkg.
func (c *Client) LatestVersion(ctx context.Context, pkg string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/%s/json", c.indexURL, url.PathEscape(pkg))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		logging.Error("Error fetching latest version of %s: %v", pkg, err)
		return "", fmt.Errorf("error fetching latest version of %s: %w", pkg, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error fetching latest version of %s: %s", pkg, resp.Status)
	}
	var r release
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("failed to decode release info: %w", err)
	}
	if r.Info.Version == "" {
		return "", fmt.Errorf("no version reported for %s", pkg)
	}
	return r.Info.Version, nil
}

// IsUpToDate reports whether current is at least latest.
func IsUpToDate(current, latest string) (bool, error) {
	cv, err := goversion.NewVersion(current)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", current, err)
	}
	lv, err := goversion.NewVersion(latest)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", latest, err)
	}
	return cv.GreaterThanOrEqual(lv), nil
}

// UpdatePlugin upgrades pkg with pip.
func (c *Client) UpdatePlugin(ctx context.Context, pkg string) (map[string]string, error) {
	logging.Info("Upgrading %s", pkg)
	res := c.runner.Run(ctx, c.python, "-m", "pip", "install", "--upgrade", pkg)
	if !res.Success() {
		logging.Error("Failed to upgrade package %s: %s", pkg, res.Stderr)
		return nil, fmt.Errorf("failed to upgrade package %s: exit status %d: %s", pkg, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return map[string]string{"status": "ok"}, nil
}
