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

// Package gcp lists the Google Cloud resources a user picks from when creating
// a schedule: projects, Dataproc clusters and runtimes, KMS keys, networks and
// service accounts.
package gcp

import (
	"fmt"
	"net/http"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/logging"
	"path"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// ErrAuthentication is returned when the supplied token is rejected.
var ErrAuthentication = errors.New("AUTHENTICATION_ERROR")

// AuthStatus is the HTTP status reported for authentication failures.
const AuthStatus = http.StatusUnauthorized

// Client queries resource APIs in the configured project and region.
type Client struct {
	cfg *config.Config
}

// NewClient validates the credentials.
func NewClient(cfg *config.Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

// wrap turns a rejected token into ErrAuthentication and annotates other
// failures with what was being fetched.
func wrap(what string, err error) error {
	var gerr *googleapi.Error
	var rerr *oauth2.RetrieveError
	if (errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized) || errors.As(err, &rerr) {
		logging.Error("%s: %v", ErrAuthentication, err)
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	logging.Error("Error fetching %s: %v", what, err)
	return fmt.Errorf("error fetching %s: %w", what, err)
}

func shortName(name string) string {
	return path.Base(name)
}
