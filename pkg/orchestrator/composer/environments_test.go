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
	"errors"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/models"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), &config.Config{})
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Errorf("NewClient() error = %v, want ErrMissingCredentials", err)
	}
}

func TestListEnvironments(t *testing.T) {
	c := newTestClient(t, "https://airflow.example.com")

	got, err := c.ListEnvironments(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	want := []models.ComposerEnvironment{{
		Name:           "env-1",
		Label:          "env-1",
		Description:    "Environment: env-1",
		State:          "RUNNING",
		FileExtensions: []string{"ipynb"},
		Metadata:       map[string]string{"path": "projects/proj/locations/us-central1/environments/env-1"},
		PypiPackages:   map[string]string{"pandas": ">=2.0"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListEnvironments() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetBucket(t *testing.T) {
	c := newTestClient(t, "https://airflow.example.com")
	ctx := context.Background()

	bucket, err := c.GetBucket(ctx, "env-1", testProject, testRegion)
	if err != nil {
		t.Fatalf("GetBucket() error = %v", err)
	}
	if bucket != testBucket {
		t.Errorf("GetBucket() = %q, want %q", bucket, testBucket)
	}

	_, err = c.GetBucket(ctx, "env-2", testProject, testRegion)
	if err == nil {
		t.Fatal("GetBucket() for unknown environment: want error")
	}
	if !errors.Is(err, ErrEnvironmentNotFound) {
		t.Errorf("GetBucket() error = %v, want ErrEnvironmentNotFound", err)
	}
	if !strings.Contains(err.Error(), "error getting composer bucket") {
		t.Errorf("GetBucket() error = %q, want composer bucket prefix", err)
	}
	if !strings.Contains(err.Error(), `did you mean "env-1"`) {
		t.Errorf("GetBucket() error = %q, want suggestion", err)
	}
}

func TestAirflowURI(t *testing.T) {
	c := newTestClient(t, "https://airflow.example.com/")
	got, err := c.AirflowURI(context.Background(), "env-1", "", "")
	if err != nil {
		t.Fatalf("AirflowURI() error = %v", err)
	}
	if got != "https://airflow.example.com" {
		t.Errorf("AirflowURI() = %q", got)
	}
}

func TestSuggest(t *testing.T) {
	envs := []models.ComposerEnvironment{{Name: "prod-composer"}, {Name: "dev-composer"}}
	tests := []struct {
		name, want string
	}{
		{"prod-composr", "prod-composer"},
		{"DEV-composer", "dev-composer"},
		{"something-else-entirely", ""},
	}
	for _, tc := range tests {
		if got := suggest(tc.name, envs); got != tc.want {
			t.Errorf("suggest(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
	if got := suggest("x", nil); got != "" {
		t.Errorf("suggest() with no environments = %q", got)
	}
}
