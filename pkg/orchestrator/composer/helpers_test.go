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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/shell"
	"notebook-scheduler/pkg/storage"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const (
	testProject = "proj"
	testRegion  = "us-central1"
	testBucket  = "env-bucket"
)

var testNow = time.Date(2026, 5, 14, 10, 30, 0, 0, time.UTC)

// fakeRunner records commands and answers them from a table keyed by the full
// command line. Unknown commands succeed with no output.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	results map[string]shell.CommandResult
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) shell.CommandResult {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if r, ok := f.results[cmd]; ok {
		return r
	}
	return shell.CommandResult{}
}

// fakeEnvironment serves the Composer API for a single environment, env-1,
// whose Airflow webserver is airflowURL.
func fakeEnvironment(t *testing.T, airflowURL string) *httptest.Server {
	t.Helper()
	envName := "projects/" + testProject + "/locations/" + testRegion + "/environments/env-1"
	env := map[string]any{
		"name":  envName,
		"state": "RUNNING",
		"config": map[string]any{
			"airflowUri":   airflowURL,
			"dagGcsPrefix": "gs://" + testBucket + "/dags",
			"softwareConfig": map[string]any{
				"pypiPackages": map[string]string{"pandas": ">=2.0"},
			},
		},
		"storageConfig": map[string]any{"bucket": testBucket},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/" + envName:
			json.NewEncoder(w).Encode(env)
		case "/v1/projects/" + testProject + "/locations/" + testRegion + "/environments":
			json.NewEncoder(w).Encode(map[string]any{"environments": []any{env}})
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"not found","status":"NOT_FOUND"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testClient struct {
	*Client
	store  *storage.FsStore
	fs     afero.Fs
	runner *fakeRunner
}

func newTestClient(t *testing.T, airflowURL string) *testClient {
	t.Helper()
	srv := fakeEnvironment(t, airflowURL)
	cfg := &config.Config{
		Credentials: config.Credentials{AccessToken: "token", ProjectID: testProject, RegionID: testRegion},
		Account:     "jane.doe@example.com",
		Endpoints:   map[string]string{config.ServiceComposer: srv.URL + "/"},
	}
	tc := &testClient{
		store:  storage.NewFsStore(afero.NewMemMapFs()),
		fs:     afero.NewMemMapFs(),
		runner: &fakeRunner{results: map[string]shell.CommandResult{}},
	}
	c, err := NewClient(context.Background(), cfg,
		WithStore(tc.store),
		WithFs(tc.fs),
		WithRunner(tc.runner),
		WithClock(func() time.Time { return testNow }),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	tc.Client = c
	return tc
}
