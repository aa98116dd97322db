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

package vertex

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/orchestrator"
	"notebook-scheduler/pkg/storage"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProject = "proj"
	testRegion  = "us-central1"
	parent      = "projects/proj/locations/us-central1"
)

// fakeVertex is a minimal in-memory Vertex AI schedules API.
type fakeVertex struct {
	mu        sync.Mutex
	schedules map[string]map[string]any
	created   []map[string]any
	patched   []string
	paused    []string
	resumed   []string
	jobs      []map[string]any
	runsDown  bool
}

func newFakeVertex() *fakeVertex {
	return &fakeVertex{schedules: map[string]map[string]any{
		"111": {
			"name":        parent + "/schedules/111",
			"displayName": "nightly",
			"cron":        "TZ=Asia/Kolkata 0 1 * * *",
			"state":       "ACTIVE",
			"nextRunTime": "2026-05-15T19:30:00Z",
			"createNotebookExecutionJobRequest": map[string]any{
				"parent": parent,
				"notebookExecutionJob": map[string]any{
					"displayName":       "nightly",
					"gcsNotebookSource": map[string]any{"uri": "gs://out/nightly/nb.ipynb"},
					"gcsOutputUri":      "gs://out",
				},
			},
		},
		"222": {
			"name":        parent + "/schedules/222",
			"displayName": "pipeline",
			"cron":        "0 0 * * *",
			"state":       "ACTIVE",
		},
	}}
}

func (f *fakeVertex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	p := strings.TrimPrefix(r.URL.Path, "/v1/")
	enc := json.NewEncoder(w)

	switch {
	case p == parent+"/schedules" && r.Method == http.MethodPost:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.created = append(f.created, body)
		body["name"] = parent + "/schedules/333"
		enc.Encode(body)
	case p == parent+"/schedules" && r.Method == http.MethodGet:
		enc.Encode(map[string]any{"schedules": []any{f.schedules["111"], f.schedules["222"]}})
	case strings.HasSuffix(p, ":pause"):
		f.paused = append(f.paused, strings.TrimSuffix(p, ":pause"))
		io.WriteString(w, "{}")
	case strings.HasSuffix(p, ":resume"):
		f.resumed = append(f.resumed, strings.TrimSuffix(p, ":resume"))
		io.WriteString(w, "{}")
	case strings.HasPrefix(p, parent+"/schedules/") && r.Method == http.MethodPatch:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.patched = append(f.patched, r.URL.Query().Get("updateMask"))
		w.Write(body)
	case strings.HasPrefix(p, parent+"/schedules/") && r.Method == http.MethodDelete:
		enc.Encode(map[string]any{"name": p + "/operations/9", "done": false})
	case strings.HasPrefix(p, parent+"/schedules/") && r.Method == http.MethodGet:
		s, ok := f.schedules[strings.TrimPrefix(p, parent+"/schedules/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"code":404,"message":"not found"}}`)
			return
		}
		enc.Encode(s)
	case p == parent+"/notebookExecutionJobs" && r.Method == http.MethodPost:
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.jobs = append(f.jobs, body)
		enc.Encode(map[string]any{"name": parent + "/notebookExecutionJobs/777/operations/1"})
	case p == parent+"/notebookExecutionJobs" && r.Method == http.MethodGet && f.runsDown:
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":{"code":403,"message":"permission denied"}}`)
	case p == parent+"/notebookExecutionJobs" && r.Method == http.MethodGet:
		filter := r.URL.Query().Get("filter")
		if !strings.Contains(filter, `schedules/111"`) {
			enc.Encode(map[string]any{})
			return
		}
		enc.Encode(map[string]any{"notebookExecutionJobs": []any{
			map[string]any{
				"name":              parent + "/notebookExecutionJobs/555",
				"displayName":       "nightly",
				"jobState":          "JOB_STATE_FAILED",
				"createTime":        "2026-05-14T01:00:00Z",
				"updateTime":        "2026-05-14T01:02:05Z",
				"gcsOutputUri":      "gs://out",
				"gcsNotebookSource": map[string]any{"uri": "gs://out/nightly/nb.ipynb"},
				"status":            map[string]any{"code": 13, "message": "kernel died"},
			},
			map[string]any{
				"name":     parent + "/notebookExecutionJobs/444",
				"jobState": "JOB_STATE_SUCCEEDED",
			},
		}})
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"code":404,"message":"no route"}}`)
	}
}

type testClient struct {
	*Client
	fake  *fakeVertex
	store *storage.FsStore
	fs    afero.Fs
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	fake := newFakeVertex()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Credentials: config.Credentials{AccessToken: "token", ProjectID: testProject, RegionID: testRegion},
		Endpoints:   map[string]string{config.ServiceAIPlatform: srv.URL + "/"},
	}
	tc := &testClient{fake: fake, store: storage.NewFsStore(afero.NewMemMapFs()), fs: afero.NewMemMapFs()}
	c, err := NewClient(context.Background(), cfg,
		WithStore(tc.store),
		WithFs(tc.fs),
		WithClock(func() time.Time { return time.Date(2026, 5, 14, 12, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	tc.Client = c
	return tc
}

// closingStore is an object store that records Close.
type closingStore struct {
	*storage.FsStore
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return nil
}

func TestClientClose(t *testing.T) {
	store := &closingStore{FsStore: storage.NewFsStore(afero.NewMemMapFs())}
	cfg := &config.Config{
		Credentials: config.Credentials{AccessToken: "token", ProjectID: testProject, RegionID: testRegion},
	}
	c, err := NewClient(context.Background(), cfg, WithStore(store), WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, store.closed)

	assert.NoError(t, newTestClient(t).Close())
}

func vertexJob() *models.VertexJob {
	return &models.VertexJob{
		InputFilename:      "nb.ipynb",
		DisplayName:        "nightly",
		MachineType:        "n1-standard-4 (4 vCPUs, 15 GB RAM)",
		AcceleratorType:    "NVIDIA_TESLA_T4",
		AcceleratorCount:   1,
		KernelName:         "python3",
		ScheduleValue:      "0 1 * * *",
		TimeZone:           "Asia/Kolkata",
		CloudStorageBucket: "gs://out",
		ServiceAccount:     "sa@proj.iam.gserviceaccount.com",
		Network:            "https://www.googleapis.com/compute/v1/projects/host/global/networks/shared",
		Subnetwork:         "projects/host/regions/us-central1/subnetworks/sub",
		DiskType:           "pd-ssd (Persistent SSD Disk)",
		DiskSize:           "100",
		KmsKeyName:         "projects/proj/locations/us-central1/keyRings/r/cryptoKeys/k",
	}
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "https://europe-west1-aiplatform.googleapis.com/", Endpoint("europe-west1"))
}

func TestBuildSchedule(t *testing.T) {
	c := newTestClient(t)
	s, err := c.BuildSchedule(vertexJob(), testRegion, "gs://out/nightly/nb.ipynb")
	require.NoError(t, err)

	assert.Equal(t, "TZ=Asia/Kolkata 0 1 * * *", s.Cron)
	assert.Equal(t, int64(1), s.MaxConcurrentRunCount)
	assert.Equal(t, int64(1), s.MaxRunCount)
	req := s.CreateNotebookExecutionJobRequest
	require.NotNil(t, req)
	assert.Equal(t, parent, req.Parent)
	job := req.NotebookExecutionJob
	assert.Equal(t, map[string]string{entryServiceLabel: "workbench"}, job.Labels)
	assert.Equal(t, "n1-standard-4", job.CustomEnvironmentSpec.MachineSpec.MachineType)
	assert.Equal(t, "NVIDIA_TESLA_T4", job.CustomEnvironmentSpec.MachineSpec.AcceleratorType)
	assert.Equal(t, int64(1), job.CustomEnvironmentSpec.MachineSpec.AcceleratorCount)
	assert.Equal(t, "pd-ssd", job.CustomEnvironmentSpec.PersistentDiskSpec.DiskType)
	assert.Equal(t, int64(100), job.CustomEnvironmentSpec.PersistentDiskSpec.DiskSizeGb)
	assert.True(t, job.CustomEnvironmentSpec.NetworkSpec.EnableInternetAccess)
	assert.Equal(t, "projects/host/global/networks/shared", job.CustomEnvironmentSpec.NetworkSpec.Network)
	assert.Equal(t, "gs://out/nightly/nb.ipynb", job.GcsNotebookSource.Uri)
	assert.Equal(t, "gs://out", job.GcsOutputUri)
	assert.NotNil(t, job.WorkbenchRuntime)
	require.NotNil(t, job.EncryptionSpec)
	assert.Equal(t, "projects/proj/locations/us-central1/keyRings/r/cryptoKeys/k", job.EncryptionSpec.KmsKeyName)
}

func TestBuildScheduleDefaults(t *testing.T) {
	c := newTestClient(t)
	job := vertexJob()
	job.ScheduleValue = ""
	job.TimeZone = "UTC"
	job.AcceleratorType = ""
	job.KmsKeyName = ""
	job.MaxRunCount = "5"

	s, err := c.BuildSchedule(job, testRegion, "gs://out/nb.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "* * * * *", s.Cron)
	assert.Equal(t, int64(5), s.MaxRunCount)
	assert.Zero(t, s.CreateNotebookExecutionJobRequest.NotebookExecutionJob.CustomEnvironmentSpec.MachineSpec.AcceleratorCount)
	assert.Nil(t, s.CreateNotebookExecutionJobRequest.NotebookExecutionJob.EncryptionSpec)

	job.MaxRunCount = "many"
	_, err = c.BuildSchedule(job, testRegion, "gs://out/nb.ipynb")
	assert.Error(t, err)
}

func TestCreateScheduleUploadsLocalNotebook(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(c.fs, "nb.ipynb", []byte("{}"), 0o644))

	s, err := c.CreateSchedule(ctx, vertexJob())
	require.NoError(t, err)
	assert.Equal(t, parent+"/schedules/333", s.Name)

	ok, err := c.store.Exists(ctx, "out", "nightly/nb.ipynb")
	require.NoError(t, err)
	assert.True(t, ok, "notebook not uploaded to gs://out/nightly/nb.ipynb")
	require.Len(t, c.fake.created, 1)
}

func TestCreateScheduleMissingNotebook(t *testing.T) {
	c := newTestClient(t)
	_, err := c.CreateSchedule(context.Background(), vertexJob())
	assert.ErrorIs(t, err, ErrNoSource)
	assert.Empty(t, c.fake.created)
}

func TestUpdateSchedule(t *testing.T) {
	c := newTestClient(t)
	job := vertexJob()
	job.InputFilename = "gs://out/nightly/nb.ipynb"

	updated, err := c.UpdateSchedule(context.Background(), "", "111", job)
	require.NoError(t, err)
	assert.Equal(t, job.DisplayName, updated.DisplayName)
	assert.Equal(t, "gs://out/nightly/nb.ipynb",
		updated.CreateNotebookExecutionJobRequest.NotebookExecutionJob.GcsNotebookSource.Uri)
	require.Len(t, c.fake.patched, 1)
	assert.Contains(t, c.fake.patched[0], "cron")
	assert.Contains(t, c.fake.patched[0], "createNotebookExecutionJobRequest")
}

func TestListSchedules(t *testing.T) {
	c := newTestClient(t)
	list, err := c.ListSchedules(context.Background(), "", 10, "")
	require.NoError(t, err)

	// The pipeline schedule does not run a notebook.
	require.Len(t, list.Schedules, 1)
	assert.Equal(t, "nightly", list.Schedules[0].Schedule.DisplayName)
	assert.Equal(t, "failed", list.Schedules[0].LastRunState)
}

func TestListSchedulesLastRunUnavailable(t *testing.T) {
	c := newTestClient(t)
	c.fake.runsDown = true

	list, err := c.ListSchedules(context.Background(), "", 10, "")
	require.NoError(t, err)
	require.Len(t, list.Schedules, 1)
	assert.Equal(t, "nightly", list.Schedules[0].Schedule.DisplayName)
	assert.Empty(t, list.Schedules[0].LastRunState)
}

func TestScheduleControl(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	s, err := c.GetSchedule(ctx, "", "111")
	require.NoError(t, err)
	assert.Equal(t, "nightly", s.DisplayName)

	_, err = c.GetSchedule(ctx, "", "999")
	assert.Error(t, err)

	require.NoError(t, c.PauseSchedule(ctx, "", "111"))
	require.NoError(t, c.ResumeSchedule(ctx, "", "111"))
	assert.Equal(t, []string{parent + "/schedules/111"}, c.fake.paused)
	assert.Equal(t, []string{parent + "/schedules/111"}, c.fake.resumed)

	op, err := c.DeleteSchedule(ctx, "", "111")
	require.NoError(t, err)
	assert.Equal(t, parent+"/schedules/111/operations/9", op.Name)
	assert.False(t, op.Done)

	op, err = c.TriggerSchedule(ctx, "", "111")
	require.NoError(t, err)
	require.Len(t, c.fake.jobs, 1)
	assert.Equal(t, "nightly", c.fake.jobs[0]["displayName"])
	assert.Equal(t, "777", runID(op.Name))

	_, err = c.TriggerSchedule(ctx, "", "222")
	assert.Error(t, err, "schedule without a notebook request")
}

func TestListNotebookExecutionJobs(t *testing.T) {
	c := newTestClient(t)
	runs, err := c.ListNotebookExecutionJobs(context.Background(), "", "111", "2026-05-01T00:00:00Z", "")
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, ScheduleRun{
		ID:            "555",
		DisplayName:   "nightly",
		State:         "failed",
		CreateTime:    "2026-05-14T01:00:00Z",
		UpdateTime:    "2026-05-14T01:02:05Z",
		Duration:      "2 min 5 sec",
		OutputURI:     "gs://out",
		FileName:      "nb.ipynb",
		Code:          "13",
		StatusMessage: "kernel died",
	}, runs[0])
	assert.Equal(t, "succeeded", runs[1].State)
	assert.Empty(t, runs[1].Code)
}

func TestDownloadOutput(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.store.Upload(ctx, "out", "555/nb.ipynb", strings.NewReader("result")))

	ok, err := c.OutputFileExists(ctx, "gs://out", "555", "nb.ipynb")
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := c.DownloadOutput(ctx, "gs://out", "555", "nb.ipynb")
	require.NoError(t, err)
	data, err := afero.ReadFile(c.fs, p)
	require.NoError(t, err)
	assert.Equal(t, "result", string(data))
}

func TestVertexOrchestrator(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	o := NewVertexOrchestrator(c.Client, "")

	schedules, err := o.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, orchestrator.Schedule{
		ID:           "111",
		DisplayName:  "nightly",
		Backend:      orchestrator.BackendVertex,
		Schedule:     "TZ=Asia/Kolkata 0 1 * * *",
		NextRun:      schedules[0].NextRun,
		Status:       orchestrator.StatusActive,
		LastRunState: "failed",
	}, schedules[0])
	require.NotNil(t, schedules[0].NextRun)
	assert.Equal(t, 19, schedules[0].NextRun.Hour())

	require.NoError(t, o.PauseSchedule(ctx, "111"))
	require.NoError(t, o.ResumeSchedule(ctx, "111"))
	require.NoError(t, o.DeleteSchedule(ctx, "111"))
	run, err := o.TriggerSchedule(ctx, "111")
	require.NoError(t, err)
	assert.Equal(t, &orchestrator.Run{ScheduleID: "111", RunID: "777"}, run)
}
