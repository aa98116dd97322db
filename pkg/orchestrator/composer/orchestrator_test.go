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
	"net/http/httptest"
	"notebook-scheduler/pkg/orchestrator"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposerOrchestrator(t *testing.T) {
	fake := &fakeAirflow{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	o := NewComposerOrchestrator(c.Client, "env-1", "", "")

	schedules, err := o.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	s := schedules[0]
	assert.Equal(t, "report", s.ID)
	assert.Equal(t, orchestrator.BackendComposer, s.Backend)
	assert.Equal(t, "30 2 * * *", s.Schedule)
	assert.Equal(t, orchestrator.StatusActive, s.Status)
	assert.Equal(t, "success", s.LastRunState)
	require.NotNil(t, s.NextRun)
	assert.Equal(t, 2, s.NextRun.Hour())

	require.NoError(t, o.PauseSchedule(ctx, "report"))
	schedules, err = o.ListSchedules(ctx)
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatusPaused, schedules[0].Status)

	require.NoError(t, o.ResumeSchedule(ctx, "report"))
	assert.False(t, fake.paused)

	run, err := o.TriggerSchedule(ctx, "report")
	require.NoError(t, err)
	assert.Equal(t, "report", run.ScheduleID)
	assert.Equal(t, "queued", run.State)
	assert.NotEmpty(t, run.RunID)

	require.NoError(t, o.DeleteSchedule(ctx, "report"))
	assert.True(t, fake.deleted)
}

func TestComposerOrchestratorLastRunUnavailable(t *testing.T) {
	fake := &fakeAirflow{runsDown: true}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	schedules, err := NewComposerOrchestrator(c.Client, "env-1", "", "").ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "report", schedules[0].ID)
	assert.Empty(t, schedules[0].LastRunState)
}

func TestComposerOrchestratorUnknownEnvironment(t *testing.T) {
	c := newTestClient(t, "https://airflow.example.com")
	o := NewComposerOrchestrator(c.Client, "missing", "", "")

	_, err := o.ListSchedules(context.Background())
	assert.ErrorIs(t, err, ErrEnvironmentNotFound)
	assert.ErrorIs(t, o.PauseSchedule(context.Background(), "x"), ErrEnvironmentNotFound)
}
