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
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/orchestrator"
	"strings"
	"time"
)

// VertexOrchestrator implements the Orchestrator interface for the Vertex AI
// schedules of one region.
type VertexOrchestrator struct {
	client *Client
	region string
}

var _ orchestrator.Orchestrator = (*VertexOrchestrator)(nil)

// NewVertexOrchestrator creates and returns a new VertexOrchestrator instance.
func NewVertexOrchestrator(client *Client, region string) *VertexOrchestrator {
	return &VertexOrchestrator{client: client, region: client.region(region)}
}

func (o *VertexOrchestrator) ListSchedules(ctx context.Context) ([]orchestrator.Schedule, error) {
	var out []orchestrator.Schedule
	token := ""
	for {
		page, err := o.client.ListSchedules(ctx, o.region, 0, token)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Schedules {
			out = append(out, toSchedule(s, o.client.now()))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		token = page.NextPageToken
	}
}

func toSchedule(s ScheduleSummary, now time.Time) orchestrator.Schedule {
	sched := orchestrator.Schedule{
		ID:           resourceID(s.Schedule.Name),
		DisplayName:  s.Schedule.DisplayName,
		Backend:      orchestrator.BackendVertex,
		Schedule:     s.Schedule.Cron,
		Status:       s.Schedule.State,
		LastRunState: s.LastRunState,
	}
	if sched.Status == "" {
		sched.Status = orchestrator.StatusUnknown
	}
	if t, err := time.Parse(time.RFC3339Nano, s.Schedule.NextRunTime); err == nil {
		sched.NextRun = &t
	} else if t, err := models.NextRun(s.Schedule.Cron, now); err == nil && !t.IsZero() {
		sched.NextRun = &t
	}
	return sched
}

func (o *VertexOrchestrator) PauseSchedule(ctx context.Context, id string) error {
	return o.client.PauseSchedule(ctx, o.region, id)
}

func (o *VertexOrchestrator) ResumeSchedule(ctx context.Context, id string) error {
	return o.client.ResumeSchedule(ctx, o.region, id)
}

func (o *VertexOrchestrator) DeleteSchedule(ctx context.Context, id string) error {
	_, err := o.client.DeleteSchedule(ctx, o.region, id)
	return err
}

func (o *VertexOrchestrator) TriggerSchedule(ctx context.Context, id string) (*orchestrator.Run, error) {
	op, err := o.client.TriggerSchedule(ctx, o.region, id)
	if err != nil {
		return nil, err
	}
	return &orchestrator.Run{ScheduleID: id, RunID: runID(op.Name)}, nil
}

// runID extracts the execution job from an operation name of the form
// .../notebookExecutionJobs/<id>/operations/<op>.
func runID(opName string) string {
	parts := strings.Split(opName, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "notebookExecutionJobs" {
			return parts[i+1]
		}
	}
	return resourceID(opName)
}
