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

package orchestrator

import (
	"context"
	"time"
)

// Backend names.
const (
	BackendComposer = "composer"
	BackendVertex   = "vertex"
)

// Schedule statuses reported across backends.
const (
	StatusActive  = "ACTIVE"
	StatusPaused  = "PAUSED"
	StatusUnknown = "UNKNOWN"
)

// Schedule is a backend-neutral summary of a scheduled notebook.
// Each orchestrator fills in the fields relevant to it.
type Schedule struct {
	ID           string     `json:"id" yaml:"id"`
	DisplayName  string     `json:"display_name" yaml:"display_name"`
	Backend      string     `json:"backend" yaml:"backend"`
	Schedule     string     `json:"schedule" yaml:"schedule"`
	NextRun      *time.Time `json:"next_run,omitempty" yaml:"next_run,omitempty"`
	Status       string     `json:"status" yaml:"status"`
	LastRunState string     `json:"last_run_state,omitempty" yaml:"last_run_state,omitempty"`
}

// Run identifies a single manual run started by TriggerSchedule.
type Run struct {
	ScheduleID string `json:"schedule_id" yaml:"schedule_id"`
	RunID      string `json:"run_id" yaml:"run_id"`
	State      string `json:"state,omitempty" yaml:"state,omitempty"`
}

// Orchestrator defines the interface for controlling scheduled notebooks on a
// managed scheduler.
type Orchestrator interface {
	// ListSchedules returns every notebook schedule the backend knows about.
	ListSchedules(ctx context.Context) ([]Schedule, error)
	PauseSchedule(ctx context.Context, id string) error
	ResumeSchedule(ctx context.Context, id string) error
	DeleteSchedule(ctx context.Context, id string) error
	// TriggerSchedule starts a run outside of the schedule's cadence.
	TriggerSchedule(ctx context.Context, id string) (*Run, error)
}
