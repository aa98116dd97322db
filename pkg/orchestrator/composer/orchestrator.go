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
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/orchestrator"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// lastRunLookups bounds the concurrent last-run requests made by ListSchedules.
const lastRunLookups = 4

// ComposerOrchestrator implements the Orchestrator interface for one Composer
// environment.
type ComposerOrchestrator struct {
	client  *Client
	env     string
	project string
	region  string

	once    sync.Once
	airflow *Airflow
	err     error
}

var _ orchestrator.Orchestrator = (*ComposerOrchestrator)(nil)

// NewComposerOrchestrator creates and returns a new ComposerOrchestrator instance.
func NewComposerOrchestrator(client *Client, env, project, region string) *ComposerOrchestrator {
	return &ComposerOrchestrator{client: client, env: env, project: project, region: region}
}

func (o *ComposerOrchestrator) af(ctx context.Context) (*Airflow, error) {
	o.once.Do(func() {
		o.airflow, o.err = o.client.Airflow(ctx, o.env, o.project, o.region)
	})
	return o.airflow, o.err
}

func (o *ComposerOrchestrator) ListSchedules(ctx context.Context) ([]orchestrator.Schedule, error) {
	af, err := o.af(ctx)
	if err != nil {
		return nil, err
	}
	list, err := af.ListDags(ctx)
	if err != nil {
		return nil, err
	}

	schedules := make([]orchestrator.Schedule, len(list.Dags))
	// A failed lookup leaves LastRunState empty for that DAG only.
	var g errgroup.Group
	g.SetLimit(lastRunLookups)
	for i, dag := range list.Dags {
		i, dag := i, dag
		schedules[i] = toSchedule(dag)
		g.Go(func() error {
			runs, err := af.ListDagRuns(ctx, dag.DagID, "", "", 0)
			if err != nil {
				logging.Warn("Could not fetch the last run of %s: %v", dag.DagID, err)
				return nil
			}
			if len(runs.DagRuns) > 0 {
				schedules[i].LastRunState = runs.DagRuns[0].State
			}
			return nil
		})
	}
	g.Wait()
	return schedules, nil
}

func toSchedule(dag Dag) orchestrator.Schedule {
	s := orchestrator.Schedule{
		ID:          dag.DagID,
		DisplayName: dag.DagID,
		Backend:     orchestrator.BackendComposer,
		Status:      orchestrator.StatusActive,
	}
	if dag.IsPaused {
		s.Status = orchestrator.StatusPaused
	}
	if dag.ScheduleInterval != nil {
		s.Schedule = dag.ScheduleInterval.Value
	}
	if t, err := time.Parse(time.RFC3339, dag.NextDagrun); err == nil {
		s.NextRun = &t
	}
	return s
}

func (o *ComposerOrchestrator) PauseSchedule(ctx context.Context, id string) error {
	return o.setPaused(ctx, id, true)
}

func (o *ComposerOrchestrator) ResumeSchedule(ctx context.Context, id string) error {
	return o.setPaused(ctx, id, false)
}

func (o *ComposerOrchestrator) setPaused(ctx context.Context, id string, paused bool) error {
	af, err := o.af(ctx)
	if err != nil {
		return err
	}
	_, err = af.UpdateDag(ctx, id, paused)
	return err
}

func (o *ComposerOrchestrator) DeleteSchedule(ctx context.Context, id string) error {
	af, err := o.af(ctx)
	if err != nil {
		return err
	}
	return af.DeleteDag(ctx, id)
}

func (o *ComposerOrchestrator) TriggerSchedule(ctx context.Context, id string) (*orchestrator.Run, error) {
	af, err := o.af(ctx)
	if err != nil {
		return nil, err
	}
	run, err := af.TriggerDag(ctx, id)
	if err != nil {
		return nil, err
	}
	return &orchestrator.Run{ScheduleID: id, RunID: run.DagRunID, State: run.State}, nil
}
