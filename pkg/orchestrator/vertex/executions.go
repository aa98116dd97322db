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
	"fmt"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/storage"
	"path"
	"strconv"
	"strings"
	"time"

	aiplatform "google.golang.org/api/aiplatform/v1"
)

// ScheduleRun is one notebook execution started by a schedule.
type ScheduleRun struct {
	ID            string `json:"schedule_run_id" yaml:"schedule_run_id"`
	DisplayName   string `json:"display_name" yaml:"display_name"`
	State         string `json:"state" yaml:"state"`
	CreateTime    string `json:"start_date" yaml:"start_date"`
	UpdateTime    string `json:"end_date" yaml:"end_date"`
	Duration      string `json:"time,omitempty" yaml:"time,omitempty"`
	OutputURI     string `json:"gcs_url" yaml:"gcs_url"`
	FileName      string `json:"file_name" yaml:"file_name"`
	Code          string `json:"code,omitempty" yaml:"code,omitempty"`
	StatusMessage string `json:"status_message,omitempty" yaml:"status_message,omitempty"`
}

// jobState turns JOB_STATE_SUCCEEDED into succeeded.
func jobState(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, "JOB_STATE_"))
}

func toRun(j *aiplatform.GoogleCloudAiplatformV1NotebookExecutionJob) ScheduleRun {
	run := ScheduleRun{
		ID:          resourceID(j.Name),
		DisplayName: j.DisplayName,
		State:       jobState(j.JobState),
		CreateTime:  j.CreateTime,
		UpdateTime:  j.UpdateTime,
		OutputURI:   j.GcsOutputUri,
	}
	if j.GcsNotebookSource != nil {
		run.FileName = path.Base(j.GcsNotebookSource.Uri)
	}
	start, err1 := time.Parse(time.RFC3339Nano, j.CreateTime)
	end, err2 := time.Parse(time.RFC3339Nano, j.UpdateTime)
	if err1 == nil && err2 == nil {
		d := end.Sub(start)
		run.Duration = fmt.Sprintf("%d min %d sec", int(d.Minutes()), int(d.Seconds())%60)
	}
	if run.State == "failed" && j.Status != nil {
		run.Code = strconv.FormatInt(j.Status.Code, 10)
		run.StatusMessage = j.Status.Message
	}
	return run
}

func (c *Client) listRuns(ctx context.Context, region, scheduleID, start, end string, limit int64) ([]ScheduleRun, error) {
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	filter := fmt.Sprintf("schedule_resource_name=%q", c.scheduleName(region, scheduleID))
	if start != "" {
		filter += fmt.Sprintf(" AND create_time>=%q", start)
	}
	if end != "" {
		filter += fmt.Sprintf(" AND create_time<=%q", end)
	}
	call := svc.Projects.Locations.NotebookExecutionJobs.List(c.parent(region)).
		Filter(filter).
		OrderBy("createTime desc")

	runs := []ScheduleRun{}
	if limit > 0 {
		resp, err := call.PageSize(limit).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("error fetching executions of %s: %w", scheduleID, err)
		}
		for _, j := range resp.NotebookExecutionJobs {
			runs = append(runs, toRun(j))
		}
		return runs, nil
	}
	err = call.Pages(ctx, func(resp *aiplatform.GoogleCloudAiplatformV1ListNotebookExecutionJobsResponse) error {
		for _, j := range resp.NotebookExecutionJobs {
			runs = append(runs, toRun(j))
		}
		return nil
	})
	if err != nil {
		logging.Error("Error fetching executions of %s: %v", scheduleID, err)
		return nil, fmt.Errorf("error fetching executions of %s: %w", scheduleID, err)
	}
	return runs, nil
}

// ListNotebookExecutionJobs returns a schedule's runs, newest first. start and
// end bound the creation time and may be empty.
func (c *Client) ListNotebookExecutionJobs(ctx context.Context, region, scheduleID, start, end string) ([]ScheduleRun, error) {
	return c.listRuns(ctx, c.region(region), scheduleID, start, end, 0)
}

// OutputFileExists reports whether run produced file under outputURI.
func (c *Client) OutputFileExists(ctx context.Context, outputURI, runID, file string) (bool, error) {
	return storage.OutputFileExists(ctx, c.store, outputURI, runID, file)
}

// DownloadOutput copies a run's output notebook into the workspace and
// returns its local path.
func (c *Client) DownloadOutput(ctx context.Context, outputURI, runID, file string) (string, error) {
	return storage.DownloadOutput(ctx, c.store, outputURI, runID, file, c.fs, ".")
}
