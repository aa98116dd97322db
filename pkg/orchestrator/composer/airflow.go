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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/storage"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SchedulerTag marks the DAGs generated by this tool.
const SchedulerTag = "notebook_scheduler"

const airflowPageSize = 100

// APIError is a non-2xx answer from the Airflow REST API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airflow %s %s: %d %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(e.Body))
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type ScheduleInterval struct {
	Type  string `json:"__type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

type Tag struct {
	Name string `json:"name" yaml:"name"`
}

type Dag struct {
	DagID            string            `json:"dag_id" yaml:"dag_id"`
	Description      string            `json:"description,omitempty" yaml:"description,omitempty"`
	IsPaused         bool              `json:"is_paused" yaml:"is_paused"`
	IsActive         bool              `json:"is_active" yaml:"is_active"`
	Fileloc          string            `json:"fileloc,omitempty" yaml:"fileloc,omitempty"`
	NextDagrun       string            `json:"next_dagrun,omitempty" yaml:"next_dagrun,omitempty"`
	Owners           []string          `json:"owners,omitempty" yaml:"owners,omitempty"`
	ScheduleInterval *ScheduleInterval `json:"schedule_interval,omitempty" yaml:"schedule_interval,omitempty"`
	Tags             []Tag             `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// DagList is the scheduler's DAGs together with the bucket they live in.
type DagList struct {
	Dags         []Dag  `json:"dags" yaml:"dags"`
	TotalEntries int    `json:"total_entries" yaml:"total_entries"`
	Bucket       string `json:"bucket" yaml:"bucket"`
}

type DagRun struct {
	DagRunID      string `json:"dag_run_id" yaml:"dag_run_id"`
	DagID         string `json:"dag_id" yaml:"dag_id"`
	State         string `json:"state" yaml:"state"`
	RunType       string `json:"run_type,omitempty" yaml:"run_type,omitempty"`
	ExecutionDate string `json:"execution_date,omitempty" yaml:"execution_date,omitempty"`
	StartDate     string `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty" yaml:"end_date,omitempty"`
}

type DagRunList struct {
	DagRuns      []DagRun `json:"dag_runs" yaml:"dag_runs"`
	TotalEntries int      `json:"total_entries" yaml:"total_entries"`
}

type TaskInstance struct {
	TaskID    string  `json:"task_id" yaml:"task_id"`
	DagRunID  string  `json:"dag_run_id" yaml:"dag_run_id"`
	State     string  `json:"state" yaml:"state"`
	TryNumber int     `json:"try_number" yaml:"try_number"`
	StartDate string  `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   string  `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	Duration  float64 `json:"duration,omitempty" yaml:"duration,omitempty"`
}

type TaskInstanceList struct {
	TaskInstances []TaskInstance `json:"task_instances" yaml:"task_instances"`
	TotalEntries  int            `json:"total_entries" yaml:"total_entries"`
}

type ImportError struct {
	ImportErrorID int    `json:"import_error_id" yaml:"import_error_id"`
	Filename      string `json:"filename" yaml:"filename"`
	StackTrace    string `json:"stack_trace" yaml:"stack_trace"`
	Timestamp     string `json:"timestamp" yaml:"timestamp"`
}

type ImportErrorList struct {
	ImportErrors []ImportError `json:"import_errors" yaml:"import_errors"`
	TotalEntries int           `json:"total_entries" yaml:"total_entries"`
}

// Airflow is a client for one environment's Airflow REST API.
type Airflow struct {
	baseURL string
	bucket  string
	http    *http.Client
	store   storage.ObjectStore
	now     func() time.Time
}

// NewAirflow returns a client for the webserver at airflowURI whose DAGs live
// in bucket.
func NewAirflow(airflowURI, bucket string, hc *http.Client, store storage.ObjectStore) *Airflow {
	return &Airflow{
		baseURL: strings.TrimSuffix(airflowURI, "/") + "/api/v1",
		bucket:  bucket,
		http:    hc,
		store:   store,
		now:     time.Now,
	}
}

// Airflow resolves env's webserver and bucket.
func (c *Client) Airflow(ctx context.Context, env, project, region string) (*Airflow, error) {
	e, err := c.GetEnvironment(ctx, env, project, region)
	if err != nil {
		return nil, err
	}
	uri, err := airflowURIOf(env, e)
	if err != nil {
		return nil, err
	}
	bucket, err := bucketOf(env, e)
	if err != nil {
		return nil, err
	}
	af := NewAirflow(uri, bucket, c.httpClient, c.store)
	af.now = c.now
	return af, nil
}

// Bucket is the environment bucket.
func (a *Airflow) Bucket() string {
	return a.bucket
}

func (a *Airflow) do(ctx context.Context, method, p string, query url.Values, body, out any) error {
	u := a.baseURL + "/" + p
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if _, ok := out.(*string); ok {
		req.Header.Set("Accept", "text/plain")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	logging.Debug("%s %s", method, u)
	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("airflow %s %s: %w", method, p, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read airflow response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: p, StatusCode: resp.StatusCode, Body: string(data)}
	}

	switch v := out.(type) {
	case nil:
		return nil
	case *string:
		*v = string(data)
		return nil
	default:
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode airflow response: %w", err)
		}
		return nil
	}
}

func dagPath(dagID string, rest ...string) string {
	parts := append([]string{"dags", url.PathEscape(dagID)}, rest...)
	return strings.Join(parts, "/")
}

// ListDags returns the DAGs tagged as notebook schedules.
func (a *Airflow) ListDags(ctx context.Context) (*DagList, error) {
	list := &DagList{Dags: []Dag{}, Bucket: a.bucket}
	for offset := 0; ; offset += airflowPageSize {
		var page struct {
			Dags         []Dag `json:"dags"`
			TotalEntries int   `json:"total_entries"`
		}
		q := url.Values{
			"tags":   {SchedulerTag},
			"limit":  {strconv.Itoa(airflowPageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		if err := a.do(ctx, http.MethodGet, "dags", q, nil, &page); err != nil {
			logging.Error("Error listing dags: %v", err)
			return nil, err
		}
		list.Dags = append(list.Dags, page.Dags...)
		list.TotalEntries = page.TotalEntries
		if len(page.Dags) == 0 || len(list.Dags) >= page.TotalEntries {
			return list, nil
		}
	}
}

// ListDagRuns returns runs of dagID newest first. start and end bound the
// logical date and may be empty.
func (a *Airflow) ListDagRuns(ctx context.Context, dagID, start, end string, offset int) (*DagRunList, error) {
	q := url.Values{
		"order_by": {"-execution_date"},
		"limit":    {strconv.Itoa(airflowPageSize)},
		"offset":   {strconv.Itoa(offset)},
	}
	if start != "" {
		q.Set("execution_date_gte", start)
	}
	if end != "" {
		q.Set("execution_date_lte", end)
	}
	list := &DagRunList{}
	if err := a.do(ctx, http.MethodGet, dagPath(dagID, "dagRuns"), q, nil, list); err != nil {
		logging.Error("Error listing dag runs for %s: %v", dagID, err)
		return nil, err
	}
	return list, nil
}

// ListDagRunTasks returns the task instances of one run.
func (a *Airflow) ListDagRunTasks(ctx context.Context, dagID, runID string) (*TaskInstanceList, error) {
	list := &TaskInstanceList{}
	p := dagPath(dagID, "dagRuns", url.PathEscape(runID), "taskInstances")
	if err := a.do(ctx, http.MethodGet, p, nil, nil, list); err != nil {
		return nil, err
	}
	return list, nil
}

// TaskLogs returns the plain-text log of one task try.
func (a *Airflow) TaskLogs(ctx context.Context, dagID, runID, taskID string, try int) (string, error) {
	var logs string
	p := dagPath(dagID, "dagRuns", url.PathEscape(runID), "taskInstances", url.PathEscape(taskID), "logs", strconv.Itoa(try))
	if err := a.do(ctx, http.MethodGet, p, nil, nil, &logs); err != nil {
		logging.Error("Error fetching logs for %s/%s: %v", dagID, taskID, err)
		return "", err
	}
	return logs, nil
}

// UpdateDag pauses or resumes dagID.
func (a *Airflow) UpdateDag(ctx context.Context, dagID string, paused bool) (*Dag, error) {
	dag := &Dag{}
	q := url.Values{"update_mask": {"is_paused"}}
	if err := a.do(ctx, http.MethodPatch, dagPath(dagID), q, map[string]bool{"is_paused": paused}, dag); err != nil {
		logging.Error("Error updating dag %s: %v", dagID, err)
		return nil, err
	}
	return dag, nil
}

// DeleteDag removes the DAG file from the bucket, then the DAG's metadata. A
// DAG the scheduler has not parsed yet has no metadata to delete.
func (a *Airflow) DeleteDag(ctx context.Context, dagID string) error {
	if err := a.store.Delete(ctx, a.bucket, dagObject(fmt.Sprintf("dag_%s.py", dagID))); err != nil {
		return err
	}
	err := a.do(ctx, http.MethodDelete, dagPath(dagID), nil, nil, nil)
	if err != nil && !isNotFound(err) {
		logging.Error("Error deleting dag %s: %v", dagID, err)
		return err
	}
	logging.Info("Dag %s deleted", dagID)
	return nil
}

// TriggerDag starts a manual run of dagID.
func (a *Airflow) TriggerDag(ctx context.Context, dagID string) (*DagRun, error) {
	runID := fmt.Sprintf("manual__%s_%s", a.now().UTC().Format(time.RFC3339), uuid.NewString()[:8])
	body := map[string]any{"dag_run_id": runID, "conf": map[string]any{}}
	run := &DagRun{}
	if err := a.do(ctx, http.MethodPost, dagPath(dagID, "dagRuns"), nil, body, run); err != nil {
		logging.Error("Error triggering dag %s: %v", dagID, err)
		return nil, err
	}
	return run, nil
}

// ListImportErrors returns the DAG files Airflow failed to parse.
func (a *Airflow) ListImportErrors(ctx context.Context) (*ImportErrorList, error) {
	list := &ImportErrorList{}
	q := url.Values{"limit": {strconv.Itoa(airflowPageSize)}, "order_by": {"-import_error_id"}}
	if err := a.do(ctx, http.MethodGet, "importErrors", q, nil, list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetJobPayload reads back the request a job was created from.
func (c *Client) GetJobPayload(ctx context.Context, bucket, dagID string) (*Payload, error) {
	data, err := c.store.Download(ctx, bucket, payloadObject(dagID))
	if err != nil {
		return nil, err
	}
	payload := &Payload{}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", payloadFile, err)
	}
	return payload, nil
}
