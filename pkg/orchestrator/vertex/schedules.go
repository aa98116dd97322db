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
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/storage"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	aiplatform "google.golang.org/api/aiplatform/v1"
)

const (
	entryServiceLabel = "aiplatform.googleapis.com/colab_enterprise_entry_service"
	entryService      = "workbench"

	// lastRunLookups bounds the concurrent execution lookups made by ListSchedules.
	lastRunLookups = 8
)

// updateMask lists every field UpdateSchedule rewrites.
var updateMask = strings.Join([]string{
	"displayName",
	"cron",
	"maxRunCount",
	"maxConcurrentRunCount",
	"startTime",
	"endTime",
	"createNotebookExecutionJobRequest",
}, ",")

// ErrNoSource is returned when a local notebook is missing from the workspace.
var ErrNoSource = errors.New("input notebook not found")

// ScheduleSummary is a schedule with the state of its most recent run.
type ScheduleSummary struct {
	Schedule     *aiplatform.GoogleCloudAiplatformV1Schedule `json:"schedule" yaml:"schedule"`
	LastRunState string                                      `json:"last_run_state,omitempty" yaml:"last_run_state,omitempty"`
}

// ScheduleList is one page of notebook schedules.
type ScheduleList struct {
	Schedules     []ScheduleSummary `json:"schedules" yaml:"schedules"`
	NextPageToken string            `json:"next_page_token,omitempty" yaml:"next_page_token,omitempty"`
}

// Operation is a long-running operation started by a delete or a trigger.
type Operation struct {
	Name string `json:"name" yaml:"name"`
	Done bool   `json:"done" yaml:"done"`
}

// resourceID returns the last segment of a resource name.
func resourceID(name string) string {
	return path.Base(name)
}

// networkName strips a compute URL down to projects/.../networks/... form.
func networkName(s string) string {
	if i := strings.Index(s, "projects/"); i >= 0 {
		return s[i:]
	}
	return s
}

func gcsURI(p, bucket string) string {
	switch {
	case strings.HasPrefix(p, "gs://"):
		return p
	case strings.HasPrefix(p, "gs:"):
		return "gs://" + strings.TrimPrefix(p, "gs:")
	case bucket != "":
		return storage.URI(bucket, p)
	default:
		return "gs://" + p
	}
}

func parseCount(s string, def int64) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q: %w", s, err)
	}
	return n, nil
}

// BuildSchedule converts a job into the Vertex AI schedule resource.
func (c *Client) BuildSchedule(job *models.VertexJob, region, notebookURI string) (*aiplatform.GoogleCloudAiplatformV1Schedule, error) {
	maxRuns, err := parseCount(job.MaxRunCount, 1)
	if err != nil {
		return nil, err
	}
	diskSize, err := parseCount(job.DiskSize, 0)
	if err != nil {
		return nil, err
	}
	if _, err := models.LoadLocation(job.TimeZone); err != nil {
		return nil, err
	}
	cron := models.CronSchedule(job.ScheduleValue, job.TimeZone)
	if _, err := models.ParseSchedule(cron); err != nil {
		return nil, err
	}

	machine := &aiplatform.GoogleCloudAiplatformV1MachineSpec{
		MachineType: strings.TrimSpace(strings.Split(job.MachineType, "(")[0]),
	}
	if job.AcceleratorType != "" {
		machine.AcceleratorType = job.AcceleratorType
		machine.AcceleratorCount = job.AcceleratorCount
	}
	diskType := ""
	if fields := strings.Fields(job.DiskType); len(fields) > 0 {
		diskType = fields[0]
	}
	network := &aiplatform.GoogleCloudAiplatformV1NetworkSpec{EnableInternetAccess: true}
	if job.Network != "" {
		network.Network = networkName(job.Network)
	}
	if job.Subnetwork != "" {
		network.Subnetwork = networkName(job.Subnetwork)
	}

	nbJob := &aiplatform.GoogleCloudAiplatformV1NotebookExecutionJob{
		DisplayName: job.DisplayName,
		Labels:      map[string]string{entryServiceLabel: entryService},
		CustomEnvironmentSpec: &aiplatform.GoogleCloudAiplatformV1NotebookExecutionJobCustomEnvironmentSpec{
			MachineSpec: machine,
			PersistentDiskSpec: &aiplatform.GoogleCloudAiplatformV1PersistentDiskSpec{
				DiskType:   diskType,
				DiskSizeGb: diskSize,
			},
			NetworkSpec: network,
		},
		GcsNotebookSource: &aiplatform.GoogleCloudAiplatformV1NotebookExecutionJobGcsNotebookSource{Uri: notebookURI},
		GcsOutputUri:      gcsURI(job.CloudStorageBucket, ""),
		ServiceAccount:    job.ServiceAccount,
		KernelName:        job.KernelName,
		WorkbenchRuntime:  &aiplatform.GoogleCloudAiplatformV1NotebookExecutionJobWorkbenchRuntime{},
	}
	if job.KmsKeyName != "" {
		nbJob.EncryptionSpec = &aiplatform.GoogleCloudAiplatformV1EncryptionSpec{KmsKeyName: job.KmsKeyName}
	}

	return &aiplatform.GoogleCloudAiplatformV1Schedule{
		DisplayName:           job.DisplayName,
		Cron:                  cron,
		MaxConcurrentRunCount: 1,
		MaxRunCount:           maxRuns,
		StartTime:             job.StartTime,
		EndTime:               job.EndTime,
		CreateNotebookExecutionJobRequest: &aiplatform.GoogleCloudAiplatformV1CreateNotebookExecutionJobRequest{
			Parent:               c.parent(region),
			NotebookExecutionJob: nbJob,
		},
	}, nil
}

// notebookSource returns the notebook URI for job, uploading a local notebook
// to <bucket>/<display name>/ first.
func (c *Client) notebookSource(ctx context.Context, job *models.VertexJob) (string, error) {
	bucketURI := gcsURI(job.CloudStorageBucket, "")
	bucket, _, err := storage.ParseURI(bucketURI)
	if err != nil {
		return "", err
	}
	if storage.IsURI(job.InputFilename) {
		return job.InputFilename, nil
	}
	if job.InputFilename == "" {
		return gcsURI(job.GcsNotebookSource, bucket), nil
	}

	object := path.Join(job.DisplayName, path.Base(job.InputFilename))
	f, err := c.fs.Open(job.InputFilename)
	if os.IsNotExist(err) {
		return "", errors.Wrap(ErrNoSource, job.InputFilename)
	}
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", job.InputFilename, err)
	}
	defer f.Close()
	if err := c.store.Upload(ctx, bucket, object, f); err != nil {
		return "", err
	}
	return storage.URI(bucket, object), nil
}

// CreateSchedule creates a schedule for job in job.Region.
func (c *Client) CreateSchedule(ctx context.Context, job *models.VertexJob) (*aiplatform.GoogleCloudAiplatformV1Schedule, error) {
	region := c.region(job.Region)
	source, err := c.notebookSource(ctx, job)
	if err != nil {
		return nil, err
	}
	sched, err := c.BuildSchedule(job, region, source)
	if err != nil {
		return nil, err
	}
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	created, err := svc.Projects.Locations.Schedules.Create(c.parent(region), sched).Context(ctx).Do()
	if err != nil {
		logging.Error("Error creating schedule: %v", err)
		return nil, fmt.Errorf("error creating schedule: %w", err)
	}
	logging.Info("Schedule %s created", created.Name)
	return created, nil
}

// UpdateSchedule rewrites schedule id from job.
func (c *Client) UpdateSchedule(ctx context.Context, region, id string, job *models.VertexJob) (*aiplatform.GoogleCloudAiplatformV1Schedule, error) {
	region = c.region(region)
	source, err := c.notebookSource(ctx, job)
	if err != nil {
		return nil, err
	}
	sched, err := c.BuildSchedule(job, region, source)
	if err != nil {
		return nil, err
	}
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	updated, err := svc.Projects.Locations.Schedules.Patch(c.scheduleName(region, id), sched).
		UpdateMask(updateMask).Context(ctx).Do()
	if err != nil {
		logging.Error("Error updating schedule %s: %v", id, err)
		return nil, fmt.Errorf("error updating schedule: %w", err)
	}
	return updated, nil
}

// ListSchedules returns one page of notebook schedules with the state of each
// schedule's latest run.
func (c *Client) ListSchedules(ctx context.Context, region string, pageSize int64, pageToken string) (*ScheduleList, error) {
	region = c.region(region)
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	call := svc.Projects.Locations.Schedules.List(c.parent(region)).OrderBy("createTime desc").Context(ctx)
	if pageSize > 0 {
		call = call.PageSize(pageSize)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		logging.Error("Error listing schedules: %v", err)
		return nil, fmt.Errorf("error listing schedules: %w", err)
	}

	list := &ScheduleList{Schedules: []ScheduleSummary{}, NextPageToken: resp.NextPageToken}
	for _, s := range resp.Schedules {
		if s.CreateNotebookExecutionJobRequest == nil {
			continue
		}
		list.Schedules = append(list.Schedules, ScheduleSummary{Schedule: s})
	}

	// A failed lookup leaves LastRunState empty for that schedule only.
	var g errgroup.Group
	g.SetLimit(lastRunLookups)
	for i := range list.Schedules {
		i := i
		g.Go(func() error {
			id := resourceID(list.Schedules[i].Schedule.Name)
			runs, err := c.listRuns(ctx, region, id, "", "", 1)
			if err != nil {
				logging.Warn("Could not fetch the last run of schedule %s: %v", id, err)
				return nil
			}
			if len(runs) > 0 {
				list.Schedules[i].LastRunState = runs[0].State
			}
			return nil
		})
	}
	g.Wait()
	return list, nil
}

// GetSchedule fetches a single schedule.
func (c *Client) GetSchedule(ctx context.Context, region, id string) (*aiplatform.GoogleCloudAiplatformV1Schedule, error) {
	region = c.region(region)
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	s, err := svc.Projects.Locations.Schedules.Get(c.scheduleName(region, id)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("error fetching schedule %s: %w", id, err)
	}
	return s, nil
}

// PauseSchedule stops a schedule from starting new runs.
func (c *Client) PauseSchedule(ctx context.Context, region, id string) error {
	region = c.region(region)
	svc, err := c.service(ctx, region)
	if err != nil {
		return err
	}
	_, err = svc.Projects.Locations.Schedules.Pause(c.scheduleName(region, id),
		&aiplatform.GoogleCloudAiplatformV1PauseScheduleRequest{}).Context(ctx).Do()
	if err != nil {
		logging.Error("Error pausing schedule %s: %v", id, err)
		return fmt.Errorf("error pausing schedule: %w", err)
	}
	return nil
}

// ResumeSchedule restarts a paused schedule without catching up missed runs.
func (c *Client) ResumeSchedule(ctx context.Context, region, id string) error {
	region = c.region(region)
	svc, err := c.service(ctx, region)
	if err != nil {
		return err
	}
	_, err = svc.Projects.Locations.Schedules.Resume(c.scheduleName(region, id),
		&aiplatform.GoogleCloudAiplatformV1ResumeScheduleRequest{}).Context(ctx).Do()
	if err != nil {
		logging.Error("Error resuming schedule %s: %v", id, err)
		return fmt.Errorf("error resuming schedule: %w", err)
	}
	return nil
}

// DeleteSchedule starts the deletion of a schedule.
func (c *Client) DeleteSchedule(ctx context.Context, region, id string) (*Operation, error) {
	region = c.region(region)
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	op, err := svc.Projects.Locations.Schedules.Delete(c.scheduleName(region, id)).Context(ctx).Do()
	if err != nil {
		logging.Error("Error deleting schedule %s: %v", id, err)
		return nil, fmt.Errorf("error deleting schedule: %w", err)
	}
	return &Operation{Name: op.Name, Done: op.Done}, nil
}

// TriggerSchedule runs a schedule's notebook once, now.
func (c *Client) TriggerSchedule(ctx context.Context, region, id string) (*Operation, error) {
	region = c.region(region)
	sched, err := c.GetSchedule(ctx, region, id)
	if err != nil {
		return nil, err
	}
	req := sched.CreateNotebookExecutionJobRequest
	if req == nil || req.NotebookExecutionJob == nil {
		return nil, fmt.Errorf("schedule %s does not run a notebook", id)
	}
	svc, err := c.service(ctx, region)
	if err != nil {
		return nil, err
	}
	job := *req.NotebookExecutionJob
	job.Name = ""
	op, err := svc.Projects.Locations.NotebookExecutionJobs.Create(c.parent(region), &job).Context(ctx).Do()
	if err != nil {
		logging.Error("Error triggering schedule %s: %v", id, err)
		return nil, fmt.Errorf("error triggering schedule: %w", err)
	}
	return &Operation{Name: op.Name, Done: op.Done}, nil
}
