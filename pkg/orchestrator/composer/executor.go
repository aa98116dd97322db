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
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/storage"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidDagRun is returned when a DAG run cannot be found in Airflow.
	ErrInvalidDagRun = errors.New("invalid DAG run")
	// ErrNoSource is returned when the input notebook is missing from the workspace.
	ErrNoSource = errors.New("input notebook not found")
)

// ExecuteResult is returned by a successful Execute.
type ExecuteResult struct {
	Status   int    `json:"status" yaml:"status"`
	Response string `json:"response,omitempty" yaml:"response,omitempty"`
}

// Payload is the request stored next to the job so it can be edited later.
type Payload struct {
	ProjectID string         `json:"projectId"`
	Region    string         `json:"region"`
	Job       map[string]any `json:"job"`
}

// Execute turns a job request into a scheduled DAG.
//
// The steps run in order and stop at the first failure. Nothing uploaded
// before a failure is removed; running Execute again overwrites the same
// objects.
func (c *Client) Execute(ctx context.Context, input map[string]any, project, region string) (*ExecuteResult, error) {
	job, err := models.DecodeComposerJob(input)
	if err != nil {
		return nil, err
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	project, region = c.location(project, region)
	dagFile := job.DagFile()

	bucket, err := c.GetBucket(ctx, job.ComposerEnvironmentName, project, region)
	if err != nil {
		return nil, err
	}

	installed := false
	if job.PackagesToInstall != nil {
		installed, err = c.InstallPackages(ctx, job.LocalKernel, job.ComposerEnvironmentName, job.PackagesToInstall, region)
		if err != nil {
			return nil, err
		}
	}

	if err := c.ensureWrapper(ctx, bucket); err != nil {
		return nil, err
	}

	if !storage.IsURI(job.InputFilename) {
		if err := c.uploadLocal(ctx, bucket, job.InputFilename, notebookObject(job.Name, job.InputFilename)); err != nil {
			return nil, err
		}
	}

	payloadPath, err := c.writePayload(job.Name, project, region, input)
	if err != nil {
		return nil, err
	}
	if err := c.uploadLocal(ctx, bucket, payloadPath, payloadObject(job.Name)); err != nil {
		return nil, err
	}

	dagPath, err := c.PrepareDAG(job, bucket, dagFile, project, region)
	if err != nil {
		return nil, err
	}
	if err := c.uploadLocal(ctx, bucket, dagPath, dagObject(dagFile)); err != nil {
		return nil, err
	}

	logging.Info("Job %s scheduled in %s", job.Name, job.ComposerEnvironmentName)
	if installed {
		return &ExecuteResult{Status: 0, Response: "installed python packages"}, nil
	}
	return &ExecuteResult{Status: 0}, nil
}

func (c *Client) ensureWrapper(ctx context.Context, bucket string) error {
	object := wrapperObject()
	exists, err := c.store.Exists(ctx, bucket, object)
	if err != nil {
		return fmt.Errorf("error creating dag: %w", err)
	}
	if exists {
		logging.Debug("The file %s exists.", storage.URI(bucket, object))
		return nil
	}
	logging.Debug("The file %s does not exist.", storage.URI(bucket, object))
	wrapper, err := Templates.ReadFile(path.Join("templates", WrapperFile))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", WrapperFile, err)
	}
	return c.store.Upload(ctx, bucket, object, bytes.NewReader(wrapper))
}

func (c *Client) uploadLocal(ctx context.Context, bucket, localPath, object string) error {
	f, err := c.fs.Open(localPath)
	if os.IsNotExist(err) {
		return errors.Wrap(ErrNoSource, localPath)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()
	if err := c.store.Upload(ctx, bucket, object, f); err != nil {
		logging.Error("Error uploading file to GCS: %v", err)
		return err
	}
	logging.Info("File %s uploaded to gcs successfully", localPath)
	return nil
}

func (c *Client) writePayload(jobName, project, region string, input map[string]any) (string, error) {
	data, err := json.MarshalIndent(Payload{ProjectID: project, Region: region, Job: input}, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	dir := path.Join(scheduledJobs, jobName)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	p := path.Join(dir, payloadFile)
	if err := afero.WriteFile(c.fs, p, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", p, err)
	}
	return p, nil
}

// DownloadDAGOutput fetches the notebook written by a DAG run into the
// workspace and returns its local path. An empty bucket means the
// environment's bucket.
func (c *Client) DownloadDAGOutput(ctx context.Context, env, bucket, dagID, runID, project, region string) (string, error) {
	af, err := c.Airflow(ctx, env, project, region)
	if err != nil {
		return "", err
	}
	if bucket == "" {
		bucket = af.Bucket()
	}
	if _, err := af.ListDagRunTasks(ctx, dagID, runID); err != nil {
		logging.Debug("Validating run %s: %v", runID, err)
		return "", errors.Wrapf(ErrInvalidDagRun, "Invalid DAG run ID %s", runID)
	}
	return storage.DownloadTo(ctx, c.store, bucket, OutputObject(dagID, runID), c.fs, ".")
}
