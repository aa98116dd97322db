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
	"embed"
	"fmt"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/storage"
	"path"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/go-containerregistry/pkg/name"
	"github.com/spf13/afero"
)

// Template names, kept versioned so that existing DAGs can be told apart from
// ones generated by newer templates.
const (
	TemplateCluster    = "pysparkJobTemplate-v1.txt"
	TemplateServerless = "pysparkBatchTemplate-v1.txt"
	TemplateLocal      = "localPythonTemplate-v1.txt"

	// WrapperFile runs the notebook with papermill on the Dataproc driver.
	WrapperFile = "wrapper_papermill.py"
)

// Object layout inside the environment bucket.
const (
	notebooksPrefix = "dataproc-notebooks"
	outputPrefix    = "dataproc-output"
	dagsPrefix      = "dags"
	payloadFile     = "dag_details.json"
	scheduledJobs   = "scheduled-jobs"
)

//go:embed templates
var Templates embed.FS

var dagTemplates = template.Must(
	template.New("dags").
		Delims("[[", "]]").
		Funcs(template.FuncMap{
			"py":         pyString,
			"pylist":     pyList,
			"pybool":     pyBool,
			"pydatetime": pyDatetime,
			"batchid":    batchIDPrefix,
		}).
		ParseFS(Templates, "templates/*.txt"),
)

// pyString quotes s as a Python string literal. Go's escapes are a subset of
// the ones Python accepts.
func pyString(s string) string {
	return strconv.Quote(s)
}

func pyList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, s := range items {
		quoted = append(quoted, pyString(s))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func pyDatetime(t time.Time, tz string) string {
	if tz == "" {
		return fmt.Sprintf("datetime(%d, %d, %d)", t.Year(), t.Month(), t.Day())
	}
	return fmt.Sprintf("pendulum.datetime(%d, %d, %d, %d, %d, %d, tz=%s)",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), pyString(tz))
}

// batchIDSuffixLen is the length of "-" plus the lower-cased ts_nodash
// appended to every serverless batch id.
const batchIDSuffixLen = 16

// batchIDPrefix turns a DAG id into the leading part of a Dataproc batch id,
// which must match ^[a-z0-9][a-z0-9-]{3,61}[a-z0-9]$ once the run timestamp
// is appended.
func batchIDPrefix(dagID string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(dagID) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	id := strings.TrimLeft(b.String(), "-")
	if limit := 63 - batchIDSuffixLen; len(id) > limit {
		id = id[:limit]
	}
	if id == "" {
		return "notebook"
	}
	return id
}

// DagData is everything a DAG template can reference.
type DagData struct {
	DagID            string
	Name             string
	Owner            string
	ProjectID        string
	Region           string
	ScheduleInterval string
	MaxActiveRuns    int
	StartDate        time.Time
	TimeZone         string
	RetryCount       int
	RetryDelay       int
	Email            []string
	EmailFailure     bool
	EmailDelay       bool
	EmailSuccess     bool
	InputFilePath    string
	InputNotebook    string
	OutputNotebook   string
	Parameters       string
	ClusterName      string
	StopCluster      bool

	// Serverless only.
	PhsPath          string
	ServerlessName   string
	CustomContainer  string
	MetastoreService string
	Version          string
}

func notebookObject(jobName, inputFilename string) string {
	return path.Join(notebooksPrefix, jobName, "input_notebooks", path.Base(inputFilename))
}

func payloadObject(jobName string) string {
	return path.Join(notebooksPrefix, jobName, "dag_details", payloadFile)
}

func wrapperObject() string {
	return path.Join(notebooksPrefix, WrapperFile)
}

func dagObject(dagFile string) string {
	return path.Join(dagsPrefix, dagFile)
}

// OutputObject is the notebook written by a DAG run.
func OutputObject(dagID, runID string) string {
	return fmt.Sprintf("%s/%s/output-notebooks/%s_%s.ipynb", outputPrefix, dagID, dagID, runID)
}

func formatParameters(params []string, sep string) string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, strings.Replace(p, ":", ": ", 1))
	}
	return strings.Join(out, sep)
}

// startDate is the DAG start date: yesterday at local midnight for jobs
// without a zone, otherwise this time yesterday in the job's zone.
func (c *Client) startDate(tz string) (time.Time, error) {
	now := c.now()
	if tz == "" {
		y := now.AddDate(0, 0, -1)
		return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.Local), nil
	}
	loc, err := models.LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return now.In(loc).AddDate(0, 0, -1), nil
}

// dagData fills the template values for job.
func (c *Client) dagData(job *models.ComposerJob, bucket, project, region string) (*DagData, string, error) {
	schedule := job.ScheduleValue
	if schedule == "" {
		schedule = models.ScheduleOnce
	}
	start, err := c.startDate(job.TimeZone)
	if err != nil {
		return nil, "", err
	}

	// Airflow refuses continuous DAGs that allow overlapping runs.
	maxActiveRuns := 0
	if strings.EqualFold(strings.TrimSpace(schedule), models.ScheduleContinuous) {
		maxActiveRuns = 1
	}

	input := job.InputFilename
	if !storage.IsURI(input) {
		input = storage.URI(bucket, notebookObject(job.Name, job.InputFilename))
	}

	data := &DagData{
		DagID:            job.DagID,
		Name:             job.Name,
		Owner:            c.cfg.Owner(),
		ProjectID:        project,
		Region:           region,
		ScheduleInterval: schedule,
		MaxActiveRuns:    maxActiveRuns,
		StartDate:        start,
		TimeZone:         job.TimeZone,
		RetryCount:       job.RetryCount,
		RetryDelay:       job.RetryDelay,
		Email:            job.Email,
		EmailFailure:     job.EmailFailure,
		EmailDelay:       job.EmailDelay,
		EmailSuccess:     job.EmailSuccess,
		InputFilePath:    storage.URI(bucket, wrapperObject()),
		InputNotebook:    input,
		OutputNotebook:   storage.URI(bucket, fmt.Sprintf("%s/%s/output-notebooks/%s_", outputPrefix, job.Name, job.Name)),
		Parameters:       formatParameters(job.Parameters, "\n"),
		ClusterName:      job.ClusterName,
		StopCluster:      job.StopCluster,
	}

	switch {
	case job.LocalKernel:
		data.Parameters = formatParameters(job.Parameters, ",")
		return data, TemplateLocal, nil
	case job.IsCluster():
		return data, TemplateCluster, nil
	}

	data.PhsPath = job.ServerlessValue("environmentConfig", "peripheralsConfig", "sparkHistoryServerConfig", "dataprocCluster")
	data.ServerlessName = job.ServerlessValue("jupyterSession", "displayName")
	data.CustomContainer = job.ServerlessValue("runtimeConfig", "containerImage")
	data.MetastoreService = job.ServerlessValue("environmentConfig", "peripheralsConfig", "metastoreService")
	data.Version = job.ServerlessValue("runtimeConfig", "version")
	if data.CustomContainer != "" {
		if _, err := name.ParseReference(data.CustomContainer); err != nil {
			return nil, "", fmt.Errorf("invalid custom container image %q: %w", data.CustomContainer, err)
		}
	}
	return data, TemplateServerless, nil
}

// RenderDAG returns the DAG source for job.
func (c *Client) RenderDAG(job *models.ComposerJob, bucket, project, region string) ([]byte, error) {
	data, tmpl, err := c.dagData(job, bucket, project, region)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := dagTemplates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", tmpl, err)
	}
	return buf.Bytes(), nil
}

// PrepareDAG renders the DAG into scheduled-jobs/<name>/ in the workspace and
// copies the papermill wrapper next to it. It returns the DAG's local path.
func (c *Client) PrepareDAG(job *models.ComposerJob, bucket, dagFile, project, region string) (string, error) {
	logging.Info("Generating dag file")
	content, err := c.RenderDAG(job, bucket, project, region)
	if err != nil {
		return "", err
	}

	dir := path.Join(scheduledJobs, job.Name)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	dagPath := path.Join(dir, dagFile)
	if err := afero.WriteFile(c.fs, dagPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dagPath, err)
	}

	wrapper, err := Templates.ReadFile(path.Join("templates", WrapperFile))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", WrapperFile, err)
	}
	if err := afero.WriteFile(c.fs, path.Join(dir, WrapperFile), wrapper, 0o644); err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", WrapperFile, err)
	}
	return dagPath, nil
}
