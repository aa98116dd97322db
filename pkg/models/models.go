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

// Package models holds the request and response shapes shared by the
// Composer and Vertex AI schedulers.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	ModeCluster    = "cluster"
	ModeServerless = "serverless"

	// ScheduleOnce runs a DAG a single time.
	ScheduleOnce = "@once"
)

// ErrMissingField is returned when a required job field is absent.
var ErrMissingField = errors.New("missing required field")

// ComposerEnvironment defines a runtime context where job execution happens.
type ComposerEnvironment struct {
	Name           string            `json:"name" yaml:"name"`
	Label          string            `json:"label" yaml:"label"`
	Description    string            `json:"description" yaml:"description"`
	State          string            `json:"state" yaml:"state"`
	FileExtensions []string          `json:"file_extensions" yaml:"file_extensions"`
	Metadata       map[string]string `json:"metadata" yaml:"metadata"`
	PypiPackages   map[string]string `json:"pypi_packages,omitempty" yaml:"pypi_packages,omitempty"`
}

// ComposerJob describes a notebook scheduled through a Composer DAG.
type ComposerJob struct {
	InputFilename           string         `mapstructure:"input_filename" json:"input_filename"`
	ComposerEnvironmentName string         `mapstructure:"composer_environment_name" json:"composer_environment_name"`
	OutputFormats           []string       `mapstructure:"output_formats" json:"output_formats,omitempty"`
	Parameters              []string       `mapstructure:"parameters" json:"parameters,omitempty"`
	ServerlessName          map[string]any `mapstructure:"serverless_name" json:"serverless_name,omitempty"`
	ClusterName             string         `mapstructure:"cluster_name" json:"cluster_name"`
	ModeSelected            string         `mapstructure:"mode_selected" json:"mode_selected"`
	ScheduleValue           string         `mapstructure:"schedule_value" json:"schedule_value"`
	RetryCount              int            `mapstructure:"retry_count" json:"retry_count"`
	RetryDelay              int            `mapstructure:"retry_delay" json:"retry_delay"`
	EmailFailure            bool           `mapstructure:"email_failure" json:"email_failure"`
	EmailDelay              bool           `mapstructure:"email_delay" json:"email_delay"`
	EmailSuccess            bool           `mapstructure:"email_success" json:"email_success"`
	Email                   []string       `mapstructure:"email" json:"email,omitempty"`
	Name                    string         `mapstructure:"name" json:"name"`
	DagID                   string         `mapstructure:"dag_id" json:"dag_id"`
	StopCluster             bool           `mapstructure:"stop_cluster" json:"stop_cluster"`
	TimeZone                string         `mapstructure:"time_zone" json:"time_zone"`
	LocalKernel             bool           `mapstructure:"local_kernel" json:"local_kernel"`
	// PackagesToInstall is nil when no install was requested.
	PackagesToInstall []string `mapstructure:"packages_to_install" json:"packages_to_install,omitempty"`
}

var requiredComposerFields = []string{
	"input_filename",
	"composer_environment_name",
	"cluster_name",
	"mode_selected",
	"schedule_value",
	"name",
	"dag_id",
	"time_zone",
}

// DecodeComposerJob builds a ComposerJob from a decoded JSON object, applying
// the retry defaults. Nulls count as absent for required fields.
func DecodeComposerJob(input map[string]any) (*ComposerJob, error) {
	var missing []string
	for _, f := range requiredComposerFields {
		if v, ok := input[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Wrap(ErrMissingField, strings.Join(missing, ", "))
	}

	job := &ComposerJob{RetryCount: 2, RetryDelay: 5}
	if err := decode(input, job); err != nil {
		return nil, fmt.Errorf("failed to decode composer job: %w", err)
	}
	return job, nil
}

// Validate checks the schedule expression and the time zone.
func (j *ComposerJob) Validate() error {
	if j.Name == "" {
		return errors.Wrap(ErrMissingField, "name")
	}
	if j.ScheduleValue != "" {
		if _, err := ParseAirflowSchedule(j.ScheduleValue); err != nil {
			return err
		}
	}
	if _, err := LoadLocation(j.TimeZone); err != nil {
		return err
	}
	return nil
}

// DagFile is the name of the generated DAG file.
func (j *ComposerJob) DagFile() string {
	return fmt.Sprintf("dag_%s.py", j.Name)
}

// IsCluster reports whether the job runs on a Dataproc cluster.
func (j *ComposerJob) IsCluster() bool {
	return j.ModeSelected == ModeCluster
}

// ServerlessValue walks the nested serverless session template and returns the
// string at path, or "".
func (j *ComposerJob) ServerlessValue(path ...string) string {
	var cur any = j.ServerlessName
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}

// BucketName is the body of bucket creation requests.
type BucketName struct {
	BucketName string `mapstructure:"bucket_name" json:"bucket_name"`
}

// VertexJob describes a notebook scheduled through a Vertex AI schedule.
type VertexJob struct {
	InputFilename      string   `mapstructure:"input_filename" json:"input_filename"`
	DisplayName        string   `mapstructure:"display_name" json:"display_name"`
	MachineType        string   `mapstructure:"machine_type" json:"machine_type,omitempty"`
	AcceleratorType    string   `mapstructure:"accelerator_type" json:"accelerator_type,omitempty"`
	AcceleratorCount   int64    `mapstructure:"accelerator_count" json:"accelerator_count,omitempty"`
	KernelName         string   `mapstructure:"kernel_name" json:"kernel_name,omitempty"`
	ScheduleValue      string   `mapstructure:"schedule_value" json:"schedule_value"`
	TimeZone           string   `mapstructure:"time_zone" json:"time_zone"`
	MaxRunCount        string   `mapstructure:"max_run_count" json:"max_run_count"`
	Region             string   `mapstructure:"region" json:"region,omitempty"`
	CloudStorageBucket string   `mapstructure:"cloud_storage_bucket" json:"cloud_storage_bucket,omitempty"`
	Parameters         []string `mapstructure:"parameters" json:"parameters,omitempty"`
	ServiceAccount     string   `mapstructure:"service_account" json:"service_account,omitempty"`
	Network            string   `mapstructure:"network" json:"network,omitempty"`
	Subnetwork         string   `mapstructure:"subnetwork" json:"subnetwork,omitempty"`
	StartTime          string   `mapstructure:"start_time" json:"start_time,omitempty"`
	EndTime            string   `mapstructure:"end_time" json:"end_time,omitempty"`
	GcsNotebookSource  string   `mapstructure:"gcs_notebook_source" json:"gcs_notebook_source"`
	DiskType           string   `mapstructure:"disk_type" json:"disk_type,omitempty"`
	DiskSize           string   `mapstructure:"disk_size" json:"disk_size,omitempty"`
	KmsKeyName         string   `mapstructure:"kms_key_name" json:"kms_key_name,omitempty"`
}

var requiredVertexFields = []string{
	"input_filename",
	"display_name",
	"schedule_value",
	"time_zone",
	"max_run_count",
	"gcs_notebook_source",
}

// DecodeVertexJob builds a VertexJob from a decoded JSON object.
func DecodeVertexJob(input map[string]any) (*VertexJob, error) {
	var missing []string
	for _, f := range requiredVertexFields {
		if v, ok := input[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, errors.Wrap(ErrMissingField, strings.Join(missing, ", "))
	}
	job := &VertexJob{}
	if err := decode(input, job); err != nil {
		return nil, fmt.Errorf("failed to decode vertex job: %w", err)
	}
	return job, nil
}

func decode(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// LoadLocation resolves an IANA zone name. An empty name is the local zone.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", tz, err)
	}
	return loc, nil
}
