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

// Package storage moves notebooks, DAGs and outputs in and out of Cloud
// Storage buckets.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyBucket is returned when an operation is given no bucket name.
var ErrEmptyBucket = errors.New("bucket name cannot be empty")

// ErrNotFound is returned by Download when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore is the subset of bucket operations the schedulers need.
type ObjectStore interface {
	Exists(ctx context.Context, bucket, object string) (bool, error)
	Upload(ctx context.Context, bucket, object string, r io.Reader) error
	Download(ctx context.Context, bucket, object string) ([]byte, error)
	Delete(ctx context.Context, bucket, object string) error
}

// URI formats a gs:// URI.
func URI(bucket, object string) string {
	if object == "" {
		return "gs://" + bucket
	}
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

// ParseURI splits a gs:// URI into bucket and object. A bare bucket name is
// accepted and yields an empty object.
func ParseURI(uri string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(uri, "gs://")
	bucket, object, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid storage URI %q: %w", uri, ErrEmptyBucket)
	}
	return bucket, object, nil
}

// IsURI reports whether s points into Cloud Storage.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

func checkBucket(bucket string) error {
	if bucket == "" {
		return ErrEmptyBucket
	}
	return nil
}
