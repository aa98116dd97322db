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

package storage

import (
	"context"
	"fmt"
	"io"
	"notebook-scheduler/pkg/logging"
	"path"
	"sort"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is an ObjectStore backed by Cloud Storage.
type GCS struct {
	client *storage.Client
}

var _ ObjectStore = (*GCS)(nil)

// NewGCS creates a Cloud Storage client.
func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Exists(ctx context.Context, bucket, object string) (bool, error) {
	if err := checkBucket(bucket); err != nil {
		return false, err
	}
	_, err := g.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		logging.Error("Error checking file %s: %v", URI(bucket, object), err)
		return false, fmt.Errorf("failed to check %s: %w", URI(bucket, object), err)
	}
	return true, nil
}

func (g *GCS) Upload(ctx context.Context, bucket, object string, r io.Reader) error {
	if err := checkBucket(bucket); err != nil {
		return err
	}
	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", URI(bucket, object), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload %s: %w", URI(bucket, object), err)
	}
	logging.Info("File uploaded to %s", URI(bucket, object))
	return nil
}

func (g *GCS) Download(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := checkBucket(bucket); err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%s: %w", URI(bucket, object), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", URI(bucket, object), err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URI(bucket, object), err)
	}
	return data, nil
}

func (g *GCS) Delete(ctx context.Context, bucket, object string) error {
	if err := checkBucket(bucket); err != nil {
		return err
	}
	err := g.client.Bucket(bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", URI(bucket, object), err)
	}
	return nil
}

// ListBuckets returns the names of the project's buckets, sorted.
func (g *GCS) ListBuckets(ctx context.Context, project string) ([]string, error) {
	var names []string
	it := g.client.Buckets(ctx, project)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logging.Error("Error listing buckets: %v", err)
			return nil, fmt.Errorf("failed to list buckets: %w", err)
		}
		names = append(names, attrs.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CreateBucket creates a bucket in the given location. An empty location
// leaves the choice to Cloud Storage.
func (g *GCS) CreateBucket(ctx context.Context, project, name, location string) error {
	if err := checkBucket(name); err != nil {
		return err
	}
	attrs := &storage.BucketAttrs{Location: location}
	if err := g.client.Bucket(name).Create(ctx, project, attrs); err != nil {
		logging.Error("Error creating bucket %s: %v", name, err)
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	logging.Info("Bucket %s created", name)
	return nil
}

// OutputObject is the object written by a Vertex notebook execution.
func OutputObject(prefix, runID, file string) string {
	return path.Join(prefix, runID, file)
}

// OutputFileExists reports whether a Vertex execution produced file. The
// bucket may be a bare name or a gs:// URI with a prefix.
func OutputFileExists(ctx context.Context, store ObjectStore, bucketURI, runID, file string) (bool, error) {
	bucket, prefix, err := ParseURI(bucketURI)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, bucket, OutputObject(prefix, runID, file))
}

// DownloadOutput copies a Vertex execution output into dir on fs and returns
// the local path.
func DownloadOutput(ctx context.Context, store ObjectStore, bucketURI, runID, file string, fs afero.Fs, dir string) (string, error) {
	bucket, prefix, err := ParseURI(bucketURI)
	if err != nil {
		return "", err
	}
	return DownloadTo(ctx, store, bucket, OutputObject(prefix, runID, file), fs, dir)
}

// DownloadTo fetches object into dir on fs, keeping its base name.
func DownloadTo(ctx context.Context, store ObjectStore, bucket, object string, fs afero.Fs, dir string) (string, error) {
	data, err := store.Download(ctx, bucket, object)
	if err != nil {
		logging.Error("Error downloading output notebook file: %v", err)
		return "", err
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	dest := path.Join(dir, path.Base(object))
	if err := afero.WriteFile(fs, dest, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	logging.Info("Output notebook file '%s' downloaded successfully", path.Base(object))
	return dest, nil
}
