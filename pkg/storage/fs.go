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
	"os"
	"path"

	"github.com/spf13/afero"
)

// FsStore keeps objects as files under <bucket>/<object> on an afero
// filesystem. It backs dry runs and tests.
type FsStore struct {
	Fs afero.Fs
}

var _ ObjectStore = (*FsStore)(nil)

// NewFsStore returns a store rooted at fs.
func NewFsStore(fs afero.Fs) *FsStore {
	return &FsStore{Fs: fs}
}

func (s *FsStore) path(bucket, object string) string {
	return path.Join("/", bucket, object)
}

func (s *FsStore) Exists(_ context.Context, bucket, object string) (bool, error) {
	if err := checkBucket(bucket); err != nil {
		return false, err
	}
	ok, err := afero.Exists(s.Fs, s.path(bucket, object))
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", URI(bucket, object), err)
	}
	return ok, nil
}

func (s *FsStore) Upload(_ context.Context, bucket, object string, r io.Reader) error {
	if err := checkBucket(bucket); err != nil {
		return err
	}
	p := s.path(bucket, object)
	if err := s.Fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to upload %s: %w", URI(bucket, object), err)
	}
	if err := afero.WriteReader(s.Fs, p, r); err != nil {
		return fmt.Errorf("failed to upload %s: %w", URI(bucket, object), err)
	}
	return nil
}

func (s *FsStore) Download(_ context.Context, bucket, object string) ([]byte, error) {
	if err := checkBucket(bucket); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.Fs, s.path(bucket, object))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", URI(bucket, object), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", URI(bucket, object), err)
	}
	return data, nil
}

func (s *FsStore) Delete(_ context.Context, bucket, object string) error {
	if err := checkBucket(bucket); err != nil {
		return err
	}
	err := s.Fs.Remove(s.path(bucket, object))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", URI(bucket, object), err)
	}
	return nil
}
