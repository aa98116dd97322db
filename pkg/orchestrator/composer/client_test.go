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
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/storage"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closingStore is an object store that records Close.
type closingStore struct {
	*storage.FsStore
	closed int
}

func (s *closingStore) Close() error {
	s.closed++
	return nil
}

func TestClientCloseReleasesStore(t *testing.T) {
	store := &closingStore{FsStore: storage.NewFsStore(afero.NewMemMapFs())}
	cfg := &config.Config{
		Credentials: config.Credentials{AccessToken: "token", ProjectID: testProject, RegionID: testRegion},
		Endpoints:   map[string]string{config.ServiceComposer: "http://127.0.0.1:0/"},
	}
	c, err := NewClient(context.Background(), cfg, WithStore(store), WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	require.NoError(t, c.Close())
	assert.Equal(t, 1, store.closed)
}

func TestClientCloseWithoutCloser(t *testing.T) {
	c := newTestClient(t, "https://airflow.example.com")
	assert.NoError(t, c.Close())
}
