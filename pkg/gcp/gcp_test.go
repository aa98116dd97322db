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

package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"notebook-scheduler/pkg/config"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCloud serves canned responses for the resource APIs, keyed by path.
func fakeCloud(t *testing.T, status int) *httptest.Server {
	t.Helper()
	routes := map[string]any{
		"/v3/projects:search": map[string]any{"projects": []any{
			map[string]any{"projectId": "proj", "displayName": "Project"},
			map[string]any{"projectId": "other", "displayName": "Other"},
		}},
		"/v1/projects/proj/regions/us-central1/clusters": map[string]any{
			"clusters":      []any{map[string]any{"clusterName": "c1", "status": map[string]any{"state": "RUNNING"}}},
			"nextPageToken": "next",
		},
		"/v1/projects/proj/locations/us-central1/sessionTemplates": map[string]any{
			"sessionTemplates": []any{map[string]any{"name": "projects/proj/locations/us-central1/sessionTemplates/rt", "description": "runtime"}},
		},
		"/v1/projects/proj/locations/us-central1/keyRings": map[string]any{
			"keyRings": []any{map[string]any{"name": "projects/proj/locations/us-central1/keyRings/ring"}},
		},
		"/v1/projects/proj/locations/us-central1/keyRings/ring/cryptoKeys": map[string]any{
			"cryptoKeys": []any{map[string]any{"name": "projects/proj/locations/us-central1/keyRings/ring/cryptoKeys/key"}},
		},
		"/projects/proj/regions": map[string]any{"items": []any{
			map[string]any{"name": "us-east1"}, map[string]any{"name": "europe-west1"},
		}},
		"/projects/proj/global/networks": map[string]any{"items": []any{
			map[string]any{"name": "default", "selfLink": "https://compute/projects/proj/global/networks/default"},
		}},
		"/projects/proj/regions/us-central1/subnetworks": map[string]any{"items": []any{
			map[string]any{"name": "a", "network": "https://compute/projects/proj/global/networks/default"},
			map[string]any{"name": "b", "network": "https://compute/projects/proj/global/networks/other"},
		}},
		"/projects/proj/getXpnHost": map[string]any{"name": "host"},
		"/projects/proj/aggregated/subnetworks/listUsable": map[string]any{"items": []any{
			map[string]any{"subnetwork": "https://compute/projects/host/regions/us-central1/subnetworks/shared", "network": "https://compute/projects/host/global/networks/vpc"},
			map[string]any{"subnetwork": "https://compute/projects/host/regions/europe-west1/subnetworks/far"},
		}},
		"/v1/projects/proj/serviceAccounts": map[string]any{"accounts": []any{
			map[string]any{"email": "sa@proj.iam.gserviceaccount.com", "displayName": "SA"},
			map[string]any{"email": "off@proj.iam.gserviceaccount.com", "disabled": true},
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"denied"}}`, status)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, status int) *Client {
	t.Helper()
	srv := fakeCloud(t, status)
	cfg := &config.Config{
		Credentials: config.Credentials{AccessToken: "token", ProjectID: "proj", RegionID: "us-central1"},
		Endpoints:   map[string]string{},
	}
	for _, s := range []string{
		config.ServiceResourceManager, config.ServiceDataproc, config.ServiceCloudKMS,
		config.ServiceCompute, config.ServiceIAM,
	} {
		cfg.Endpoints[s] = srv.URL + "/"
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(&config.Config{})
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestListProjects(t *testing.T) {
	c := newTestClient(t, http.StatusOK)
	projects, err := c.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Project{{ProjectID: "proj", Name: "Project"}, {ProjectID: "other", Name: "Other"}}, projects)
}

func TestListProjectsUnauthorized(t *testing.T) {
	c := newTestClient(t, http.StatusUnauthorized)
	_, err := c.ListProjects(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestForbiddenIsNotAuthentication(t *testing.T) {
	c := newTestClient(t, http.StatusForbidden)
	_, err := c.ListKeyRings(context.Background(), "proj", "us-central1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "error fetching key rings")
}

func TestDataproc(t *testing.T) {
	c := newTestClient(t, http.StatusOK)
	ctx := context.Background()

	clusters, err := c.ListClusters(ctx, 50, "")
	require.NoError(t, err)
	require.Len(t, clusters.Clusters, 1)
	assert.Equal(t, "c1", clusters.Clusters[0].ClusterName)
	assert.Equal(t, "next", clusters.NextPageToken)

	runtimes, err := c.ListRuntimes(ctx, 50, "")
	require.NoError(t, err)
	require.Len(t, runtimes.SessionTemplates, 1)
	assert.Equal(t, "runtime", runtimes.SessionTemplates[0].Description)
}

func TestKMS(t *testing.T) {
	c := newTestClient(t, http.StatusOK)
	ctx := context.Background()

	rings, err := c.ListKeyRings(ctx, "proj", "us-central1")
	require.NoError(t, err)
	assert.Equal(t, []string{"ring"}, rings)

	keys, err := c.ListCryptoKeys(ctx, "proj", "us-central1", "ring")
	require.NoError(t, err)
	assert.Equal(t, []string{"key"}, keys)
}

func TestCompute(t *testing.T) {
	c := newTestClient(t, http.StatusOK)
	ctx := context.Background()

	regions, err := c.ListRegions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"europe-west1", "us-east1"}, regions)

	networks, err := c.ListNetworks(ctx)
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "default", networks[0].Name)

	subnets, err := c.ListSubNetworks(ctx, "", "default")
	require.NoError(t, err)
	require.Len(t, subnets, 1)
	assert.Equal(t, "a", subnets[0].Name)
	assert.Equal(t, "us-central1", subnets[0].Region)

	host, err := c.GetXpnHost(ctx)
	require.NoError(t, err)
	assert.Equal(t, "host", host)

	shared, err := c.ListSharedNetworks(ctx, host, "us-central1")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "shared", shared[0].Name)
	assert.True(t, strings.HasSuffix(shared[0].Network, "/vpc"))
}

func TestListServiceAccountsSkipsDisabled(t *testing.T) {
	c := newTestClient(t, http.StatusOK)
	accounts, err := c.ListServiceAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []ServiceAccount{{Email: "sa@proj.iam.gserviceaccount.com", DisplayName: "SA"}}, accounts)
}
