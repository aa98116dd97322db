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

package config

import (
	"bytes"
	"context"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/shell"
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "gopkg.in/check.v1"
)

// Hook up gocheck into the "go test" runner.
func Test(t *testing.T) { TestingT(t) }

type MySuite struct{}

var _ = Suite(&MySuite{})

var envKeys = []string{
	"NOTEBOOK_SCHEDULER_PROJECT_ID",
	"NOTEBOOK_SCHEDULER_ACCESS_TOKEN",
	"NOTEBOOK_SCHEDULER_ENDPOINTS_COMPOSER",
}

func (s *MySuite) TearDownTest(c *C) {
	for _, k := range envKeys {
		os.Unsetenv(k)
	}
}

const testConfigYaml = `
access_token: abc
project_id: from-file
region_id: us-central1
account: jane.doe@example.com
workspace_dir: /tmp/ws
request_timeout: 45s
endpoints:
  aiplatform: http://localhost:9000/
`

func readConfig(c *C, yaml string) *Config {
	v := NewViper()
	v.SetConfigType("yaml")
	c.Assert(v.ReadConfig(bytes.NewBufferString(yaml)), IsNil)
	cfg, err := Unmarshal(v)
	c.Assert(err, IsNil)
	return cfg
}

func (s *MySuite) TestUnmarshal(c *C) {
	cfg := readConfig(c, testConfigYaml)
	c.Check(cfg.AccessToken, Equals, "abc")
	c.Check(cfg.ProjectID, Equals, "from-file")
	c.Check(cfg.RegionID, Equals, "us-central1")
	c.Check(cfg.WorkspaceDir, Equals, "/tmp/ws")
	c.Check(cfg.RequestTimeout, Equals, 45*time.Second)
	c.Check(cfg.PackageIndexURL, Equals, "https://pypi.org/pypi")
	c.Check(cfg.PluginPackage, Equals, "scheduler-jupyter-plugin")
	c.Check(cfg.Endpoint(ServiceAIPlatform), Equals, "http://localhost:9000/")
	c.Check(cfg.Endpoint(ServiceComposer), Equals, "")
}

func (s *MySuite) TestEnvironmentOverridesFile(c *C) {
	os.Setenv("NOTEBOOK_SCHEDULER_PROJECT_ID", "from-env")
	os.Setenv("NOTEBOOK_SCHEDULER_ENDPOINTS_COMPOSER", "http://localhost:9001/")
	cfg := readConfig(c, testConfigYaml)
	c.Check(cfg.ProjectID, Equals, "from-env")
	c.Check(cfg.Endpoint(ServiceComposer), Equals, "http://localhost:9001/")
}

func (s *MySuite) TestEnvironmentOnly(c *C) {
	os.Setenv("NOTEBOOK_SCHEDULER_ACCESS_TOKEN", "tok")
	cfg, err := Unmarshal(NewViper())
	c.Assert(err, IsNil)
	c.Check(cfg.AccessToken, Equals, "tok")
	c.Check(cfg.WorkspaceDir, Equals, ".")
	c.Check(cfg.RequestTimeout, Equals, 30*time.Second)
}

func (s *MySuite) TestValidate(c *C) {
	c.Check(Credentials{AccessToken: "a", ProjectID: "p", RegionID: "r"}.Validate(), IsNil)

	err := Credentials{AccessToken: "a"}.Validate()
	c.Assert(err, NotNil)
	c.Check(errors.Is(err, ErrMissingCredentials), Equals, true)
	c.Check(err, ErrorMatches, "project_id, region_id not set: missing required credentials")
}

func (s *MySuite) TestOwner(c *C) {
	c.Check((&Config{Account: "jane.doe@example.com"}).Owner(), Equals, "jane.doe")
	c.Check((&Config{}).Owner(), Equals, "airflow")
}

func (s *MySuite) TestClientOptions(c *C) {
	cfg := readConfig(c, testConfigYaml)
	c.Check(cfg.ClientOptions(ServiceAIPlatform), HasLen, 2)
	c.Check(cfg.ClientOptions(ServiceStorage), HasLen, 1)

	tok, err := cfg.TokenSource().Token()
	c.Assert(err, IsNil)
	c.Check(tok.AccessToken, Equals, "abc")
}

type gcloudRunner map[string]string

func (g gcloudRunner) Run(_ context.Context, name string, args ...string) shell.CommandResult {
	key := args[len(args)-1]
	if v, ok := g[key]; ok {
		return shell.CommandResult{Stdout: v + "\n"}
	}
	return shell.CommandResult{ExitCode: 1, Stderr: "unset"}
}

func (s *MySuite) TestResolveFromGcloud(c *C) {
	cfg := &Config{}
	cfg.ResolveFromGcloud(context.Background(), gcloudRunner{"project": "gproj", "account": "me@example.com"})
	c.Check(cfg.ProjectID, Equals, "gproj")
	c.Check(cfg.Account, Equals, "me@example.com")

	cfg = &Config{Credentials: Credentials{ProjectID: "set"}}
	cfg.ResolveFromGcloud(context.Background(), gcloudRunner{})
	c.Check(cfg.ProjectID, Equals, "set")
	c.Check(cfg.Account, Equals, "")
}

func (s *MySuite) TestResolveFromGcloudWarnsOnFailure(c *C) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(os.Stderr)

	cfg := &Config{}
	cfg.ResolveFromGcloud(context.Background(), gcloudRunner{})
	c.Check(cfg.ProjectID, Equals, "")
	c.Check(buf.String(), Matches, `(?s).*level=warning.*get-value project failed: unset.*`)
	c.Check(buf.String(), Matches, `(?s).*get-value account failed: unset.*`)
}
