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

// Package config loads the scheduler configuration and turns the externally
// supplied credentials into Google API client options.
package config

import (
	"context"
	"fmt"
	"notebook-scheduler/pkg/logging"
	"notebook-scheduler/pkg/shell"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// EnvPrefix is the prefix of every environment variable read by the scheduler.
const EnvPrefix = "NOTEBOOK_SCHEDULER"

// Services whose endpoint can be overridden with endpoints.<name>.
const (
	ServiceComposer        = "composer"
	ServiceAIPlatform      = "aiplatform"
	ServiceStorage         = "storage"
	ServiceDataproc        = "dataproc"
	ServiceResourceManager = "resourcemanager"
	ServiceCloudKMS        = "cloudkms"
	ServiceCompute         = "compute"
	ServiceIAM             = "iam"
)

var services = []string{
	ServiceComposer, ServiceAIPlatform, ServiceStorage, ServiceDataproc,
	ServiceResourceManager, ServiceCloudKMS, ServiceCompute, ServiceIAM,
}

// ErrMissingCredentials is returned when the access token, project or region is absent.
var ErrMissingCredentials = errors.New("missing required credentials")

// Credentials are supplied from outside: config file, environment or flags.
type Credentials struct {
	AccessToken string `mapstructure:"access_token"`
	ProjectID   string `mapstructure:"project_id"`
	RegionID    string `mapstructure:"region_id"`
}

// Validate fails with ErrMissingCredentials unless all three fields are set.
func (c Credentials) Validate() error {
	var missing []string
	if c.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if c.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if c.RegionID == "" {
		missing = append(missing, "region_id")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrMissingCredentials, "%s not set", strings.Join(missing, ", "))
	}
	return nil
}

// Config is the complete scheduler configuration.
type Config struct {
	Credentials `mapstructure:",squash"`

	// Account is the user's email. Its local part becomes the DAG owner.
	Account string `mapstructure:"account"`
	// WorkspaceDir is the local root for staged DAGs and downloaded outputs.
	WorkspaceDir string `mapstructure:"workspace_dir"`
	// Endpoints overrides service base URLs, keyed by service name.
	Endpoints map[string]string `mapstructure:"endpoints"`
	// PackageIndexURL is the package index queried for plugin releases.
	PackageIndexURL string `mapstructure:"package_index_url"`
	// PluginPackage is the name of the plugin package to check and upgrade.
	PluginPackage  string        `mapstructure:"plugin_package"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SetDefaults registers every key so that environment variables are picked up
// by AllSettings even when no config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("access_token", "")
	v.SetDefault("project_id", "")
	v.SetDefault("region_id", "")
	v.SetDefault("account", "")
	v.SetDefault("workspace_dir", ".")
	v.SetDefault("package_index_url", "https://pypi.org/pypi")
	v.SetDefault("plugin_package", "scheduler-jupyter-plugin")
	v.SetDefault("request_timeout", "30s")
	for _, s := range services {
		v.SetDefault("endpoints."+s, "")
	}
}

// NewViper returns a viper instance wired to the scheduler's env prefix and
// config file search path.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("scheduler")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/notebook-scheduler/")
	v.AddConfigPath("$HOME/.config/notebook-scheduler")
	v.AddConfigPath(".")

	SetDefaults(v)
	return v
}

// Load reads the optional config file and decodes all settings.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		logging.Debug("No config file found, using environment and flags only")
	} else {
		logging.Debug("Using config file %s", v.ConfigFileUsed())
	}
	return Unmarshal(v)
}

// Unmarshal decodes the settings of v into a Config.
func Unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create config decoder: %w", err)
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg, nil
}

// ResolveFromGcloud fills the project and account from the gcloud configuration
// when they were not supplied. The access token is never read here.
func (c *Config) ResolveFromGcloud(ctx context.Context, runner shell.Runner) {
	if c.ProjectID == "" {
		if v := gcloudValue(ctx, runner, "project"); v != "" {
			logging.Info("Using GCP Project ID inferred from gcloud config: %s", v)
			c.ProjectID = v
		}
	}
	if c.Account == "" {
		c.Account = gcloudValue(ctx, runner, "account")
	}
}

func gcloudValue(ctx context.Context, runner shell.Runner, key string) string {
	res := runner.Run(ctx, "gcloud", "config", "get-value", key)
	if !res.Success() {
		logging.Warn("gcloud config get-value %s failed: %s", key, strings.TrimSpace(res.Stderr))
		return ""
	}
	return strings.TrimSpace(res.Stdout)
}

// Owner returns the local part of the account email, used as the DAG owner.
func (c *Config) Owner() string {
	owner, _, _ := strings.Cut(c.Account, "@")
	if owner == "" {
		return "airflow"
	}
	return owner
}

// Endpoint returns the endpoint override for a service, or "".
func (c *Config) Endpoint(service string) string {
	return c.Endpoints[service]
}

// TokenSource wraps the supplied access token.
func (c *Config) TokenSource() oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.AccessToken, TokenType: "Bearer"})
}

// ClientOptions returns the Google API client options for a service.
func (c *Config) ClientOptions(service string) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(c.TokenSource())}
	if ep := c.Endpoint(service); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts
}

// Workspace returns the local filesystem rooted at WorkspaceDir.
func (c *Config) Workspace() afero.Fs {
	dir := c.WorkspaceDir
	if dir == "" {
		dir = "."
	}
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}
