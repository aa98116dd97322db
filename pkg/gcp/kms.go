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
	"fmt"
	"notebook-scheduler/pkg/config"

	"google.golang.org/api/cloudkms/v1"
)

func (c *Client) kms(ctx context.Context) (*cloudkms.Service, error) {
	svc, err := cloudkms.NewService(ctx, c.cfg.ClientOptions(config.ServiceCloudKMS)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud kms client: %w", err)
	}
	return svc, nil
}

// ListKeyRings returns the short names of the key rings in a location.
func (c *Client) ListKeyRings(ctx context.Context, project, region string) ([]string, error) {
	svc, err := c.kms(ctx)
	if err != nil {
		return nil, err
	}
	parent := fmt.Sprintf("projects/%s/locations/%s", project, region)
	rings := []string{}
	err = svc.Projects.Locations.KeyRings.List(parent).Pages(ctx, func(resp *cloudkms.ListKeyRingsResponse) error {
		for _, r := range resp.KeyRings {
			rings = append(rings, shortName(r.Name))
		}
		return nil
	})
	if err != nil {
		return nil, wrap("key rings", err)
	}
	return rings, nil
}

// ListCryptoKeys returns the short names of the keys in a key ring.
func (c *Client) ListCryptoKeys(ctx context.Context, project, region, keyRing string) ([]string, error) {
	svc, err := c.kms(ctx)
	if err != nil {
		return nil, err
	}
	parent := fmt.Sprintf("projects/%s/locations/%s/keyRings/%s", project, region, keyRing)
	keys := []string{}
	err = svc.Projects.Locations.KeyRings.CryptoKeys.List(parent).Pages(ctx, func(resp *cloudkms.ListCryptoKeysResponse) error {
		for _, k := range resp.CryptoKeys {
			keys = append(keys, shortName(k.Name))
		}
		return nil
	})
	if err != nil {
		return nil, wrap("crypto keys", err)
	}
	return keys, nil
}
