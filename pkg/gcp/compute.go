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
	"net/http"
	"notebook-scheduler/pkg/config"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
)

// Network is a VPC network or subnetwork.
type Network struct {
	Name     string `json:"name" yaml:"name"`
	SelfLink string `json:"link" yaml:"link"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty"`
	Network  string `json:"network,omitempty" yaml:"network,omitempty"`
}

func (c *Client) compute(ctx context.Context) (*compute.Service, error) {
	svc, err := compute.NewService(ctx, c.cfg.ClientOptions(config.ServiceCompute)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	return svc, nil
}

// ListRegions returns the project's region names, sorted.
func (c *Client) ListRegions(ctx context.Context) ([]string, error) {
	svc, err := c.compute(ctx)
	if err != nil {
		return nil, err
	}
	regions := []string{}
	err = svc.Regions.List(c.cfg.ProjectID).Pages(ctx, func(list *compute.RegionList) error {
		for _, r := range list.Items {
			regions = append(regions, r.Name)
		}
		return nil
	})
	if err != nil {
		return nil, wrap("regions", err)
	}
	sort.Strings(regions)
	return regions, nil
}

// ListNetworks returns the project's VPC networks.
func (c *Client) ListNetworks(ctx context.Context) ([]Network, error) {
	svc, err := c.compute(ctx)
	if err != nil {
		return nil, err
	}
	networks := []Network{}
	err = svc.Networks.List(c.cfg.ProjectID).Pages(ctx, func(list *compute.NetworkList) error {
		for _, n := range list.Items {
			networks = append(networks, Network{Name: n.Name, SelfLink: n.SelfLink})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("networks", err)
	}
	return networks, nil
}

// ListSubNetworks returns the subnetworks of network in region. An empty
// network matches every subnetwork.
func (c *Client) ListSubNetworks(ctx context.Context, region, network string) ([]Network, error) {
	svc, err := c.compute(ctx)
	if err != nil {
		return nil, err
	}
	if region == "" {
		region = c.cfg.RegionID
	}
	subnets := []Network{}
	err = svc.Subnetworks.List(c.cfg.ProjectID, region).Pages(ctx, func(list *compute.SubnetworkList) error {
		for _, s := range list.Items {
			if network != "" && shortName(s.Network) != shortName(network) {
				continue
			}
			subnets = append(subnets, Network{Name: s.Name, SelfLink: s.SelfLink, Region: region, Network: s.Network})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("subnetworks", err)
	}
	return subnets, nil
}

// GetXpnHost returns the Shared VPC host project of the configured project,
// or "" when it is not attached to one.
func (c *Client) GetXpnHost(ctx context.Context) (string, error) {
	svc, err := c.compute(ctx)
	if err != nil {
		return "", err
	}
	host, err := svc.Projects.GetXpnHost(c.cfg.ProjectID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return "", nil
		}
		return "", wrap("xpn host", err)
	}
	return host.Name, nil
}

// ListSharedNetworks returns the subnetworks of host in region that the
// configured project may use.
func (c *Client) ListSharedNetworks(ctx context.Context, host, region string) ([]Network, error) {
	svc, err := c.compute(ctx)
	if err != nil {
		return nil, err
	}
	if region == "" {
		region = c.cfg.RegionID
	}
	prefix := fmt.Sprintf("projects/%s/regions/%s/subnetworks/", host, region)
	shared := []Network{}
	err = svc.Subnetworks.ListUsable(c.cfg.ProjectID).Pages(ctx, func(list *compute.UsableSubnetworksAggregatedList) error {
		for _, s := range list.Items {
			if !strings.Contains(s.Subnetwork, prefix) {
				continue
			}
			shared = append(shared, Network{Name: shortName(s.Subnetwork), SelfLink: s.Subnetwork, Region: region, Network: s.Network})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("shared networks", err)
	}
	return shared, nil
}
