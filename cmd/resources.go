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

package cmd

import (
	"notebook-scheduler/pkg/config"
	"notebook-scheduler/pkg/gcp"
	"notebook-scheduler/pkg/models"
	"notebook-scheduler/pkg/storage"

	"github.com/spf13/cobra"
)

var (
	pageSize       int64
	pageToken      string
	resourceRegion string
	subnetNetwork  string
	bucketLocation string
)

// resourceCommand builds a command that lists a resource through pkg/gcp.
func resourceCommand(use, short string, args cobra.PositionalArgs, list func(*cobra.Command, *gcp.Client, []string) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := gcp.NewClient(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			cmd.SetContext(ctx)
			res, err := list(cmd, c, args)
			if err != nil {
				return err
			}
			return printResult(res)
		},
	}
}

func region() string {
	if resourceRegion != "" {
		return resourceRegion
	}
	return cfg.RegionID
}

var (
	projectsCmd = resourceCommand("projects", "Lists the projects visible to the token.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListProjects(cmd.Context())
		})

	clustersCmd = resourceCommand("clusters", "Lists Dataproc clusters in the region.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListClusters(cmd.Context(), pageSize, pageToken)
		})

	runtimesCmd = resourceCommand("runtimes", "Lists Dataproc serverless runtime templates in the region.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListRuntimes(cmd.Context(), pageSize, pageToken)
		})

	keyRingsCmd = resourceCommand("keyrings", "Lists Cloud KMS key rings.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListKeyRings(cmd.Context(), cfg.ProjectID, region())
		})

	cryptoKeysCmd = resourceCommand("cryptokeys KEY_RING", "Lists the keys of a Cloud KMS key ring.", cobra.ExactArgs(1),
		func(cmd *cobra.Command, c *gcp.Client, args []string) (any, error) {
			return c.ListCryptoKeys(cmd.Context(), cfg.ProjectID, region(), args[0])
		})

	regionsCmd = resourceCommand("regions", "Lists Compute Engine regions.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListRegions(cmd.Context())
		})

	networksCmd = resourceCommand("networks", "Lists VPC networks.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListNetworks(cmd.Context())
		})

	subnetworksCmd = resourceCommand("subnetworks", "Lists the subnetworks of a network in the region.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListSubNetworks(cmd.Context(), region(), subnetNetwork)
		})

	xpnHostCmd = resourceCommand("xpn-host", "Prints the Shared VPC host project.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			host, err := c.GetXpnHost(cmd.Context())
			if err != nil {
				return nil, err
			}
			return map[string]string{"host": host}, nil
		})

	sharedNetworksCmd = resourceCommand("shared-networks [HOST_PROJECT]", "Lists usable subnetworks shared by the host project.", cobra.MaximumNArgs(1),
		func(cmd *cobra.Command, c *gcp.Client, args []string) (any, error) {
			var host string
			if len(args) == 1 {
				host = args[0]
			} else {
				var err error
				if host, err = c.GetXpnHost(cmd.Context()); err != nil {
					return nil, err
				}
			}
			if host == "" {
				return []gcp.Network{}, nil
			}
			return c.ListSharedNetworks(cmd.Context(), host, region())
		})

	serviceAccountsCmd = resourceCommand("service-accounts", "Lists enabled service accounts.", cobra.NoArgs,
		func(cmd *cobra.Command, c *gcp.Client, _ []string) (any, error) {
			return c.ListServiceAccounts(cmd.Context())
		})
)

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "Lists the Cloud Storage buckets of the project.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGCS(cmd, func(g *storage.GCS) (any, error) {
			return g.ListBuckets(cmd.Context(), cfg.ProjectID)
		})
	},
}

var createBucketCmd = &cobra.Command{
	Use:   "create-bucket NAME",
	Short: "Creates a Cloud Storage bucket for schedule outputs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.BucketName{BucketName: args[0]}
		location := bucketLocation
		if location == "" {
			location = cfg.RegionID
		}
		return withGCS(cmd, func(g *storage.GCS) (any, error) {
			if err := g.CreateBucket(cmd.Context(), cfg.ProjectID, req.BucketName, location); err != nil {
				return nil, err
			}
			return req, nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{clustersCmd, runtimesCmd} {
		c.Flags().Int64Var(&pageSize, "page-size", 50, "Maximum number of results per page.")
		c.Flags().StringVar(&pageToken, "page-token", "", "Token of the page to fetch.")
	}
	for _, c := range []*cobra.Command{keyRingsCmd, cryptoKeysCmd, subnetworksCmd, sharedNetworksCmd} {
		c.Flags().StringVar(&resourceRegion, "location", "", "Region to look in. Defaults to --region.")
	}
	subnetworksCmd.Flags().StringVar(&subnetNetwork, "network", "", "Only subnetworks of this network.")
	createBucketCmd.Flags().StringVar(&bucketLocation, "location", "", "Bucket location. Defaults to --region.")

	rootCmd.AddCommand(
		projectsCmd,
		clustersCmd,
		runtimesCmd,
		keyRingsCmd,
		cryptoKeysCmd,
		regionsCmd,
		networksCmd,
		subnetworksCmd,
		xpnHostCmd,
		sharedNetworksCmd,
		serviceAccountsCmd,
		bucketsCmd,
		createBucketCmd,
	)
}

func withGCS(cmd *cobra.Command, run func(*storage.GCS) (any, error)) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g, err := storage.NewGCS(cmd.Context(), cfg.ClientOptions(config.ServiceStorage)...)
	if err != nil {
		return err
	}
	defer g.Close()
	res, err := run(g)
	if err != nil {
		return err
	}
	return printResult(res)
}
