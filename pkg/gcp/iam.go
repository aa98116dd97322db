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

	"google.golang.org/api/iam/v1"
)

// ServiceAccount is an identity a notebook execution can run as.
type ServiceAccount struct {
	Email       string `json:"email" yaml:"email"`
	DisplayName string `json:"displayName" yaml:"displayName"`
}

// ListServiceAccounts returns the project's enabled service accounts.
func (c *Client) ListServiceAccounts(ctx context.Context) ([]ServiceAccount, error) {
	svc, err := iam.NewService(ctx, c.cfg.ClientOptions(config.ServiceIAM)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create iam client: %w", err)
	}
	accounts := []ServiceAccount{}
	err = svc.Projects.ServiceAccounts.List("projects/"+c.cfg.ProjectID).Pages(ctx, func(resp *iam.ListServiceAccountsResponse) error {
		for _, sa := range resp.Accounts {
			if sa.Disabled {
				continue
			}
			accounts = append(accounts, ServiceAccount{Email: sa.Email, DisplayName: sa.DisplayName})
		}
		return nil
	})
	if err != nil {
		return nil, wrap("service accounts", err)
	}
	return accounts, nil
}
