/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"context"
	"fmt"
	"sort"

	"bridge-reconcile-go/internal/models"
)

// Reconciler is the engine surface exposed over HTTP
type Reconciler interface {
	SyncTransfer(ctx context.Context, hash string) (*models.SyncResult, error)
	PairByHash(ctx context.Context, hash string) (*models.PairResult, error)
}

// Pinger is anything with a cheap liveness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsService backs the operator endpoints
type OpsService struct {
	reconciler Reconciler
	checks     map[string]Pinger
}

func NewOpsService(reconciler Reconciler, checks map[string]Pinger) *OpsService {
	return &OpsService{
		reconciler: reconciler,
		checks:     checks,
	}
}

// HealthCheck pings every dependency and reports the first failure
func (s *OpsService) HealthCheck(ctx context.Context) error {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", name, err)
		}
	}
	return nil
}
