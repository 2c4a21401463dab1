// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/repository"
	"github.com/Netcracker/qubership-data-contract-validator/utils"
)

const cleanupInterval = time.Hour

type CleanupService interface {
	ClearExpiredRuns(ctx context.Context) (int, error)
	Start(ctx context.Context)
}

// NewCleanupService removes history entries older than retention. Zero retention keeps history forever.
func NewCleanupService(runRepository repository.RunRepository, retention time.Duration) CleanupService {
	return &cleanupServiceImpl{
		runRepository: runRepository,
		retention:     retention,
		now:           time.Now,
	}
}

type cleanupServiceImpl struct {
	runRepository repository.RunRepository
	retention     time.Duration
	now           func() time.Time
}

func (s *cleanupServiceImpl) ClearExpiredRuns(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	before := s.now().UTC().Add(-s.retention)
	log.Debugf("Starting cleanup of runs created before %s", before.Format(time.RFC3339))

	deleted, err := s.runRepository.DeleteRunsBefore(ctx, before)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Infof("Removed %d runs from history", deleted)
	}
	return deleted, nil
}

// Start runs the cleanup immediately and then every hour until ctx is done.
func (s *cleanupServiceImpl) Start(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	utils.SafeAsync(func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			if _, err := s.ClearExpiredRuns(ctx); err != nil {
				log.Errorf("Failed to clean up run history: %s", err.Error())
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	})
}
