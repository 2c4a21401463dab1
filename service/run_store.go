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
	"fmt"
	"sync"
	"time"

	"github.com/buraksezer/olric"
	"github.com/goccy/go-json"
	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
	log "github.com/sirupsen/logrus"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

// RunStore keeps validation runs with their inputs for exports and AI follow-ups.
// Get returns nil, nil for unknown or expired runs.
type RunStore interface {
	Save(ctx context.Context, run *view.StoredRun) error
	Get(ctx context.Context, runId string) (*view.StoredRun, error)
}

func NewMemoryRunStore(size int, ttl time.Duration) RunStore {
	return &memoryRunStoreImpl{cache: newLocalCache(size, ttl)}
}

func newLocalCache(size int, ttl time.Duration) libcache.Cache {
	cache := libcache.LRU.New(size)
	cache.SetTTL(ttl)
	cache.RegisterOnExpired(func(key, _ interface{}) {
		cache.Delete(key)
	})
	return cache
}

type memoryRunStoreImpl struct {
	cache libcache.Cache
}

func (m memoryRunStoreImpl) Save(_ context.Context, run *view.StoredRun) error {
	m.cache.Store(run.Run.RunId, run)
	return nil
}

func (m memoryRunStoreImpl) Get(_ context.Context, runId string) (*view.StoredRun, error) {
	val, ok := m.cache.Load(runId)
	if !ok {
		return nil, nil
	}
	return val.(*view.StoredRun), nil
}

const (
	RunsDMapName            = "validation-runs"
	RunUpdatedTopicName     = "validation-run-updated"
	nearCacheTtl            = 5 * time.Minute
	runUpdatedTopicCapacity = 10000
)

type RunUpdatedNotification struct {
	RunId  string `json:"runId"`
	Origin string `json:"origin"`
}

// NewOlricRunStore shares runs between replicas through an olric DMap. A small local
// cache sits in front of the DMap and is invalidated by update notifications from other nodes.
func NewOlricRunStore(op client.OlricProvider, size int, ttl time.Duration) RunStore {
	s := &olricRunStoreImpl{
		op:        op,
		ttl:       ttl,
		nearCache: newLocalCache(size, nearCacheTtl),
	}
	s.listener = NewRunEventListener(op, s.invalidate)
	s.listener.Start()
	return s
}

type olricRunStoreImpl struct {
	op        client.OlricProvider
	ttl       time.Duration
	nearCache libcache.Cache
	listener  RunEventListener

	mutex sync.Mutex
	dMap  *olric.DMap
}

func (o *olricRunStoreImpl) getDMap() (*olric.DMap, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.dMap != nil {
		return o.dMap, nil
	}
	dm, err := o.op.Get().NewDMap(RunsDMapName)
	if err != nil {
		return nil, fmt.Errorf("failed to create DMap %s: %w", RunsDMapName, err)
	}
	o.dMap = dm
	return dm, nil
}

func (o *olricRunStoreImpl) Save(_ context.Context, run *view.StoredRun) error {
	start := time.Now()
	payload, err := json.Marshal(storablePayload(run))
	if err != nil {
		return err
	}
	dm, err := o.getDMap()
	if err != nil {
		return err
	}
	if err = dm.PutEx(run.Run.RunId, payload, o.ttl); err != nil {
		return err
	}
	o.nearCache.Store(run.Run.RunId, run)
	o.listener.Publish(run.Run.RunId)
	log.Debugf("Run %s saved to olric in %dms", run.Run.RunId, time.Since(start).Milliseconds())
	return nil
}

func (o *olricRunStoreImpl) Get(_ context.Context, runId string) (*view.StoredRun, error) {
	if val, ok := o.nearCache.Load(runId); ok {
		return val.(*view.StoredRun), nil
	}
	dm, err := o.getDMap()
	if err != nil {
		return nil, err
	}
	val, err := dm.Get(runId)
	if err != nil {
		if err == olric.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	payload, ok := val.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T for run %s", val, runId)
	}
	var run view.StoredRun
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runId, err)
	}
	o.nearCache.Store(runId, &run)
	return &run, nil
}

func (o *olricRunStoreImpl) invalidate(runId string) {
	o.nearCache.Delete(runId)
}

// storablePayload drops unreadable records: they are already reported as malformed
// rows and would otherwise decode back as ordinary objects.
func storablePayload(run *view.StoredRun) *view.StoredRun {
	if run.Data == nil {
		return run
	}
	data := *run.Data
	data.Records = make([]any, len(run.Data.Records))
	for i, rec := range run.Data.Records {
		if _, unreadable := rec.(checker.Unreadable); unreadable {
			continue
		}
		data.Records[i] = rec
	}
	cp := *run
	cp.Data = &data
	return &cp
}
