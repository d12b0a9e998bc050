/*
 * Copyright 2024 The ScopeID Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package storage

import (
	"context"
	"strings"
	"time"

	"github.com/scopeid/scopeid/server/etcdutil"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/clientv3util"
)

const defaultScanBatchSize = 100

var _ Store = &EtcdStore{}

// EtcdStore keeps the seeds in etcd, and the conditional write compares the mod revision of the seed key.
type EtcdStore struct {
	kv             clientv3.KV
	rootPath       string
	initialSeed    int64
	requestTimeout time.Duration

	observed *observedVersions[int64]
}

func NewEtcdStore(kv clientv3.KV, rootPath string, initialSeed int64, requestTimeout time.Duration) *EtcdStore {
	return &EtcdStore{
		kv:             kv,
		rootPath:       rootPath,
		initialSeed:    initialSeed,
		requestTimeout: requestTimeout,
		observed:       newObservedVersions[int64](),
	}
}

func (s *EtcdStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.requestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.requestTimeout)
}

func (s *EtcdStore) GetData(ctx context.Context, scope string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := makeSeedKey(s.rootPath, scope)
	resp, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", ErrStoreRead.WithCause(etcdutil.ErrEtcdKVGet.WithCause(err))
	}
	if n := len(resp.Kvs); n > 1 {
		return "", etcdutil.ErrEtcdKVGetResponse.WithCausef("%v", resp.Kvs)
	} else if n == 1 {
		return s.observe(scope, resp.Kvs[0]), nil
	}

	return s.initSeed(ctx, scope, key)
}

// initSeed creates the seed key if it is still missing, otherwise the seed created by others is returned.
func (s *EtcdStore) initSeed(ctx context.Context, scope, key string) (string, error) {
	initialSeed := encodeSeed(s.initialSeed)
	resp, err := s.kv.Txn(ctx).
		If(clientv3util.KeyMissing(key)).
		Then(clientv3.OpPut(key, initialSeed)).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		return "", ErrStoreRead.WithCause(etcdutil.ErrEtcdKVTxn.WithCause(err))
	}

	if resp.Succeeded {
		s.observed.set(scope, resp.Header.Revision)
		return initialSeed, nil
	}

	kvs := resp.Responses[0].GetResponseRange().Kvs
	if len(kvs) != 1 {
		return "", etcdutil.ErrEtcdKVGetResponse.WithCausef("key:%s, kvs:%v", key, kvs)
	}
	return s.observe(scope, kvs[0]), nil
}

// observe remembers the mod revision of the seed for the next conditional write.
func (s *EtcdStore) observe(scope string, kv *mvccpb.KeyValue) string {
	s.observed.set(scope, kv.ModRevision)
	return string(kv.Value)
}

func (s *EtcdStore) TryOptimisticWrite(ctx context.Context, scope string, value string) (bool, error) {
	revision, ok := s.observed.get(scope)
	if !ok {
		return false, ErrNoObservedVersion.WithCausef("scope:%s", scope)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := makeSeedKey(s.rootPath, scope)
	resp, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", revision)).
		Then(clientv3.OpPut(key, value)).
		Commit()
	if err != nil {
		return false, ErrStoreWrite.WithCause(etcdutil.ErrEtcdKVTxn.WithCause(err))
	}
	return resp.Succeeded, nil
}

func (s *EtcdStore) ListSeeds(ctx context.Context) ([]Seed, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	prefix := makeSeedKeyPrefix(s.rootPath)
	seeds := make([]Seed, 0)
	err := etcdutil.Scan(ctx, s.kv, prefix, clientv3.GetPrefixRangeEnd(prefix), defaultScanBatchSize, func(key string, val []byte) error {
		seeds = append(seeds, Seed{
			Scope: strings.TrimPrefix(key, prefix),
			Value: string(val),
		})
		return nil
	})
	if err != nil {
		return nil, ErrStoreRead.WithCause(err)
	}
	return seeds, nil
}

// Close does nothing because the etcd client is owned by the caller.
func (s *EtcdStore) Close() error {
	return nil
}
