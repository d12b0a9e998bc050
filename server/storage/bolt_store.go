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
	"bytes"
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

const defaultBoltOpenTimeout = time.Second

var (
	_ Store = &BoltStore{}

	seedBucket = []byte("scopes")
)

// BoltStore keeps the seeds in a local bolt file. The file is locked by the opening process, so it only coordinates
// the generators inside one process, and the ids survive restarts.
type BoltStore struct {
	db          *bolt.DB
	initialSeed int64

	observed *observedVersions[[]byte]
}

func OpenBoltStore(path string, initialSeed int64) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: defaultBoltOpenTimeout})
	if err != nil {
		return nil, ErrOpenStore.WithCausef("open bolt file:%s, err:%v", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(seedBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, ErrOpenStore.WithCausef("create bucket, file:%s, err:%v", path, err)
	}

	return &BoltStore{
		db:          db,
		initialSeed: initialSeed,
		observed:    newObservedVersions[[]byte](),
	}, nil
}

func (s *BoltStore) GetData(_ context.Context, scope string) (string, error) {
	var value []byte
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(seedBucket)
		key := []byte(scope)
		v := b.Get(key)
		if v == nil {
			v = []byte(encodeSeed(s.initialSeed))
			if err := b.Put(key, v); err != nil {
				return err
			}
		}
		// The value returned by bolt is only valid inside the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return "", ErrStoreRead.WithCause(err)
	}

	s.observed.set(scope, value)
	return string(value), nil
}

func (s *BoltStore) TryOptimisticWrite(_ context.Context, scope string, value string) (bool, error) {
	observed, ok := s.observed.get(scope)
	if !ok {
		return false, ErrNoObservedVersion.WithCausef("scope:%s", scope)
	}

	written := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(seedBucket)
		key := []byte(scope)
		if !bytes.Equal(b.Get(key), observed) {
			return nil
		}
		if err := b.Put(key, []byte(value)); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, ErrStoreWrite.WithCause(err)
	}
	return written, nil
}

func (s *BoltStore) ListSeeds(_ context.Context) ([]Seed, error) {
	seeds := make([]Seed, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(seedBucket).ForEach(func(k, v []byte) error {
			seeds = append(seeds, Seed{Scope: string(k), Value: string(v)})
			return nil
		})
	})
	if err != nil {
		return nil, ErrStoreRead.WithCause(err)
	}
	return seeds, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
