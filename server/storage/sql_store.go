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
	"database/sql"
	"fmt"

	// Register the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	sqliteDriverName     = "sqlite3"
	defaultSQLiteTimeout = 5000

	createSeedTableSQL = `CREATE TABLE IF NOT EXISTS scope_seeds (
	scope VARCHAR(255) NOT NULL PRIMARY KEY,
	seed  VARCHAR(32)  NOT NULL
)`
	selectSeedSQL = `SELECT seed FROM scope_seeds WHERE scope = ?`
	insertSeedSQL = `INSERT OR IGNORE INTO scope_seeds (scope, seed) VALUES (?, ?)`
	updateSeedSQL = `UPDATE scope_seeds SET seed = ? WHERE scope = ? AND seed = ?`
	listSeedsSQL  = `SELECT scope, seed FROM scope_seeds ORDER BY scope`
)

var _ Store = &SQLStore{}

// SQLStore keeps the seeds in a sql table, and the conditional write is an update guarded by the observed seed.
// Processes sharing the sqlite file on one host share the seeds.
type SQLStore struct {
	db          *sql.DB
	initialSeed int64

	observed *observedVersions[string]
}

func OpenSQLiteStore(path string, initialSeed int64) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, defaultSQLiteTimeout)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, ErrOpenStore.WithCausef("open sqlite file:%s, err:%v", path, err)
	}

	s, err := NewSQLStore(context.Background(), db, initialSeed)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore creates the seed table if it doesn't exist, and the store owns the db afterwards.
func NewSQLStore(ctx context.Context, db *sql.DB, initialSeed int64) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createSeedTableSQL); err != nil {
		return nil, ErrOpenStore.WithCausef("create seed table, err:%v", err)
	}

	return &SQLStore{
		db:          db,
		initialSeed: initialSeed,
		observed:    newObservedVersions[string](),
	}, nil
}

func (s *SQLStore) GetData(ctx context.Context, scope string) (string, error) {
	value, err := s.selectSeed(ctx, scope)
	if errors.Is(err, sql.ErrNoRows) {
		// Only the first insert takes effect, and everyone reads the seed it created.
		if _, err := s.db.ExecContext(ctx, insertSeedSQL, scope, encodeSeed(s.initialSeed)); err != nil {
			return "", ErrStoreRead.WithCause(err)
		}
		value, err = s.selectSeed(ctx, scope)
	}
	if err != nil {
		return "", ErrStoreRead.WithCause(err)
	}

	s.observed.set(scope, value)
	return value, nil
}

func (s *SQLStore) selectSeed(ctx context.Context, scope string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, selectSeedSQL, scope).Scan(&value)
	return value, err
}

func (s *SQLStore) TryOptimisticWrite(ctx context.Context, scope string, value string) (bool, error) {
	observed, ok := s.observed.get(scope)
	if !ok {
		return false, ErrNoObservedVersion.WithCausef("scope:%s", scope)
	}

	result, err := s.db.ExecContext(ctx, updateSeedSQL, value, scope, observed)
	if err != nil {
		return false, ErrStoreWrite.WithCause(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, ErrStoreWrite.WithCause(err)
	}
	return affected == 1, nil
}

func (s *SQLStore) ListSeeds(ctx context.Context) ([]Seed, error) {
	rows, err := s.db.QueryContext(ctx, listSeedsSQL)
	if err != nil {
		return nil, ErrStoreRead.WithCause(err)
	}
	defer rows.Close()

	seeds := make([]Seed, 0)
	for rows.Next() {
		var seed Seed
		if err := rows.Scan(&seed.Scope, &seed.Value); err != nil {
			return nil, ErrStoreRead.WithCause(err)
		}
		seeds = append(seeds, seed)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrStoreRead.WithCause(err)
	}
	return seeds, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
