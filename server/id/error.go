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

package id

import (
	"fmt"

	"github.com/scopeid/scopeid/pkg/coderr"
)

var (
	ErrInvalidConfig   = coderr.NewCodeError(coderr.InvalidParams, "invalid id generator config")
	ErrInvalidScope    = coderr.NewCodeError(coderr.InvalidParams, "invalid scope name")
	ErrInvalidCount    = coderr.NewCodeError(coderr.InvalidParams, "invalid id count")
	ErrCorruptSeed     = coderr.NewCodeError(coderr.DataCorrupted, "corrupt id seed")
	ErrSeedRegressed   = coderr.NewCodeError(coderr.DataCorrupted, "id seed regressed")
	ErrSeedOverflow    = coderr.NewCodeError(coderr.Internal, "id seed overflow")
	ErrWriteContention = coderr.NewCodeError(coderr.Conflict, "update id seed under contention")
)

// CorruptSeedError is the cause of ErrCorruptSeed.
type CorruptSeedError struct {
	Scope string
	Data  string
}

func (e *CorruptSeedError) Error() string {
	return fmt.Sprintf("the id seed returned from storage for scope '%s' could not be parsed as an int64, data:%q", e.Scope, e.Data)
}

// ContentionError is the cause of ErrWriteContention.
type ContentionError struct {
	Scope    string
	Attempts int
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("failed to update the id seed of scope '%s' after %d attempts, increase the batch size for the load", e.Scope, e.Attempts)
}
