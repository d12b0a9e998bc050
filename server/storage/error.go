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

import "github.com/scopeid/scopeid/pkg/coderr"

var (
	ErrStoreRead         = coderr.NewCodeError(coderr.Internal, "read id seed from store")
	ErrStoreWrite        = coderr.NewCodeError(coderr.Internal, "write id seed to store")
	ErrNoObservedVersion = coderr.NewCodeError(coderr.Internal, "conditional write without observed seed")
	ErrOpenStore         = coderr.NewCodeError(coderr.Internal, "open store")
)
