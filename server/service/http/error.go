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

package http

import "github.com/scopeid/scopeid/pkg/coderr"

var (
	ErrParseRequest      = coderr.NewCodeError(coderr.BadRequest, "parse request params")
	ErrNextID            = coderr.NewCodeError(coderr.Internal, "next id")
	ErrListSeeds         = coderr.NewCodeError(coderr.Internal, "list seeds")
	ErrFlowLimited       = coderr.NewCodeError(coderr.TooManyRequests, "too many id requests")
	ErrHealthCheck       = coderr.NewCodeError(coderr.Internal, "server health check")
	ErrUpdateFlowLimiter = coderr.NewCodeError(coderr.BadRequest, "update flow limiter")
	ErrStartHTTPService  = coderr.NewCodeError(coderr.Internal, "start http service")
)
