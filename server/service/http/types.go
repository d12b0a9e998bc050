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

import (
	"context"
	"net/http"

	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	"github.com/scopeid/scopeid/server/status"
	"github.com/scopeid/scopeid/server/storage"
)

const (
	statusSuccess string = "success"
	statusError   string = "error"
	scopeParam    string = "scope"

	apiPrefix string = "/api/v1"

	maxBatchCount = 1000
)

type response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	Msg    string      `json:"msg,omitempty"`
}

type apiFuncResult struct {
	data   interface{}
	err    coderr.CodeError
	errMsg string
}

func okResult(data interface{}) apiFuncResult {
	return apiFuncResult{
		data:   data,
		err:    nil,
		errMsg: "",
	}
}

func errResult(err coderr.CodeError, errMsg string) apiFuncResult {
	return apiFuncResult{
		data:   nil,
		err:    err,
		errMsg: errMsg,
	}
}

type apiFunc func(r *http.Request) apiFuncResult

// SeedLister lists the seeds persisted in the store.
type SeedLister interface {
	ListSeeds(ctx context.Context) ([]storage.Seed, error)
}

type API struct {
	generator  id.Generator
	seedLister SeedLister

	serverStatus *status.ServerStatus
	flowLimiter  *limiter.FlowLimiter
}

type NextIDResponse struct {
	Scope string `json:"scope"`
	ID    int64  `json:"id"`
}

type NextIDsRequest struct {
	Count int `json:"count"`
}

type NextIDsResponse struct {
	Scope string  `json:"scope"`
	IDs   []int64 `json:"ids"`
}

type UpdateFlowLimiterRequest struct {
	Limit  int  `json:"limit"`
	Burst  int  `json:"burst"`
	Enable bool `json:"enable"`
}
