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

package operation

import "time"

const (
	HTTP = "http://"
	API  = "/api/v1"

	APIScopes      = API + "/scopes"
	APISeeds       = API + "/seeds"
	APIFlowLimiter = API + "/flowLimiter"
	APIHealth      = API + "/health"

	RootMetaAddr = "meta_addr"
	RootGrpcAddr = "grpc_addr"

	grpcRequestTimeout = 5 * time.Second

	statusSuccess = "success"
)

var (
	idsHeader         = []string{"Scope", "ID"}
	scopesListHeader  = []string{"Scope", "LastID", "UpperLimit", "Remaining"}
	seedsListHeader   = []string{"Scope", "Seed"}
	flowLimiterHeader = []string{"Limit", "Burst", "Enable"}
)
