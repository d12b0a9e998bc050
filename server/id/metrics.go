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

import "github.com/prometheus/client_golang/prometheus"

const (
	replenishResultSuccess    = "success"
	replenishResultCorrupt    = "corrupt"
	replenishResultContention = "contention"
	replenishResultStoreError = "store_error"
	replenishResultOverflow   = "overflow"
)

var (
	issuedIDCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopeid",
		Subsystem: "generator",
		Name:      "issued_ids_total",
		Help:      "Number of ids issued per scope.",
	}, []string{"scope"})

	replenishCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopeid",
		Subsystem: "generator",
		Name:      "replenishments_total",
		Help:      "Number of batch replenishments per scope and result.",
	}, []string{"scope", "result"})

	writeConflictCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scopeid",
		Subsystem: "generator",
		Name:      "seed_write_conflicts_total",
		Help:      "Number of conditional seed writes lost to a concurrent writer.",
	}, []string{"scope"})
)

func init() {
	prometheus.MustRegister(issuedIDCounter, replenishCounter, writeConflictCounter)
}
