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

package server

import "github.com/prometheus/client_golang/prometheus"

var (
	reservedIDGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "scopeid",
			Name:      "reserved_ids_remaining",
			Help:      "Number of ids still reserved by this process for the scope.",
		},
		[]string{"scope"},
	)

	scopeCountGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "scopeid",
			Name:      "scopes",
			Help:      "Number of scopes known by this process.",
		},
	)
)

func init() {
	prometheus.MustRegister(reservedIDGauge)
	prometheus.MustRegister(scopeCountGauge)
}
