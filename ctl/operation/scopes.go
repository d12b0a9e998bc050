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

import (
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
)

type Scope struct {
	Name       string `json:"name"`
	LastID     int64  `json:"lastID"`
	UpperLimit int64  `json:"upperLimit"`
}

type Seed struct {
	Scope string `json:"scope"`
	Value string `json:"value"`
}

func ScopesList() ([]Scope, error) {
	var scopes []Scope
	err := HttpUtil(http.MethodGet, apiURL(APIScopes), nil, &scopes)
	return scopes, err
}

func SeedsList() ([]Seed, error) {
	var seeds []Seed
	err := HttpUtil(http.MethodGet, apiURL(APISeeds), nil, &seeds)
	return seeds, err
}

func PrintScopes() {
	scopes, err := ScopesList()
	if err != nil {
		fmt.Println(err)
		return
	}

	t := tableWriter(scopesListHeader)
	for _, scope := range scopes {
		t.AppendRow(table.Row{scope.Name, scope.LastID, scope.UpperLimit, scope.UpperLimit - scope.LastID})
	}
	fmt.Println(t.Render())
}

func PrintSeeds() {
	seeds, err := SeedsList()
	if err != nil {
		fmt.Println(err)
		return
	}

	t := tableWriter(seedsListHeader)
	for _, seed := range seeds {
		t.AppendRow(table.Row{seed.Scope, seed.Value})
	}
	fmt.Println(t.Render())
}

func HealthCheck() error {
	return HttpUtil(http.MethodGet, apiURL(APIHealth), nil, nil)
}

func PrintHealth() {
	if err := HealthCheck(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println("healthy")
}
