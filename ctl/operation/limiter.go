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
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
)

type FlowLimiter struct {
	Limit  int  `json:"limit"`
	Burst  int  `json:"burst"`
	Enable bool `json:"enable"`
}

func FlowLimiterGet() (FlowLimiter, error) {
	var limiter FlowLimiter
	err := HttpUtil(http.MethodGet, apiURL(APIFlowLimiter), nil, &limiter)
	return limiter, err
}

func FlowLimiterSet(limiter FlowLimiter) error {
	body, err := json.Marshal(limiter)
	if err != nil {
		return err
	}
	return HttpUtil(http.MethodPut, apiURL(APIFlowLimiter), bytes.NewReader(body), nil)
}

func PrintFlowLimiter() {
	limiter, err := FlowLimiterGet()
	if err != nil {
		fmt.Println(err)
		return
	}

	t := tableWriter(flowLimiterHeader)
	t.AppendRow(table.Row{limiter.Limit, limiter.Burst, limiter.Enable})
	fmt.Println(t.Render())
}

func UpdateFlowLimiter(limiter FlowLimiter) {
	if err := FlowLimiterSet(limiter); err != nil {
		fmt.Println(err)
		return
	}
	PrintFlowLimiter()
}
