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
	"encoding/json"
	"io"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type response struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Msg    string          `json:"msg"`
}

func tableWriter(headers []string) table.Writer {
	header := table.Row{}
	for _, s := range headers {
		header = append(header, s)
	}
	t := table.NewWriter()
	t.AppendHeader(header)
	return t
}

func apiURL(path string) string {
	return HTTP + viper.GetString(RootMetaAddr) + path
}

// HttpUtil sends the request and decodes the data of a successful response into data, which may be nil.
func HttpUtil(method, url string, body io.Reader, data interface{}) error {
	request, err := http.NewRequest(method, url, body)
	if err != nil {
		return errors.WithMessagef(err, "build request, url:%s", url)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := (&http.Client{}).Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var r response
	if err := json.Unmarshal(b, &r); err != nil {
		return errors.WithMessagef(err, "decode response, httpStatus:%d", resp.StatusCode)
	}
	if r.Status != statusSuccess {
		return errors.Errorf("request failed, httpStatus:%d, error:%s, msg:%s", resp.StatusCode, r.Error, r.Msg)
	}
	if data == nil || len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, data)
}
