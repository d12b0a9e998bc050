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
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	servicegrpc "github.com/scopeid/scopeid/server/service/grpc"
	"github.com/spf13/viper"
)

type nextIDResponse struct {
	Scope string `json:"scope"`
	ID    int64  `json:"id"`
}

type nextIDsRequest struct {
	Count int `json:"count"`
}

type nextIDsResponse struct {
	Scope string  `json:"scope"`
	IDs   []int64 `json:"ids"`
}

// NextIDs takes count ids of the scope, and a count of one goes to the single id API.
func NextIDs(scope string, count int) ([]int64, error) {
	if count < 1 {
		return nil, errors.Errorf("count must be a positive number, count:%d", count)
	}

	if count == 1 {
		var resp nextIDResponse
		if err := HttpUtil(http.MethodPost, apiURL(fmt.Sprintf("%s/%s/next", APIScopes, scope)), nil, &resp); err != nil {
			return nil, err
		}
		return []int64{resp.ID}, nil
	}

	body, err := json.Marshal(nextIDsRequest{Count: count})
	if err != nil {
		return nil, err
	}
	var resp nextIDsResponse
	if err := HttpUtil(http.MethodPost, apiURL(fmt.Sprintf("%s/%s/batch", APIScopes, scope)), bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// NextIDsByGrpc takes count ids of the scope through the grpc service, one call per id.
func NextIDsByGrpc(scope string, count int) ([]int64, error) {
	if count < 1 {
		return nil, errors.Errorf("count must be a positive number, count:%d", count)
	}

	ctx, cancel := context.WithTimeout(context.Background(), grpcRequestTimeout)
	defer cancel()
	client, err := servicegrpc.NewClient(ctx, viper.GetString(RootGrpcAddr))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		id, err := client.NextID(ctx, scope)
		if err != nil {
			return nil, errors.WithMessagef(err, "take id by grpc, scope:%s", scope)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func PrintNextIDs(scope string, count int, useGrpc bool) {
	var (
		ids []int64
		err error
	)
	if useGrpc {
		ids, err = NextIDsByGrpc(scope, count)
	} else {
		ids, err = NextIDs(scope, count)
	}
	if err != nil {
		fmt.Println(err)
		return
	}

	t := tableWriter(idsHeader)
	for _, id := range ids {
		t.AppendRow(table.Row{scope, id})
	}
	fmt.Println(t.Render())
}
