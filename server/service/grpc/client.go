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

package grpc

import (
	"context"

	"github.com/scopeid/scopeid/server/service"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls the id service of a remote server.
type Client struct {
	cc *grpc.ClientConn
}

func NewClient(ctx context.Context, addr string) (*Client, error) {
	cc, err := service.GetClientConn(ctx, addr)
	if err != nil {
		return nil, ErrCreateClient.WithCause(err)
	}
	return &Client{cc: cc}, nil
}

// NextID returns the error carrying the grpc status of the server as is, so status.Code can be used by the caller.
func (c *Client) NextID(ctx context.Context, scope string) (int64, error) {
	out := new(wrapperspb.Int64Value)
	if err := c.cc.Invoke(ctx, nextIDFullName, wrapperspb.String(scope), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}
