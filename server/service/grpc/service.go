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
	"time"

	"github.com/pkg/errors"
	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/pkg/log"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var _ IDServiceServer = &Service{}

type Service struct {
	opTimeout time.Duration
	h         Handler
}

func NewService(opTimeout time.Duration, h Handler) *Service {
	return &Service{
		opTimeout: opTimeout,
		h:         h,
	}
}

// Handler is needed by grpc service to process the requests.
type Handler interface {
	GetGenerator() id.Generator
	GetFlowLimiter() (*limiter.FlowLimiter, error)
}

// NextID implements gRPC IDServiceServer.
func (s *Service) NextID(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.Int64Value, error) {
	scope := req.GetValue()
	if err := s.allow(); err != nil {
		return nil, toStatusError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	nextID, err := s.h.GetGenerator().NextID(ctx, scope)
	if err != nil {
		log.Error("[NextID] failed", zap.String("scope", scope), zap.Error(err))
		return nil, toStatusError(err)
	}

	log.Debug("[NextID]", zap.String("scope", scope), zap.Int64("id", nextID))
	return wrapperspb.Int64(nextID), nil
}

func (s *Service) allow() error {
	flowLimiter, err := s.h.GetFlowLimiter()
	if err != nil {
		return ErrGetFlowLimit.WithCause(err)
	}
	if !flowLimiter.Allow() {
		return ErrFlowLimit.WithCausef("the id request is limited")
	}
	return nil
}

func toStatusError(err error) error {
	// Context errors win over the Internal code of the wrapping store error.
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}

	code, ok := coderr.GetCauseCode(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}

	switch code {
	case coderr.InvalidParams:
		return status.Error(codes.InvalidArgument, err.Error())
	case coderr.DataCorrupted:
		return status.Error(codes.DataLoss, err.Error())
	case coderr.Conflict:
		return status.Error(codes.Aborted, err.Error())
	case coderr.TooManyRequests:
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
