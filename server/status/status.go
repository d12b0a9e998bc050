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

package status

import (
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"
	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/pkg/log"
	"go.uber.org/zap"
)

var ErrInvalidTransition = coderr.NewCodeError(coderr.Internal, "invalid server status transition")

type Status int32

const (
	StatusWaiting Status = iota
	StatusRunning
	Terminated
)

const (
	eventRun       = "run"
	eventTerminate = "terminate"
)

var (
	statusEvents = fsm.Events{
		{Name: eventRun, Src: []string{StatusWaiting.String()}, Dst: StatusRunning.String()},
		{Name: eventTerminate, Src: []string{StatusWaiting.String(), StatusRunning.String()}, Dst: Terminated.String()},
	}
	statusCallbacks = fsm.Callbacks{
		"enter_state": func(event *fsm.Event) {
			log.Info("server status changed", zap.String("src", event.Src), zap.String("dst", event.Dst))
		},
	}
	// eventByStatus maps the target status to the event leading to it, and the waiting status can't be entered again.
	eventByStatus = map[Status]string{
		StatusRunning: eventRun,
		Terminated:    eventTerminate,
	}
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// ServerStatus is a waiting -> running -> terminated state machine, and the waiting server may be terminated directly.
type ServerStatus struct {
	lock sync.Mutex
	fsm  *fsm.FSM

	status Status
}

func NewServerStatus() *ServerStatus {
	return &ServerStatus{
		lock:   sync.Mutex{},
		fsm:    fsm.NewFSM(StatusWaiting.String(), statusEvents, statusCallbacks),
		status: StatusWaiting,
	}
}

func (s *ServerStatus) Set(status Status) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	event, ok := eventByStatus[status]
	if !ok {
		return ErrInvalidTransition.WithCausef("no event leads to status:%s", status)
	}
	if err := s.fsm.Event(event); err != nil {
		return ErrInvalidTransition.WithCause(err)
	}
	atomic.StoreInt32((*int32)(&s.status), int32(status))
	return nil
}

func (s *ServerStatus) Get() Status {
	return Status(atomic.LoadInt32((*int32)(&s.status)))
}

func (s *ServerStatus) IsHealthy() bool {
	return s.Get() == StatusRunning
}
