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

package limiter

import (
	"sync"
	"time"

	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/server/config"
	"golang.org/x/time/rate"
)

var ErrInvalidLimiterConfig = coderr.NewCodeError(coderr.InvalidParams, "invalid flow limiter config")

// FlowLimiter limits the rate of the id requests served by this process.
type FlowLimiter struct {
	l *rate.Limiter
	// RWMutex is used to protect following fields.
	lock sync.RWMutex
	// limit is the updated rate of tokens.
	limit int
	// burst is the maximum number of tokens.
	burst int
	// enable is used to control the switch of the limiter.
	enable bool
}

func NewFlowLimiter(cfg config.LimiterConfig) *FlowLimiter {
	newLimiter := rate.NewLimiter(rate.Limit(cfg.Limit), cfg.Burst)

	return &FlowLimiter{
		l:      newLimiter,
		lock:   sync.RWMutex{},
		limit:  cfg.Limit,
		burst:  cfg.Burst,
		enable: cfg.Enable,
	}
}

// Allow reports whether one request may happen now.
func (f *FlowLimiter) Allow() bool {
	return f.AllowN(1)
}

// AllowN reports whether n requests may happen now, and is used by the batch id requests.
func (f *FlowLimiter) AllowN(n int) bool {
	f.lock.RLock()
	enable := f.enable
	f.lock.RUnlock()

	if !enable {
		return true
	}
	return f.l.AllowN(time.Now(), n)
}

func (f *FlowLimiter) UpdateLimiter(cfg config.LimiterConfig) error {
	if cfg.Limit < 0 || cfg.Burst < 0 {
		return ErrInvalidLimiterConfig.WithCausef("limit and burst can't be negative, limit:%d, burst:%d", cfg.Limit, cfg.Burst)
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	f.l.SetLimit(rate.Limit(cfg.Limit))
	f.l.SetBurst(cfg.Burst)
	f.limit = cfg.Limit
	f.burst = cfg.Burst
	f.enable = cfg.Enable
	return nil
}

func (f *FlowLimiter) GetConfig() *config.LimiterConfig {
	f.lock.RLock()
	defer f.lock.RUnlock()

	return &config.LimiterConfig{
		Limit:  f.limit,
		Burst:  f.burst,
		Enable: f.enable,
	}
}
