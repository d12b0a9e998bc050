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

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scopeid/scopeid/pkg/coderr"
	"github.com/scopeid/scopeid/pkg/log"
	"github.com/scopeid/scopeid/server/config"
	"github.com/scopeid/scopeid/server/id"
	"github.com/scopeid/scopeid/server/limiter"
	"github.com/scopeid/scopeid/server/status"
	"go.uber.org/zap"
)

func NewAPI(generator id.Generator, seedLister SeedLister, serverStatus *status.ServerStatus, flowLimiter *limiter.FlowLimiter) *API {
	return &API{
		generator:    generator,
		seedLister:   seedLister,
		serverStatus: serverStatus,
		flowLimiter:  flowLimiter,
	}
}

func (a *API) NewAPIRouter() *Router {
	router := New().WithPrefix(apiPrefix).WithInstrumentation(printRequestInsmt)

	// Register id API.
	router.Post(fmt.Sprintf("/scopes/:%s/next", scopeParam), wrap(a.nextID))
	router.Post(fmt.Sprintf("/scopes/:%s/batch", scopeParam), wrap(a.nextIDs))
	router.Get("/scopes", wrap(a.listScopes))
	router.Get("/seeds", wrap(a.listSeeds))

	router.Get("/flowLimiter", wrap(a.getFlowLimiter))
	router.Put("/flowLimiter", wrap(a.updateFlowLimiter))
	router.Get("/health", wrap(a.health))

	router.GetWithoutPrefix("/metrics", promhttp.Handler().ServeHTTP)

	// Register debug API.
	router.GetWithoutPrefix("/debug/pprof/profile", pprof.Profile)
	router.GetWithoutPrefix("/debug/pprof/symbol", pprof.Symbol)
	router.GetWithoutPrefix("/debug/pprof/trace", pprof.Trace)
	router.GetWithoutPrefix("/debug/pprof/heap", pprof.Handler("heap").ServeHTTP)
	router.GetWithoutPrefix("/debug/pprof/goroutine", pprof.Handler("goroutine").ServeHTTP)

	return router
}

func (a *API) nextID(req *http.Request) apiFuncResult {
	scope := Param(req.Context(), scopeParam)
	if !a.flowLimiter.Allow() {
		return errResult(ErrFlowLimited, fmt.Sprintf("scope:%s", scope))
	}

	nextID, err := a.generator.NextID(req.Context(), scope)
	if err != nil {
		log.Error("next id failed", zap.String("scope", scope), zap.Error(err))
		return errResult(causeCodeError(err, ErrNextID), err.Error())
	}

	return okResult(NextIDResponse{Scope: scope, ID: nextID})
}

func (a *API) nextIDs(req *http.Request) apiFuncResult {
	scope := Param(req.Context(), scopeParam)

	var nextIDsRequest NextIDsRequest
	if err := json.NewDecoder(req.Body).Decode(&nextIDsRequest); err != nil {
		return errResult(ErrParseRequest, err.Error())
	}
	if nextIDsRequest.Count < 1 || nextIDsRequest.Count > maxBatchCount {
		return errResult(ErrParseRequest, fmt.Sprintf("count must be in [1, %d], count:%d", maxBatchCount, nextIDsRequest.Count))
	}
	if !a.flowLimiter.AllowN(nextIDsRequest.Count) {
		return errResult(ErrFlowLimited, fmt.Sprintf("scope:%s, count:%d", scope, nextIDsRequest.Count))
	}

	ids, err := a.generator.NextIDs(req.Context(), scope, nextIDsRequest.Count)
	if err != nil {
		log.Error("next ids failed", zap.String("scope", scope), zap.Int("count", nextIDsRequest.Count), zap.Error(err))
		return errResult(causeCodeError(err, ErrNextID), err.Error())
	}

	return okResult(NextIDsResponse{Scope: scope, IDs: ids})
}

func (a *API) listScopes(_ *http.Request) apiFuncResult {
	return okResult(a.generator.Scopes())
}

func (a *API) listSeeds(req *http.Request) apiFuncResult {
	seeds, err := a.seedLister.ListSeeds(req.Context())
	if err != nil {
		log.Error("list seeds failed", zap.Error(err))
		return errResult(ErrListSeeds, err.Error())
	}
	return okResult(seeds)
}

func (a *API) getFlowLimiter(_ *http.Request) apiFuncResult {
	limiter := a.flowLimiter.GetConfig()
	return okResult(limiter)
}

func (a *API) updateFlowLimiter(req *http.Request) apiFuncResult {
	var updateFlowLimiterRequest UpdateFlowLimiterRequest
	err := json.NewDecoder(req.Body).Decode(&updateFlowLimiterRequest)
	if err != nil {
		log.Error("decode request body failed", zap.Error(err))
		return errResult(ErrParseRequest, err.Error())
	}

	log.Info("update flow limiter request", zap.String("request", fmt.Sprintf("%+v", updateFlowLimiterRequest)))

	newLimiterConfig := config.LimiterConfig{
		Limit:  updateFlowLimiterRequest.Limit,
		Burst:  updateFlowLimiterRequest.Burst,
		Enable: updateFlowLimiterRequest.Enable,
	}

	if err := a.flowLimiter.UpdateLimiter(newLimiterConfig); err != nil {
		log.Error("update flow limiter failed", zap.Error(err))
		return errResult(ErrUpdateFlowLimiter, err.Error())
	}

	return okResult(statusSuccess)
}

func (a *API) health(_ *http.Request) apiFuncResult {
	if a.serverStatus.IsHealthy() {
		return okResult(nil)
	}
	return errResult(ErrHealthCheck, fmt.Sprintf("server heath check failed, status is %v", a.serverStatus.Get()))
}

// causeCodeError returns the CodeError carried by err, so that the http status follows the kind of the failure.
func causeCodeError(err error, defaultErr coderr.CodeError) coderr.CodeError {
	if cerr, ok := errors.Cause(err).(coderr.CodeError); ok {
		return cerr
	}
	return defaultErr
}

// printRequestInsmt used for printing every request information.
func printRequestInsmt(handlerName string, handler http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		body := ""
		bodyByte, err := io.ReadAll(request.Body)
		if err != nil {
			log.Error("read request body failed", zap.Error(err))
			return
		}
		body = string(bodyByte)
		newBody := io.NopCloser(bytes.NewReader(bodyByte))
		request.Body = newBody
		log.Debug("receive http request", zap.String("handlerName", handlerName), zap.String("client host", request.RemoteAddr), zap.String("method", request.Method), zap.String("path", request.URL.Path), zap.String("body", body))
		handler.ServeHTTP(writer, request)
	}
}

func respond(w http.ResponseWriter, data interface{}) {
	statusMessage := statusSuccess
	b, err := json.Marshal(&response{
		Status: statusMessage,
		Data:   data,
	})
	if err != nil {
		log.Error("marshal json response failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if n, err := w.Write(b); err != nil {
		log.Error("write response failed", zap.Int("msg", n), zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, apiErr coderr.CodeError, msg string) {
	b, err := json.Marshal(&response{
		Status: statusError,
		Error:  apiErr.Error(),
		Msg:    msg,
	})
	if err != nil {
		log.Error("marshal json response failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code().ToHTTPCode())
	if n, err := w.Write(b); err != nil {
		log.Error("write response failed", zap.Int("msg", n), zap.Error(err))
	}
}

func wrap(f apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := f(r)
		if result.err != nil {
			respondError(w, result.err, result.errMsg)
			return
		}
		respond(w, result.data)
	}
}
