// Package handler provides the HTTP handlers of every platoon process role.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/middleware"
	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// base carries what every role's handlers share.
type base struct {
	errorHandler *apierrors.Handler
	logger       *zap.Logger
	timeout      time.Duration
}

func newBase(logger *zap.Logger, timeout time.Duration) base {
	return base{
		errorHandler: apierrors.NewHandler(logger),
		logger:       logger,
		timeout:      timeout,
	}
}

// HealthCheck handles GET /v1/health-check, the liveness probe peers use.
func (h *base) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

func (h *base) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func (h *base) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.errorHandler.WriteValidationError(w, fmt.Sprintf("failed to read request body: %v", err), requestID(r))
		return false
	}
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		h.errorHandler.WriteValidationError(w, fmt.Sprintf("failed to parse request body: %v", err), requestID(r))
		return false
	}
	return true
}

func (h *base) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *base) ack(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

func requestID(r *http.Request) string {
	return r.Header.Get(middleware.HeaderRequestID)
}
