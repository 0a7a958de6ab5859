package handler

import (
	"net/http"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RegistryHandlers serves the bootstrap registry.
type RegistryHandlers struct {
	base
	service *service.RegistryService
}

// NewRegistryHandlers creates the registry handlers
func NewRegistryHandlers(svc *service.RegistryService, logger *zap.Logger, timeout time.Duration) *RegistryHandlers {
	return &RegistryHandlers{base: newBase(logger, timeout), service: svc}
}

// Register implements server.Routes.
func (h *RegistryHandlers) Register(r *mux.Router) {
	r.HandleFunc(api.PathHealthCheck, h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatus, h.Status).Methods(http.MethodGet)
	r.HandleFunc(api.PathRegisterPlatoon, h.RegisterPlatoon).Methods(http.MethodPost)
	r.HandleFunc(api.PathRegisterCruise, h.RegisterCruise).Methods(http.MethodPost)
	r.HandleFunc(api.PathRegistryLeader, h.SetLeader).Methods(http.MethodPut)
	r.HandleFunc(api.PathElectionStatus, h.UpdateElectionStatus).Methods(http.MethodPut)
	r.HandleFunc(api.PathReset, h.Reset).Methods(http.MethodPost)
}

// Status handles GET /v1/status.
func (h *RegistryHandlers) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	st, err := h.service.Status(ctx)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, st)
}

// RegisterPlatoon handles POST /v1/register/platoon.
func (h *RegistryHandlers) RegisterPlatoon(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	reg, err := h.service.RegisterPlatoon(ctx, req.Address)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, reg)
}

// RegisterCruise handles POST /v1/register/cruise.
func (h *RegistryHandlers) RegisterCruise(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	reg, err := h.service.RegisterCruise(ctx, req.Address)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, reg)
}

// SetLeader handles PUT /v1/leader.
func (h *RegistryHandlers) SetLeader(w http.ResponseWriter, r *http.Request) {
	var req api.RegistryLeaderRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.SetLeader(ctx, req.PlatoonAddress, req.CruiseAddress))
}

// UpdateElectionStatus handles PUT /v1/election-status.
func (h *RegistryHandlers) UpdateElectionStatus(w http.ResponseWriter, r *http.Request) {
	var req api.ElectionStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.UpdateElectionStatus(ctx, req.Running))
}

// Reset handles POST /v1/reset.
func (h *RegistryHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.Reset(ctx))
}
