package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MonitorHandlers serves the dashboard.
type MonitorHandlers struct {
	base
	service *service.MonitorService
}

// NewMonitorHandlers creates the dashboard handlers
func NewMonitorHandlers(svc *service.MonitorService, logger *zap.Logger, timeout time.Duration) *MonitorHandlers {
	return &MonitorHandlers{base: newBase(logger, timeout), service: svc}
}

// Register implements server.Routes.
func (h *MonitorHandlers) Register(r *mux.Router) {
	r.HandleFunc(api.PathHealthCheck, h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatus, h.Trucks).Methods(http.MethodGet)
	r.HandleFunc(api.PathTrucks, h.Trucks).Methods(http.MethodGet)
	r.HandleFunc(api.PathTrucks, h.SetList).Methods(http.MethodPut)
	r.HandleFunc(api.PathTruckSpeed, h.SetSpeed).Methods(http.MethodPut)
	r.HandleFunc(api.PathTruckRemove, h.RemoveTruck).Methods(http.MethodPost)
	r.HandleFunc(api.PathTruck, h.Truck).Methods(http.MethodGet)
	r.HandleFunc(api.PathCommand, h.Command).Methods(http.MethodPost)
}

// Trucks handles GET /v1/trucks.
func (h *MonitorHandlers) Trucks(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.Trucks())
}

// Truck handles GET /v1/trucks/{position}.
func (h *MonitorHandlers) Truck(w http.ResponseWriter, r *http.Request) {
	position, err := strconv.Atoi(mux.Vars(r)["position"])
	if err != nil {
		h.errorHandler.WriteValidationError(w, "position must be a number", requestID(r))
		return
	}

	truck, err := h.service.Truck(position)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, truck)
}

// SetList handles PUT /v1/trucks.
func (h *MonitorHandlers) SetList(w http.ResponseWriter, r *http.Request) {
	var req api.TruckListRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.service.SetList(req.Records)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// SetSpeed handles PUT /v1/trucks/speed.
func (h *MonitorHandlers) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req api.TruckSpeedRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.service.SetSpeed(req.CruiseAddress, req.Speed)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// RemoveTruck handles POST /v1/trucks/remove.
func (h *MonitorHandlers) RemoveTruck(w http.ResponseWriter, r *http.Request) {
	var req api.TruckRemoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.service.RemoveTruck(req.PlatoonAddress)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// Command handles POST /v1/command.
func (h *MonitorHandlers) Command(w http.ResponseWriter, r *http.Request) {
	var req api.CommandRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.Command(ctx, req.Action, req.Pace))
}
