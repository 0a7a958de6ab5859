package handler

import (
	"net/http"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// CruiseHandlers serves a motion node.
type CruiseHandlers struct {
	base
	service *service.CruiseService
}

// NewCruiseHandlers creates the motion node handlers
func NewCruiseHandlers(svc *service.CruiseService, logger *zap.Logger, timeout time.Duration) *CruiseHandlers {
	return &CruiseHandlers{base: newBase(logger, timeout), service: svc}
}

// Register implements server.Routes.
func (h *CruiseHandlers) Register(r *mux.Router) {
	r.HandleFunc(api.PathHealthCheck, h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatus, h.Status).Methods(http.MethodGet)
	r.HandleFunc(api.PathSpeed, h.Speed).Methods(http.MethodGet)
	r.HandleFunc(api.PathSpeedUp, h.SpeedUp).Methods(http.MethodPost)
	r.HandleFunc(api.PathSlowDown, h.SlowDown).Methods(http.MethodPost)
	r.HandleFunc(api.PathStop, h.Stop).Methods(http.MethodPost)
	r.HandleFunc(api.PathInitialSpeed, h.InitialSpeed).Methods(http.MethodGet)
	r.HandleFunc(api.PathLeader, h.IsLeader).Methods(http.MethodGet)
	r.HandleFunc(api.PathLeader, h.SetLeader).Methods(http.MethodPut)
	r.HandleFunc(api.PathFollowers, h.SetFollowers).Methods(http.MethodPut)
	r.HandleFunc(api.PathCloseGapLeader, h.CloseGapLeader).Methods(http.MethodPost)
	r.HandleFunc(api.PathCloseGap, h.CloseGap).Methods(http.MethodPost)
	r.HandleFunc(api.PathShutdown, h.Shutdown).Methods(http.MethodPost)
}

// Status handles GET /v1/status.
func (h *CruiseHandlers) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.Status())
}

// Speed handles GET /v1/speed.
func (h *CruiseHandlers) Speed(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, api.SpeedResponse{Speed: h.service.Speed()})
}

// SpeedUp handles POST /v1/speed/up.
func (h *CruiseHandlers) SpeedUp(w http.ResponseWriter, r *http.Request) {
	var req api.SpeedDeltaRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, api.SpeedResponse{Speed: h.service.SpeedUp(req.Delta)})
}

// SlowDown handles POST /v1/speed/down.
func (h *CruiseHandlers) SlowDown(w http.ResponseWriter, r *http.Request) {
	var req api.SpeedDeltaRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSONResponse(w, http.StatusOK, api.SpeedResponse{Speed: h.service.SlowDown(req.Delta)})
}

// Stop handles POST /v1/speed/stop.
func (h *CruiseHandlers) Stop(w http.ResponseWriter, r *http.Request) {
	h.service.StopTruck()
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// InitialSpeed handles GET /v1/speed/initial.
func (h *CruiseHandlers) InitialSpeed(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.InitialSpeed())
}

// IsLeader handles GET /v1/leader.
func (h *CruiseHandlers) IsLeader(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, api.LeaderRequest{IsLeader: h.service.IsLeader()})
}

// SetLeader handles PUT /v1/leader.
func (h *CruiseHandlers) SetLeader(w http.ResponseWriter, r *http.Request) {
	var req api.LeaderRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.service.SetLeader(req.IsLeader)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// SetFollowers handles PUT /v1/followers.
func (h *CruiseHandlers) SetFollowers(w http.ResponseWriter, r *http.Request) {
	var req api.FollowersRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.service.SetFollowers(req.Addresses)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// CloseGapLeader handles POST /v1/gap/close-leader.
func (h *CruiseHandlers) CloseGapLeader(w http.ResponseWriter, r *http.Request) {
	var req api.CloseGapRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CruiseAddress == "" {
		h.errorHandler.WriteValidationError(w, "cruise_address is required", requestID(r))
		return
	}
	h.service.CloseGapLeader(req.CruiseAddress)
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// CloseGap handles POST /v1/gap/close.
func (h *CruiseHandlers) CloseGap(w http.ResponseWriter, r *http.Request) {
	h.service.CloseGap()
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
}

// Shutdown handles POST /v1/shutdown. The answer is written before the process stops.
func (h *CruiseHandlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, api.Ack)
	go h.service.Shutdown()
}
