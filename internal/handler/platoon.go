package handler

import (
	"net/http"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PlatoonHandlers serves a coordination node.
type PlatoonHandlers struct {
	base
	service *service.PlatoonService
}

// NewPlatoonHandlers creates the coordination node handlers
func NewPlatoonHandlers(svc *service.PlatoonService, logger *zap.Logger, timeout time.Duration) *PlatoonHandlers {
	return &PlatoonHandlers{base: newBase(logger, timeout), service: svc}
}

// Register implements server.Routes.
func (h *PlatoonHandlers) Register(r *mux.Router) {
	r.HandleFunc(api.PathHealthCheck, h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc(api.PathStatus, h.Status).Methods(http.MethodGet)
	r.HandleFunc(api.PathCheckBack, h.CheckBack).Methods(http.MethodPost)
	r.HandleFunc(api.PathUpdateFront, h.UpdateFront).Methods(http.MethodPut)
	r.HandleFunc(api.PathUpdateBack, h.UpdateBack).Methods(http.MethodPut)
	r.HandleFunc(api.PathLeaveNotice, h.NotifyLeave).Methods(http.MethodPost)
	r.HandleFunc(api.PathContinueElection, h.ContinueElection).Methods(http.MethodPost)
	r.HandleFunc(api.PathNewLeader, h.NewLeader).Methods(http.MethodPost)
	r.HandleFunc(api.PathSignIn, h.SignIn).Methods(http.MethodPost)
	r.HandleFunc(api.PathAddCruise, h.AddCruise).Methods(http.MethodPost)
	r.HandleFunc(api.PathCloseGap, h.CloseGap).Methods(http.MethodPost)
}

// Status handles GET /v1/status.
func (h *PlatoonHandlers) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.Status())
}

// CheckBack handles POST /v1/ring/check-back.
func (h *PlatoonHandlers) CheckBack(w http.ResponseWriter, r *http.Request) {
	var req api.CheckBackRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.CheckBack(ctx, req.UnreachableAddress, req.CallerAddress))
}

// UpdateFront handles PUT /v1/ring/front.
func (h *PlatoonHandlers) UpdateFront(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.UpdateFront(ctx, req.Address))
}

// UpdateBack handles PUT /v1/ring/back. An empty address clears the back neighbour.
func (h *PlatoonHandlers) UpdateBack(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.UpdateBack(ctx, req.Address))
}

// NotifyLeave handles POST /v1/ring/leave-notice.
func (h *PlatoonHandlers) NotifyLeave(w http.ResponseWriter, r *http.Request) {
	var req api.LeaveNoticeRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.NotifyLeave(ctx, req.NewFrontAddress, req.NowAlone))
}

// ContinueElection handles POST /v1/election/continue.
func (h *PlatoonHandlers) ContinueElection(w http.ResponseWriter, r *http.Request) {
	var req api.ContinueElectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.ContinueElection(ctx, req))
}

// NewLeader handles POST /v1/election/leader.
func (h *PlatoonHandlers) NewLeader(w http.ResponseWriter, r *http.Request) {
	var req api.NewLeaderRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.NewLeader(ctx, req))
}

// SignIn handles POST /v1/members/sign-in.
func (h *PlatoonHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()

	front, err := h.service.SignIn(ctx, req.Address)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, api.SignInResponse{FrontAddress: front})
}

// AddCruise handles POST /v1/members/cruise.
func (h *PlatoonHandlers) AddCruise(w http.ResponseWriter, r *http.Request) {
	var req api.AddressRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.AddCruise(ctx, req.Address))
}

// CloseGap handles POST /v1/gap/close.
func (h *PlatoonHandlers) CloseGap(w http.ResponseWriter, r *http.Request) {
	var req api.CloseGapRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.CruiseAddress == "" {
		h.errorHandler.WriteValidationError(w, "cruise_address is required", requestID(r))
		return
	}
	ctx, cancel := h.withTimeout(r)
	defer cancel()
	h.ack(w, r, h.service.RequestCloseGap(ctx, req.CruiseAddress))
}
