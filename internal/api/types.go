package api

import "github.com/TorbenSp09/TruckPlatoonPub/internal/model"

// AckResponse is returned by commands that carry no result.
type AckResponse struct {
	Status string `json:"status"`
}

// Ack is the canonical acknowledgement.
var Ack = AckResponse{Status: "ok"}

// AddressRequest carries a single node address.
type AddressRequest struct {
	Address string `json:"address"`
}

// CheckBackRequest is CHECK_BACK_TRUCK_PORT.
type CheckBackRequest struct {
	UnreachableAddress string `json:"unreachable_address"`
	CallerAddress      string `json:"caller_address"`
}

// LeaveNoticeRequest is NOTIFY_BACK_TRUCK_LEAVE_PLATOON.
type LeaveNoticeRequest struct {
	NewFrontAddress string `json:"new_front_address"`
	NowAlone        bool   `json:"now_alone"`
}

// ContinueElectionRequest is RECEIVE_CONTINUE_ELECTION_PATH.
type ContinueElectionRequest struct {
	ElectionID string                 `json:"election_id"`
	Records    []model.ElectionRecord `json:"records"`
}

// NewLeaderRequest is RECEIVE_NEW_LEADER_PATH.
type NewLeaderRequest struct {
	ElectionID      string               `json:"election_id"`
	Winner          model.ElectionRecord `json:"winner"`
	SenderProcessID int64                `json:"sender_process_id"`
}

// SignInResponse answers NEW_TRUCK_SIGN_IN with the newcomer's front neighbor.
type SignInResponse struct {
	FrontAddress string `json:"front_address"`
}

// CloseGapRequest names the motion node adjacent to the gap.
type CloseGapRequest struct {
	CruiseAddress string `json:"cruise_address"`
}

// SpeedDeltaRequest is SPEEDUP / SLOW_DOWN.
type SpeedDeltaRequest struct {
	Delta int `json:"delta"`
}

// SpeedResponse is GET_SPEED and the result of speed commands.
type SpeedResponse struct {
	Speed int `json:"speed"`
}

// InitialSpeedResponse is GET_INITIAL_SPEED.
type InitialSpeedResponse struct {
	Speed       int `json:"speed"`
	TargetSpeed int `json:"target_speed"`
}

// LeaderRequest is SET_LEADER and the IS_LEADER answer.
type LeaderRequest struct {
	IsLeader bool `json:"is_leader"`
}

// FollowersRequest is SET_CRUISE_PORTS.
type FollowersRequest struct {
	Addresses []string `json:"addresses"`
}

// RegistryLeaderRequest is SET_LEADER_PORT.
type RegistryLeaderRequest struct {
	PlatoonAddress string `json:"platoon_address"`
	CruiseAddress  string `json:"cruise_address"`
}

// ElectionStatusRequest is UPDATE_ELECTION_STATUS.
type ElectionStatusRequest struct {
	Running bool `json:"running"`
}

// TruckListRequest is SET_LIST.
type TruckListRequest struct {
	Records []model.ElectionRecord `json:"records"`
}

// TruckSpeedRequest is SET_SPEED.
type TruckSpeedRequest struct {
	CruiseAddress string `json:"cruise_address"`
	Speed         int    `json:"speed"`
}

// TruckRemoveRequest is REMOVE_TRUCK_BY_PLATOON.
type TruckRemoveRequest struct {
	PlatoonAddress string `json:"platoon_address"`
}

// CommandRequest is a dashboard speed command for the leader.
type CommandRequest struct {
	Action string  `json:"action"`
	Pace   float64 `json:"pace"`
}
