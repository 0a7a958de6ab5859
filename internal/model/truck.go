package model

// TruckInfo is one row of the dashboard.
type TruckInfo struct {
	Position       int    `json:"position"`
	ProcessID      int64  `json:"process_id"`
	PlatoonAddress string `json:"platoon_address"`
	CruiseAddress  string `json:"cruise_address"`
	Speed          int    `json:"speed"`
	IsLeader       bool   `json:"is_leader"`
}

// Dashboard commands relayed to the leader's motion node.
const (
	CommandSpeedUp  = "speedup"
	CommandSlowDown = "slowdown"
	CommandStop     = "stop"
)
