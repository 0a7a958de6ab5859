package model

// RingState is the topology owned by one coordination node.
// LeaderAddress is empty while IsLeader is set.
type RingState struct {
	IsLeader      bool   `json:"is_leader" yaml:"is_leader"`
	LeaderAddress string `json:"leader_address" yaml:"leader_address"`
	FrontAddress  string `json:"front_address" yaml:"front_address"`
	BackAddress   string `json:"back_address" yaml:"back_address"`
	CruiseAddress string `json:"cruise_address" yaml:"cruise_address"`
}

// RepairState holds the flags that survive between a failed probe and the UPDATE_FRONT that answers it.
type RepairState struct {
	WaitingForNewFront       bool `json:"waiting_for_new_front" yaml:"waiting_for_new_front"`
	StartElectionAfterRepair bool `json:"start_election_after_repair" yaml:"start_election_after_repair"`
	GapToClose               bool `json:"gap_to_close" yaml:"gap_to_close"`
}

// PlatoonStatus is the inspection view of a coordination node.
type PlatoonStatus struct {
	Identity Identity    `json:"identity" yaml:"identity"`
	Ring     RingState   `json:"ring" yaml:"ring"`
	Repair   RepairState `json:"repair" yaml:"repair"`
	Joined   bool        `json:"joined" yaml:"joined"`
}
