package model

// RegistryState is everything the bootstrap registry remembers between calls.
type RegistryState struct {
	PlatoonCounter int    `json:"platoon_counter"`
	CruiseCounter  int    `json:"cruise_counter"`
	LeaderPlatoon  string `json:"leader_platoon"`
	LeaderCruise   string `json:"leader_cruise"`
	// WaitingPlatoon is the coordination node that registered and still waits for its motion node.
	WaitingPlatoon  string `json:"waiting_platoon"`
	RunningElection bool   `json:"running_election"`
}

// PlatoonRegistration answers REGISTER_PLATOON.
type PlatoonRegistration struct {
	MemberID      int    `json:"member_id"`
	LeaderAddress string `json:"leader_address"`
}

// CruiseRegistration answers REGISTER_CRUISE.
type CruiseRegistration struct {
	MemberID            int    `json:"member_id"`
	PlatoonAddress      string `json:"platoon_address"`
	LeaderCruiseAddress string `json:"leader_cruise_address"`
}
