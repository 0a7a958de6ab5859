package model

// ElectionRecord identifies one platoon member inside an election message.
// Records compare by ProcessID for leadership and by all fields for equality.
type ElectionRecord struct {
	PlatoonAddress string `json:"platoon_address" yaml:"platoon_address"`
	CruiseAddress  string `json:"cruise_address" yaml:"cruise_address"`
	ProcessID      int64  `json:"process_id" yaml:"process_id"`
}

// Identity is the immutable (address, processID) pair of a coordination node.
type Identity struct {
	Address   string `json:"address" yaml:"address"`
	ProcessID int64  `json:"process_id" yaml:"process_id"`
}
