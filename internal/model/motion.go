package model

// MotionState is a snapshot of the speed state machine of a motion node.
// Speeds are km/h, distances km.
type MotionState struct {
	Speed                 int      `json:"speed" yaml:"speed"`
	TargetSpeed           int      `json:"target_speed" yaml:"target_speed"`
	Gap                   float64  `json:"gap" yaml:"gap"`
	TraveledDistance      float64  `json:"traveled_distance" yaml:"traveled_distance"`
	TraveledDistanceFront float64  `json:"traveled_distance_front" yaml:"traveled_distance_front"`
	IsLeader              bool     `json:"is_leader" yaml:"is_leader"`
	FollowerAddresses     []string `json:"follower_addresses,omitempty" yaml:"follower_addresses,omitempty"`
}

// CruiseStatus is the inspection view of a motion node.
type CruiseStatus struct {
	Address        string      `json:"address" yaml:"address"`
	PlatoonAddress string      `json:"platoon_address" yaml:"platoon_address"`
	Motion         MotionState `json:"motion" yaml:"motion"`
}
