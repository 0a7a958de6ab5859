// Package api holds the wire surface shared by the handlers and the peer client:
// route paths and request/response payloads.
package api

// Shared routes.
const (
	PathHealthCheck = "/v1/health-check"
	PathStatus      = "/v1/status"
)

// Coordination node routes.
const (
	PathCheckBack        = "/v1/ring/check-back"
	PathUpdateFront      = "/v1/ring/front"
	PathUpdateBack       = "/v1/ring/back"
	PathLeaveNotice      = "/v1/ring/leave-notice"
	PathContinueElection = "/v1/election/continue"
	PathNewLeader        = "/v1/election/leader"
	PathSignIn           = "/v1/members/sign-in"
	PathAddCruise        = "/v1/members/cruise"
	PathCloseGap         = "/v1/gap/close"
)

// Motion node routes.
const (
	PathSpeed          = "/v1/speed"
	PathSpeedUp        = "/v1/speed/up"
	PathSlowDown       = "/v1/speed/down"
	PathStop           = "/v1/speed/stop"
	PathInitialSpeed   = "/v1/speed/initial"
	PathLeader         = "/v1/leader"
	PathFollowers      = "/v1/followers"
	PathCloseGapLeader = "/v1/gap/close-leader"
	PathShutdown       = "/v1/shutdown"
)

// Registry routes.
const (
	PathRegisterPlatoon = "/v1/register/platoon"
	PathRegisterCruise  = "/v1/register/cruise"
	PathRegistryLeader  = "/v1/leader"
	PathElectionStatus  = "/v1/election-status"
	PathReset           = "/v1/reset"
)

// Monitor routes.
const (
	PathTrucks      = "/v1/trucks"
	PathTruckSpeed  = "/v1/trucks/speed"
	PathTruckRemove = "/v1/trucks/remove"
	PathTruck       = "/v1/trucks/{position:[0-9]+}"
	PathCommand     = "/v1/command"
)
