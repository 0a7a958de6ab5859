package service

import (
	"context"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
)

// PlatoonPeer reaches other coordination nodes.
type PlatoonPeer interface {
	HealthCheck(ctx context.Context, address string) error
	CheckBack(ctx context.Context, address, unreachable, caller string) error
	UpdateFront(ctx context.Context, address, front string) error
	UpdateBack(ctx context.Context, address, back string) error
	NotifyLeave(ctx context.Context, address, newFront string, nowAlone bool) error
	ContinueElection(ctx context.Context, address string, req api.ContinueElectionRequest) error
	NewLeader(ctx context.Context, address string, req api.NewLeaderRequest) error
	SignIn(ctx context.Context, address, newMember string) (string, error)
	AddCruise(ctx context.Context, address, cruise string) error
	RequestCloseGap(ctx context.Context, address, cruise string) error
}

// CruisePeer reaches motion nodes.
type CruisePeer interface {
	HealthCheck(ctx context.Context, address string) error
	SetLeader(ctx context.Context, address string, leader bool) error
	SetFollowers(ctx context.Context, address string, followers []string) error
	CloseGapLeader(ctx context.Context, address, requester string) error
	CloseGap(ctx context.Context, address string) error
	SpeedUp(ctx context.Context, address string, delta int) (int, error)
	SlowDown(ctx context.Context, address string, delta int) (int, error)
	Stop(ctx context.Context, address string) error
	InitialSpeed(ctx context.Context, address string) (api.InitialSpeedResponse, error)
	Shutdown(ctx context.Context, address string) error
}

// Registry is the bootstrap collaborator. An out-of-order registration is reported as ok=false.
type Registry interface {
	RegisterPlatoon(ctx context.Context, address string) (model.PlatoonRegistration, bool, error)
	RegisterCruise(ctx context.Context, address string) (model.CruiseRegistration, bool, error)
	SetLeader(ctx context.Context, platoon, cruise string) error
	UpdateElectionStatus(ctx context.Context, running bool) error
	Reset(ctx context.Context) error
	Address() string
}

// Dashboard is the monitoring collaborator.
type Dashboard interface {
	SetList(ctx context.Context, records []model.ElectionRecord) error
	SetSpeed(ctx context.Context, cruise string, speed int) error
	RemoveTruck(ctx context.Context, platoon string) error
	Address() string
}

// Notifier delivers fire-and-forget notifications. Failures are logged by the notifier and never returned.
type Notifier interface {
	Go(name, peer string, fn func(ctx context.Context) error)
}
