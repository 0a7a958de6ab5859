package client

import (
	"context"
	"net/http"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
)

// RegistryClient talks to the bootstrap registry.
type RegistryClient struct {
	*Client
	address string
}

// NewRegistryClient binds c to the registry at address
func NewRegistryClient(c *Client, address string) *RegistryClient {
	return &RegistryClient{Client: c, address: address}
}

// Address returns the registry address.
func (r *RegistryClient) Address() string {
	return r.address
}

// RegisterPlatoon registers a coordination node. A refusal is reported as ok=false.
func (r *RegistryClient) RegisterPlatoon(ctx context.Context, address string) (model.PlatoonRegistration, bool, error) {
	var reg model.PlatoonRegistration
	err := r.do(ctx, http.MethodPost, r.address, api.PathRegisterPlatoon, "register_platoon", api.AddressRequest{Address: address}, &reg)
	ok, err := refused(err)
	return reg, ok, err
}

// RegisterCruise registers a motion node. A refusal is reported as ok=false.
func (r *RegistryClient) RegisterCruise(ctx context.Context, address string) (model.CruiseRegistration, bool, error) {
	var reg model.CruiseRegistration
	err := r.do(ctx, http.MethodPost, r.address, api.PathRegisterCruise, "register_cruise", api.AddressRequest{Address: address}, &reg)
	ok, err := refused(err)
	return reg, ok, err
}

// SetLeader records a newly elected leader.
func (r *RegistryClient) SetLeader(ctx context.Context, platoon, cruise string) error {
	req := api.RegistryLeaderRequest{PlatoonAddress: platoon, CruiseAddress: cruise}
	return r.do(ctx, http.MethodPut, r.address, api.PathRegistryLeader, "registry_set_leader", req, nil)
}

// UpdateElectionStatus opens or closes the election gate.
func (r *RegistryClient) UpdateElectionStatus(ctx context.Context, running bool) error {
	return r.do(ctx, http.MethodPut, r.address, api.PathElectionStatus, "update_election_status", api.ElectionStatusRequest{Running: running}, nil)
}

// Reset makes the registry forget every registration.
func (r *RegistryClient) Reset(ctx context.Context) error {
	return r.do(ctx, http.MethodPost, r.address, api.PathReset, "reset", nil, nil)
}

// State reads the registry state.
func (r *RegistryClient) State(ctx context.Context) (model.RegistryState, error) {
	var st model.RegistryState
	err := r.do(ctx, http.MethodGet, r.address, api.PathStatus, "status", nil, &st)
	return st, err
}

// refused splits a registration error into the ok flag and a real failure.
func refused(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case apierrors.IsCode(err, apierrors.ErrCodeProtocolViolation):
		return false, nil
	default:
		return false, err
	}
}
