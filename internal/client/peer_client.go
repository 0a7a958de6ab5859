package client

import (
	"context"
	"net/http"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
)

// HealthCheck probes any node.
func (c *Client) HealthCheck(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodGet, address, api.PathHealthCheck, "health_check", nil, nil)
}

// CheckBack forwards a ring repair walk.
func (c *Client) CheckBack(ctx context.Context, address, unreachable, caller string) error {
	req := api.CheckBackRequest{UnreachableAddress: unreachable, CallerAddress: caller}
	return c.do(ctx, http.MethodPost, address, api.PathCheckBack, "check_back", req, nil)
}

// UpdateFront sets the front neighbour of a coordination node.
func (c *Client) UpdateFront(ctx context.Context, address, front string) error {
	return c.do(ctx, http.MethodPut, address, api.PathUpdateFront, "update_front", api.AddressRequest{Address: front}, nil)
}

// UpdateBack sets the back neighbour of a coordination node.
func (c *Client) UpdateBack(ctx context.Context, address, back string) error {
	return c.do(ctx, http.MethodPut, address, api.PathUpdateBack, "update_back", api.AddressRequest{Address: back}, nil)
}

// NotifyLeave tells the back neighbour that its front neighbour leaves.
func (c *Client) NotifyLeave(ctx context.Context, address, newFront string, nowAlone bool) error {
	req := api.LeaveNoticeRequest{NewFrontAddress: newFront, NowAlone: nowAlone}
	return c.do(ctx, http.MethodPost, address, api.PathLeaveNotice, "notify_leave", req, nil)
}

// ContinueElection passes the election message on.
func (c *Client) ContinueElection(ctx context.Context, address string, req api.ContinueElectionRequest) error {
	return c.do(ctx, http.MethodPost, address, api.PathContinueElection, "continue_election", req, nil)
}

// NewLeader passes the winner announcement on.
func (c *Client) NewLeader(ctx context.Context, address string, req api.NewLeaderRequest) error {
	return c.do(ctx, http.MethodPost, address, api.PathNewLeader, "new_leader", req, nil)
}

// SignIn asks the leader to let newMember in and returns its front neighbour.
func (c *Client) SignIn(ctx context.Context, address, newMember string) (string, error) {
	var resp api.SignInResponse
	if err := c.do(ctx, http.MethodPost, address, api.PathSignIn, "sign_in", api.AddressRequest{Address: newMember}, &resp); err != nil {
		return "", err
	}
	return resp.FrontAddress, nil
}

// AddCruise attaches a motion node to its coordination node.
func (c *Client) AddCruise(ctx context.Context, address, cruise string) error {
	return c.do(ctx, http.MethodPost, address, api.PathAddCruise, "add_cruise", api.AddressRequest{Address: cruise}, nil)
}

// RequestCloseGap asks the leader coordination node to close the gap in front of cruise.
func (c *Client) RequestCloseGap(ctx context.Context, address, cruise string) error {
	return c.do(ctx, http.MethodPost, address, api.PathCloseGap, "request_close_gap", api.CloseGapRequest{CruiseAddress: cruise}, nil)
}

// SetLeader changes the role of a motion node.
func (c *Client) SetLeader(ctx context.Context, address string, leader bool) error {
	return c.do(ctx, http.MethodPut, address, api.PathLeader, "set_leader", api.LeaderRequest{IsLeader: leader}, nil)
}

// IsLeader asks a motion node for its role.
func (c *Client) IsLeader(ctx context.Context, address string) (bool, error) {
	var resp api.LeaderRequest
	if err := c.do(ctx, http.MethodGet, address, api.PathLeader, "is_leader", nil, &resp); err != nil {
		return false, err
	}
	return resp.IsLeader, nil
}

// SetFollowers replaces the follower list of the leader motion node.
func (c *Client) SetFollowers(ctx context.Context, address string, followers []string) error {
	return c.do(ctx, http.MethodPut, address, api.PathFollowers, "set_followers", api.FollowersRequest{Addresses: followers}, nil)
}

// CloseGapLeader asks the leader motion node to fan out a close-gap command.
func (c *Client) CloseGapLeader(ctx context.Context, address, requester string) error {
	return c.do(ctx, http.MethodPost, address, api.PathCloseGapLeader, "close_gap_leader", api.CloseGapRequest{CruiseAddress: requester}, nil)
}

// CloseGap tells a follower motion node to close the gap in front of it.
func (c *Client) CloseGap(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodPost, address, api.PathCloseGap, "close_gap", nil, nil)
}

// Speed reads the current speed of a motion node.
func (c *Client) Speed(ctx context.Context, address string) (int, error) {
	var resp api.SpeedResponse
	if err := c.do(ctx, http.MethodGet, address, api.PathSpeed, "speed", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Speed, nil
}

// SpeedUp raises the target speed of a motion node.
func (c *Client) SpeedUp(ctx context.Context, address string, delta int) (int, error) {
	return c.speedDelta(ctx, address, api.PathSpeedUp, "speed_up", delta)
}

// SlowDown lowers the target speed of a motion node.
func (c *Client) SlowDown(ctx context.Context, address string, delta int) (int, error) {
	return c.speedDelta(ctx, address, api.PathSlowDown, "slow_down", delta)
}

func (c *Client) speedDelta(ctx context.Context, address, path, operation string, delta int) (int, error) {
	var resp api.SpeedResponse
	if err := c.do(ctx, http.MethodPost, address, path, operation, api.SpeedDeltaRequest{Delta: delta}, &resp); err != nil {
		return 0, err
	}
	return resp.Speed, nil
}

// Stop halts a motion node.
func (c *Client) Stop(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodPost, address, api.PathStop, "stop", nil, nil)
}

// InitialSpeed reads the speed pair a joining motion node starts with.
func (c *Client) InitialSpeed(ctx context.Context, address string) (api.InitialSpeedResponse, error) {
	var resp api.InitialSpeedResponse
	err := c.do(ctx, http.MethodGet, address, api.PathInitialSpeed, "initial_speed", nil, &resp)
	return resp, err
}

// Shutdown stops a motion node.
func (c *Client) Shutdown(ctx context.Context, address string) error {
	return c.do(ctx, http.MethodPost, address, api.PathShutdown, "shutdown", nil, nil)
}
