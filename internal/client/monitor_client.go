package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
)

// MonitorClient talks to the dashboard.
type MonitorClient struct {
	*Client
	address string
}

// NewMonitorClient binds c to the dashboard at address
func NewMonitorClient(c *Client, address string) *MonitorClient {
	return &MonitorClient{Client: c, address: address}
}

// Address returns the dashboard address.
func (m *MonitorClient) Address() string {
	return m.address
}

// SetList replaces the displayed convoy.
func (m *MonitorClient) SetList(ctx context.Context, records []model.ElectionRecord) error {
	return m.do(ctx, http.MethodPut, m.address, api.PathTrucks, "set_list", api.TruckListRequest{Records: records}, nil)
}

// SetSpeed reports the speed of a motion node.
func (m *MonitorClient) SetSpeed(ctx context.Context, cruise string, speed int) error {
	req := api.TruckSpeedRequest{CruiseAddress: cruise, Speed: speed}
	return m.do(ctx, http.MethodPut, m.address, api.PathTruckSpeed, "set_speed", req, nil)
}

// RemoveTruck drops the truck of a coordination node.
func (m *MonitorClient) RemoveTruck(ctx context.Context, platoon string) error {
	return m.do(ctx, http.MethodPost, m.address, api.PathTruckRemove, "remove_truck", api.TruckRemoveRequest{PlatoonAddress: platoon}, nil)
}

// Trucks reads the displayed convoy.
func (m *MonitorClient) Trucks(ctx context.Context) ([]model.TruckInfo, error) {
	var trucks []model.TruckInfo
	err := m.do(ctx, http.MethodGet, m.address, api.PathTrucks, "trucks", nil, &trucks)
	return trucks, err
}

// Truck reads the truck at a 1-based position.
func (m *MonitorClient) Truck(ctx context.Context, position int) (model.TruckInfo, error) {
	var truck model.TruckInfo
	err := m.do(ctx, http.MethodGet, m.address, fmt.Sprintf("/v1/trucks/%d", position), "truck", nil, &truck)
	return truck, err
}

// Command sends a speed command through the dashboard to the leader.
func (m *MonitorClient) Command(ctx context.Context, action string, pace float64) error {
	return m.do(ctx, http.MethodPost, m.address, api.PathCommand, "command", api.CommandRequest{Action: action, Pace: pace}, nil)
}
