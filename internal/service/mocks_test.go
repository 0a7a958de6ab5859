package service

import (
	"context"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/stretchr/testify/mock"
)

// MockCruisePeer is a mock implementation of CruisePeer
type MockCruisePeer struct {
	mock.Mock
}

func (m *MockCruisePeer) HealthCheck(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockCruisePeer) SetLeader(ctx context.Context, address string, leader bool) error {
	args := m.Called(ctx, address, leader)
	return args.Error(0)
}

func (m *MockCruisePeer) SetFollowers(ctx context.Context, address string, followers []string) error {
	args := m.Called(ctx, address, followers)
	return args.Error(0)
}

func (m *MockCruisePeer) CloseGapLeader(ctx context.Context, address, requester string) error {
	args := m.Called(ctx, address, requester)
	return args.Error(0)
}

func (m *MockCruisePeer) CloseGap(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockCruisePeer) SpeedUp(ctx context.Context, address string, delta int) (int, error) {
	args := m.Called(ctx, address, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockCruisePeer) SlowDown(ctx context.Context, address string, delta int) (int, error) {
	args := m.Called(ctx, address, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockCruisePeer) Stop(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockCruisePeer) InitialSpeed(ctx context.Context, address string) (api.InitialSpeedResponse, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(api.InitialSpeedResponse), args.Error(1)
}

func (m *MockCruisePeer) Shutdown(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// MockPlatoonPeer is a mock implementation of the PlatoonPeer calls a motion node makes
type MockPlatoonPeer struct {
	mock.Mock
	PlatoonPeer
}

func (m *MockPlatoonPeer) HealthCheck(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockPlatoonPeer) AddCruise(ctx context.Context, address, cruise string) error {
	args := m.Called(ctx, address, cruise)
	return args.Error(0)
}

// MockRegistry is a mock implementation of Registry
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) RegisterPlatoon(ctx context.Context, address string) (model.PlatoonRegistration, bool, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(model.PlatoonRegistration), args.Bool(1), args.Error(2)
}

func (m *MockRegistry) RegisterCruise(ctx context.Context, address string) (model.CruiseRegistration, bool, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(model.CruiseRegistration), args.Bool(1), args.Error(2)
}

func (m *MockRegistry) SetLeader(ctx context.Context, platoon, cruise string) error {
	args := m.Called(ctx, platoon, cruise)
	return args.Error(0)
}

func (m *MockRegistry) UpdateElectionStatus(ctx context.Context, running bool) error {
	args := m.Called(ctx, running)
	return args.Error(0)
}

func (m *MockRegistry) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRegistry) Address() string { return "registry" }

// MockDashboard is a mock implementation of Dashboard
type MockDashboard struct {
	mock.Mock
}

func (m *MockDashboard) SetList(ctx context.Context, records []model.ElectionRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockDashboard) SetSpeed(ctx context.Context, cruise string, speed int) error {
	args := m.Called(ctx, cruise, speed)
	return args.Error(0)
}

func (m *MockDashboard) RemoveTruck(ctx context.Context, platoon string) error {
	args := m.Called(ctx, platoon)
	return args.Error(0)
}

func (m *MockDashboard) Address() string { return "monitor" }
