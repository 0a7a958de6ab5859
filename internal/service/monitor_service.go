package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"go.uber.org/zap"
)

// MonitorService is the dashboard: the convoy in driving order with the last reported
// speeds, and a command relay to the leader's motion node.
type MonitorService struct {
	mu     sync.RWMutex
	trucks []model.TruckInfo

	cruises CruisePeer
	logger  *zap.Logger
}

// NewMonitorService creates an empty dashboard
func NewMonitorService(cruises CruisePeer, logger *zap.Logger) *MonitorService {
	return &MonitorService{cruises: cruises, logger: logger}
}

// SetList replaces the convoy with the leader-first member list. Speeds already
// reported for a motion node are kept.
func (s *MonitorService) SetList(records []model.ElectionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	speeds := make(map[string]int, len(s.trucks))
	for _, t := range s.trucks {
		speeds[t.CruiseAddress] = t.Speed
	}

	trucks := make([]model.TruckInfo, 0, len(records))
	for i, r := range records {
		trucks = append(trucks, model.TruckInfo{
			Position:       i + 1,
			ProcessID:      r.ProcessID,
			PlatoonAddress: r.PlatoonAddress,
			CruiseAddress:  r.CruiseAddress,
			Speed:          speeds[r.CruiseAddress],
			IsLeader:       i == 0,
		})
	}
	s.trucks = trucks
	s.logger.Info("Convoy updated", zap.Int("trucks", len(trucks)))
}

// SetSpeed records the speed reported by a motion node. Unknown motion nodes are ignored.
func (s *MonitorService) SetSpeed(cruise string, speed int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.trucks {
		if s.trucks[i].CruiseAddress == cruise {
			s.trucks[i].Speed = speed
			return
		}
	}
	s.logger.Debug("Speed reported by unknown motion node", zap.String("cruise", cruise))
}

// RemoveTruck drops the truck of a coordination node. A single remaining truck is shown as leader.
func (s *MonitorService) RemoveTruck(platoon string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.TruckInfo, 0, len(s.trucks))
	for _, t := range s.trucks {
		if t.PlatoonAddress != platoon {
			kept = append(kept, t)
		}
	}
	for i := range kept {
		kept[i].Position = i + 1
	}
	if len(kept) == 1 {
		kept[0].IsLeader = true
	}
	if len(kept) != len(s.trucks) {
		s.logger.Info("Truck removed", zap.String("platoon", platoon), zap.Int("trucks", len(kept)))
	}
	s.trucks = kept
}

// Trucks returns the convoy in driving order.
func (s *MonitorService) Trucks() []model.TruckInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TruckInfo(nil), s.trucks...)
}

// Truck returns the truck at a 1-based position.
func (s *MonitorService) Truck(position int) (model.TruckInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if position < 1 || position > len(s.trucks) {
		return model.TruckInfo{}, apierrors.NotFound(fmt.Sprintf("no truck at position %d", position))
	}
	return s.trucks[position-1], nil
}

// Command relays a speed command to the leader's motion node, which fans it out.
func (s *MonitorService) Command(ctx context.Context, action string, pace float64) error {
	leader, ok := s.leader()
	if !ok {
		return apierrors.NotFound("no leader truck")
	}

	delta := int(math.Round(pace))
	var err error
	switch action {
	case model.CommandSpeedUp:
		_, err = s.cruises.SpeedUp(ctx, leader.CruiseAddress, delta)
	case model.CommandSlowDown:
		_, err = s.cruises.SlowDown(ctx, leader.CruiseAddress, delta)
	case model.CommandStop:
		err = s.cruises.Stop(ctx, leader.CruiseAddress)
	default:
		return apierrors.InvalidRequest(fmt.Sprintf("unknown command %q", action), nil)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Command relayed",
		zap.String("action", action),
		zap.Int("pace", delta),
		zap.String("leader_cruise", leader.CruiseAddress))
	return nil
}

func (s *MonitorService) leader() (model.TruckInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.trucks {
		if t.IsLeader && t.CruiseAddress != "" {
			return t, true
		}
	}
	return model.TruckInfo{}, false
}
