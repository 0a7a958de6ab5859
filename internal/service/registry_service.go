package service

import (
	"context"
	"sync"

	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/store"
	"go.uber.org/zap"
)

// RegistryService is the bootstrap registry. It admits one truck at a time: a
// coordination node registers, then its motion node, then the platoon runs an
// election before the next truck may register.
type RegistryService struct {
	mu     sync.Mutex
	store  store.RegistryStore
	logger *zap.Logger
}

// NewRegistryService creates a registry backed by st
func NewRegistryService(st store.RegistryStore, logger *zap.Logger) *RegistryService {
	return &RegistryService{store: st, logger: logger}
}

// RegisterPlatoon admits a coordination node. The first one becomes leader.
func (s *RegistryService) RegisterPlatoon(ctx context.Context, address string) (model.PlatoonRegistration, error) {
	if address == "" {
		return model.PlatoonRegistration{}, apierrors.InvalidRequest("address is required", nil)
	}

	var reg model.PlatoonRegistration
	err := s.update(ctx, func(st *model.RegistryState) error {
		if st.WaitingPlatoon != "" {
			return apierrors.ProtocolViolation("another coordination node is waiting for its motion node").
				WithDetail("waiting", st.WaitingPlatoon)
		}
		if st.RunningElection {
			return apierrors.ProtocolViolation("an election is running")
		}

		st.PlatoonCounter++
		if st.LeaderPlatoon == "" {
			st.LeaderPlatoon = address
		}
		st.WaitingPlatoon = address

		reg = model.PlatoonRegistration{MemberID: st.PlatoonCounter, LeaderAddress: st.LeaderPlatoon}
		return nil
	})
	if err != nil {
		return model.PlatoonRegistration{}, err
	}

	s.logger.Info("Coordination node registered",
		zap.String("address", address),
		zap.Int("member_id", reg.MemberID),
		zap.String("leader", reg.LeaderAddress))
	return reg, nil
}

// RegisterCruise pairs a motion node with the waiting coordination node and marks
// an election as running. The first one becomes the leader motion node.
func (s *RegistryService) RegisterCruise(ctx context.Context, address string) (model.CruiseRegistration, error) {
	if address == "" {
		return model.CruiseRegistration{}, apierrors.InvalidRequest("address is required", nil)
	}

	var reg model.CruiseRegistration
	err := s.update(ctx, func(st *model.RegistryState) error {
		if st.WaitingPlatoon == "" {
			return apierrors.ProtocolViolation("no coordination node is waiting for a motion node")
		}
		if st.RunningElection {
			return apierrors.ProtocolViolation("an election is running")
		}

		st.CruiseCounter++
		if st.LeaderCruise == "" {
			st.LeaderCruise = address
		}

		reg = model.CruiseRegistration{
			MemberID:            st.CruiseCounter,
			PlatoonAddress:      st.WaitingPlatoon,
			LeaderCruiseAddress: st.LeaderCruise,
		}
		st.WaitingPlatoon = ""
		st.RunningElection = true
		return nil
	})
	if err != nil {
		return model.CruiseRegistration{}, err
	}

	s.logger.Info("Motion node registered",
		zap.String("address", address),
		zap.Int("member_id", reg.MemberID),
		zap.String("platoon", reg.PlatoonAddress))
	return reg, nil
}

// SetLeader records the address pair of a newly elected leader.
func (s *RegistryService) SetLeader(ctx context.Context, platoon, cruise string) error {
	if platoon == "" {
		return apierrors.InvalidRequest("platoon address is required", nil)
	}
	err := s.update(ctx, func(st *model.RegistryState) error {
		st.LeaderPlatoon = platoon
		if cruise != "" {
			st.LeaderCruise = cruise
		}
		return nil
	})
	if err == nil {
		s.logger.Info("Leader updated", zap.String("platoon", platoon), zap.String("cruise", cruise))
	}
	return err
}

// UpdateElectionStatus opens or closes the election gate.
func (s *RegistryService) UpdateElectionStatus(ctx context.Context, running bool) error {
	err := s.update(ctx, func(st *model.RegistryState) error {
		st.RunningElection = running
		return nil
	})
	if err == nil {
		s.logger.Debug("Election status updated", zap.Bool("running", running))
	}
	return err
}

// Reset forgets every registration.
func (s *RegistryService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, model.RegistryState{}); err != nil {
		return apierrors.InternalError("failed to reset registry state", err)
	}
	s.logger.Info("Registry reset")
	return nil
}

// Status returns the stored state.
func (s *RegistryService) Status(ctx context.Context) (model.RegistryState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return st, apierrors.InternalError("failed to load registry state", err)
	}
	return st, nil
}

// Ping checks the backing store.
func (s *RegistryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// update applies fn to the stored state and saves it when fn succeeds.
func (s *RegistryService) update(ctx context.Context, fn func(st *model.RegistryState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return apierrors.InternalError("failed to load registry state", err)
	}
	if err := fn(&st); err != nil {
		return err
	}
	if err := s.store.Save(ctx, st); err != nil {
		return apierrors.InternalError("failed to save registry state", err)
	}
	return nil
}
