package service

import (
	"context"

	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/ring"
	"go.uber.org/zap"
)

// CheckFront probes the front neighbour and starts a ring repair when it is gone.
// The probe runs outside the critical section; the front is re-read inside it so a
// repair that already happened is not started twice.
func (s *PlatoonService) CheckFront(ctx context.Context) {
	st := s.store.Snapshot()
	front := st.Ring.FrontAddress
	if front == "" || st.Repair.WaitingForNewFront {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.PeerTimeout)
	err := s.platoons.HealthCheck(probeCtx, front)
	cancel()
	if err == nil || ctx.Err() != nil {
		return
	}

	s.metrics.RecordProbeFailure("front")
	s.logger.Warn("Front neighbour is unreachable", zap.String("front", front), zap.Error(err))

	err = s.store.Update(ctx, func(st *ring.State) error {
		if st.Ring.FrontAddress != front || st.Repair.WaitingForNewFront {
			return nil
		}
		s.repairLocked(st, front)
		return nil
	})
	if err != nil {
		s.logger.Debug("Repair not started, front probe stopped", zap.String("front", front), zap.Error(err))
	}
}

// repairLocked sends a check-back walk around the ring to find the node behind the failed one.
func (s *PlatoonService) repairLocked(st *ring.State, failed string) {
	self := st.Self.PlatoonAddress
	back := st.Ring.BackAddress
	leader := st.Ring.LeaderAddress
	leadingSide := st.Ring.IsLeader || failed == leader

	s.notifyDashboard("remove_truck", func(ctx context.Context) error {
		return s.dashboard.RemoveTruck(ctx, failed)
	})

	var target string
	switch {
	case leadingSide && failed == back:
		// only two of us were left
		s.logger.Info("Sole survivor of the platoon", zap.String("failed", failed))
		st.Ring.FrontAddress = ""
		st.Ring.BackAddress = ""
		s.frontProbe.Stop()
		s.becomeSoleMemberLocked(st)
		s.metrics.RecordRepair("closed")
		return
	case leadingSide:
		if failed == leader {
			st.Repair.StartElectionAfterRepair = true
		}
		target = back
	default:
		st.Repair.GapToClose = true
		target = leader
	}

	if target == "" {
		s.logger.Error("No node to start the repair walk from", zap.String("failed", failed))
		return
	}

	s.frontProbe.Stop()
	st.Repair.WaitingForNewFront = true
	s.metrics.RecordRepair("requested")

	s.logger.Info("Starting ring repair",
		zap.String("failed", failed),
		zap.String("walk_from", target),
		zap.Bool("election_after_repair", st.Repair.StartElectionAfterRepair))

	s.notifier.Go("check_back", target, func(ctx context.Context) error {
		return s.platoons.CheckBack(ctx, target, failed, self)
	})
}

// CheckBack walks the ring backwards until it reaches the node whose back neighbour
// failed. That node links to the caller and tells the caller so.
func (s *PlatoonService) CheckBack(ctx context.Context, unreachable, caller string) error {
	if unreachable == "" || caller == "" {
		return apierrors.InvalidRequest("unreachable and caller addresses are required", nil)
	}

	return s.store.Update(ctx, func(st *ring.State) error {
		self := st.Self.PlatoonAddress

		switch {
		case st.Ring.BackAddress == unreachable:
			st.Ring.BackAddress = caller
			s.metrics.RecordRepair("linked")
			s.logger.Info("Linked to new back neighbour",
				zap.String("failed", unreachable),
				zap.String("back", caller))
			s.notifier.Go("update_front", caller, func(ctx context.Context) error {
				return s.platoons.UpdateFront(ctx, caller, self)
			})
		case caller == self:
			s.logger.Warn("Check back walk came full circle, dropping it",
				zap.String("failed", unreachable))
		default:
			back := st.Ring.BackAddress
			if back == "" {
				s.logger.Warn("Check back walk reached a node without back neighbour",
					zap.String("failed", unreachable))
				return nil
			}
			s.metrics.RecordRepair("forwarded")
			s.notifier.Go("check_back", back, func(ctx context.Context) error {
				return s.platoons.CheckBack(ctx, back, unreachable, caller)
			})
		}
		return nil
	})
}

// CheckCruise probes the paired motion node. Losing it is fatal for this node.
func (s *PlatoonService) CheckCruise(ctx context.Context) {
	cruise := s.store.Cruise()
	if cruise == "" {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.PeerTimeout)
	err := s.cruises.HealthCheck(probeCtx, cruise)
	cancel()
	if err == nil || ctx.Err() != nil {
		return
	}

	s.metrics.RecordProbeFailure("cruise")
	s.cruiseProbe.Stop()
	s.onFatal(apierrors.FatalLocalFailure(cruise, err))
}
