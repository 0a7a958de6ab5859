package service

import (
	"context"

	"go.uber.org/zap"
)

// CloseGapLeader fans the close-gap command out to the requester and every follower
// behind it. Only the leader acts on it.
func (s *CruiseService) CloseGapLeader(requester string) {
	s.leaderMu.RLock()
	if !s.isLeader {
		s.leaderMu.RUnlock()
		s.logger.Debug("Ignoring close gap request, not the leader", zap.String("requester", requester))
		return
	}
	idx := -1
	for i, f := range s.followers {
		if f == requester {
			idx = i
			break
		}
	}
	var targets []string
	if idx >= 0 {
		targets = append([]string(nil), s.followers[idx:]...)
	}
	s.leaderMu.RUnlock()

	if idx < 0 {
		s.logger.Warn("Close gap requested by unknown follower", zap.String("requester", requester))
		return
	}

	s.logger.Info("Closing gap", zap.String("requester", requester), zap.Strings("followers", targets))
	s.notifier.Go("close_gap", requester, func(ctx context.Context) error {
		s.callFollowers(ctx, "close_gap", targets, func(ctx context.Context, follower string) error {
			return s.cruises.CloseGap(ctx, follower)
		})
		return nil
	})
}

// CloseGap schedules one gap-closing manoeuvre on a follower. Each command gets its
// own manoeuvre; a manoeuvre starts once any running ramp and any earlier gap have finished.
func (s *CruiseService) CloseGap() {
	if s.IsLeader() {
		s.logger.Debug("Ignoring close gap, this node leads")
		return
	}

	s.gapMu.Lock()
	defer s.gapMu.Unlock()
	s.pendingGaps++
	s.closeGap.Start()
	s.logger.Debug("Close gap scheduled", zap.Int("pending", s.pendingGaps))
}

// checkCloseGap opens the gap and requests the boost when the truck is steady.
// The check stops once no request is pending.
func (s *CruiseService) checkCloseGap() {
	s.speedMu.Lock()
	s.gapMu.Lock()
	steady := s.pendingGaps > 0 && s.speed == s.targetSpeed && s.gap == 0
	if steady {
		s.pendingGaps--
		s.gap = 2*s.cfg.ExpectedDistance + s.cfg.TruckLength
		s.traveled, s.traveledFront = 0, 0
	}
	if s.pendingGaps == 0 {
		s.closeGap.Stop()
	}
	gap, pending := s.gap, s.pendingGaps
	s.gapMu.Unlock()
	s.speedMu.Unlock()

	if !steady {
		return
	}

	s.logger.Info("Gap opened, boosting",
		zap.Float64("gap", gap),
		zap.Int("boost", s.cfg.GapBoost),
		zap.Int("pending", pending))
	s.SpeedUp(s.cfg.GapBoost)
}
