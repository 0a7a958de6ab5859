package service

import (
	"context"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/election"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/ring"
	"go.uber.org/zap"
)

// startElectionLocked sends a fresh record list to the front neighbour.
func (s *PlatoonService) startElectionLocked(st *ring.State) {
	req := api.ContinueElectionRequest{
		ElectionID: newElectionID(),
		Records:    []model.ElectionRecord{st.Self},
	}
	s.metrics.RecordElection("started")
	s.logger.Info("Starting election", zap.String("election_id", req.ElectionID))

	if st.Ring.FrontAddress == "" {
		s.concludeLocked(st, req.ElectionID, req.Records)
		return
	}
	s.forwardElection(st.Ring.FrontAddress, req)
}

// ContinueElection handles an election message travelling around the ring.
func (s *PlatoonService) ContinueElection(ctx context.Context, req api.ContinueElectionRequest) error {
	if len(req.Records) == 0 {
		return apierrors.InvalidRequest("election records are required", nil)
	}

	return s.store.Update(ctx, func(st *ring.State) error {
		if election.Contains(req.Records, st.Self) {
			s.concludeLocked(st, req.ElectionID, req.Records)
			return nil
		}

		next := api.ContinueElectionRequest{
			ElectionID: req.ElectionID,
			Records:    election.Append(req.Records, st.Self),
		}
		s.metrics.RecordElection("forwarded")

		front := st.Ring.FrontAddress
		if front == "" {
			s.logger.Warn("Election reached a node without front neighbour, concluding here",
				zap.String("election_id", req.ElectionID))
			s.concludeLocked(st, next.ElectionID, next.Records)
			return nil
		}
		s.forwardElection(front, next)
		return nil
	})
}

// concludeLocked runs on the node whose record started the list once it came back around.
func (s *PlatoonService) concludeLocked(st *ring.State, electionID string, records []model.ElectionRecord) {
	result, ok := election.Conclude(records)
	if !ok {
		s.logger.Error("Election concluded without records", zap.String("election_id", electionID))
		return
	}

	s.metrics.RecordElection("concluded")
	s.logger.Info("Election concluded",
		zap.String("election_id", electionID),
		zap.String("winner", result.Winner.PlatoonAddress),
		zap.Int64("winner_pid", result.Winner.ProcessID),
		zap.Int("members", len(result.Members)))

	members := result.Members
	s.notifyDashboard("set_list", func(ctx context.Context) error {
		return s.dashboard.SetList(ctx, members)
	})

	s.applyNewLeaderLocked(st, result.Winner)

	winnerCruise := result.Winner.CruiseAddress
	followers := result.Followers
	if winnerCruise != "" {
		s.notifier.Go("set_followers", winnerCruise, func(ctx context.Context) error {
			return s.cruises.SetFollowers(ctx, winnerCruise, followers)
		})
	}

	front := st.Ring.FrontAddress
	if front == "" {
		s.notifyRegistry("update_election_status", func(ctx context.Context) error {
			return s.registry.UpdateElectionStatus(ctx, false)
		})
		return
	}

	announce := api.NewLeaderRequest{
		ElectionID:      electionID,
		Winner:          result.Winner,
		SenderProcessID: st.Self.ProcessID,
	}
	s.notifier.Go("new_leader", front, func(ctx context.Context) error {
		return s.platoons.NewLeader(ctx, front, announce)
	})
}

// NewLeader handles the announcement of an election winner. It stops when it is back at
// the node that sent it, which then reports the election as finished.
func (s *PlatoonService) NewLeader(ctx context.Context, req api.NewLeaderRequest) error {
	if req.Winner.PlatoonAddress == "" {
		return apierrors.InvalidRequest("winner is required", nil)
	}

	return s.store.Update(ctx, func(st *ring.State) error {
		if req.SenderProcessID == st.Self.ProcessID {
			s.metrics.RecordElection("announced")
			s.logger.Info("Leader announcement went full circle",
				zap.String("election_id", req.ElectionID),
				zap.String("leader", req.Winner.PlatoonAddress))
			s.notifyRegistry("update_election_status", func(ctx context.Context) error {
				return s.registry.UpdateElectionStatus(ctx, false)
			})
			return nil
		}

		s.applyNewLeaderLocked(st, req.Winner)

		front := st.Ring.FrontAddress
		if front == "" {
			return nil
		}
		s.notifier.Go("new_leader", front, func(ctx context.Context) error {
			return s.platoons.NewLeader(ctx, front, req)
		})
		return nil
	})
}

// applyNewLeaderLocked records the winner and tells the paired motion node about a role change.
func (s *PlatoonService) applyNewLeaderLocked(st *ring.State, winner model.ElectionRecord) {
	own := st.Ring.CruiseAddress
	self := st.Self

	if winner.ProcessID == self.ProcessID {
		st.BecomeLeader()
		s.metrics.SetLeader(true)
		s.logger.Info("This node is the leader")
		if own != "" {
			s.notifier.Go("set_leader", own, func(ctx context.Context) error {
				return s.cruises.SetLeader(ctx, own, true)
			})
		}
		s.notifyRegistry("set_leader", func(ctx context.Context) error {
			return s.registry.SetLeader(ctx, self.PlatoonAddress, own)
		})
		return
	}

	if st.FollowLeader(winner.PlatoonAddress) {
		s.metrics.SetLeader(false)
		s.logger.Info("Lost leadership", zap.String("leader", winner.PlatoonAddress))
		if own != "" {
			s.notifier.Go("set_leader", own, func(ctx context.Context) error {
				return s.cruises.SetLeader(ctx, own, false)
			})
		}
	}
}

func (s *PlatoonService) forwardElection(front string, req api.ContinueElectionRequest) {
	s.notifier.Go("continue_election", front, func(ctx context.Context) error {
		return s.platoons.ContinueElection(ctx, front, req)
	})
}
