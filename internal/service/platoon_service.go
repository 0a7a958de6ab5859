package service

import (
	"context"
	"fmt"
	"time"

	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/metrics"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/ring"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PlatoonConfig holds coordination node timings
type PlatoonConfig struct {
	ProbeInterval time.Duration
	PeerTimeout   time.Duration
}

// PlatoonDeps are the collaborators of a coordination node
type PlatoonDeps struct {
	Platoons  PlatoonPeer
	Cruises   CruisePeer
	Registry  Registry
	Dashboard Dashboard
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// OnFatal ends the process when the paired motion node is gone.
	OnFatal func(err error)
}

// PlatoonService is the coordination node: ring topology, failure detection,
// ring repair, leader election and gap-closing requests.
type PlatoonService struct {
	cfg       *PlatoonConfig
	store     *ring.Store
	platoons  PlatoonPeer
	cruises   CruisePeer
	registry  Registry
	dashboard Dashboard
	notifier  Notifier
	metrics   *metrics.Metrics
	onFatal   func(err error)
	logger    *zap.Logger

	frontProbe  *Prober
	cruiseProbe *Prober

	// set by Register, read under the store's critical section
	memberID      int
	initialLeader string
}

// NewPlatoonService creates a coordination node for the given identity
func NewPlatoonService(cfg *PlatoonConfig, id model.Identity, deps PlatoonDeps, logger *zap.Logger) *PlatoonService {
	logger = logger.With(zap.String("node", id.Address), zap.Int64("pid", id.ProcessID))

	s := &PlatoonService{
		cfg:       cfg,
		store:     ring.NewStore(id),
		platoons:  deps.Platoons,
		cruises:   deps.Cruises,
		registry:  deps.Registry,
		dashboard: deps.Dashboard,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		onFatal:   deps.OnFatal,
		logger:    logger,
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics(nil)
	}
	if s.onFatal == nil {
		s.onFatal = func(err error) {
			logger.Fatal("Paired motion node is gone, shutting down", zap.Error(err))
		}
	}
	s.frontProbe = NewProber("front", cfg.ProbeInterval, s.CheckFront, logger)
	s.cruiseProbe = NewProber("cruise", cfg.ProbeInterval, s.CheckCruise, logger)
	return s
}

// Register announces this node to the bootstrap registry and learns the leader to join.
func (s *PlatoonService) Register(ctx context.Context) (model.PlatoonRegistration, error) {
	self := s.store.Self()
	reg, ok, err := s.registry.RegisterPlatoon(ctx, self.PlatoonAddress)
	if err != nil {
		return reg, apierrors.PeerUnreachable(s.registry.Address(), "register_platoon", err)
	}
	if !ok {
		return reg, apierrors.ProtocolViolation("registry refused the coordination node: another truck is joining or an election is running, retry later")
	}

	err = s.store.Update(ctx, func(st *ring.State) error {
		s.memberID = reg.MemberID
		s.initialLeader = reg.LeaderAddress
		return nil
	})
	if err != nil {
		return model.PlatoonRegistration{}, fmt.Errorf("failed to record registration: %w", err)
	}

	s.logger.Info("Registered with registry",
		zap.Int("member_id", reg.MemberID),
		zap.String("leader", reg.LeaderAddress))
	return reg, nil
}

// AddCruise attaches the co-located motion node and joins the platoon.
func (s *PlatoonService) AddCruise(ctx context.Context, cruise string) error {
	if cruise == "" {
		return apierrors.InvalidRequest("cruise address is required", nil)
	}

	return s.store.Update(ctx, func(st *ring.State) error {
		if st.Ring.CruiseAddress != "" {
			if st.Ring.CruiseAddress == cruise {
				return nil
			}
			return apierrors.ProtocolViolation("a motion node is already attached").
				WithDetail("attached", st.Ring.CruiseAddress)
		}
		if s.initialLeader == "" {
			return apierrors.ProtocolViolation("coordination node is not registered")
		}

		st.Ring.CruiseAddress = cruise
		st.Self.CruiseAddress = cruise

		if err := s.joinLocked(ctx, st); err != nil {
			st.Ring.CruiseAddress = ""
			st.Self.CruiseAddress = ""
			return err
		}
		return nil
	})
}

// joinLocked enters the ring behind the leader and starts an election.
func (s *PlatoonService) joinLocked(ctx context.Context, st *ring.State) error {
	self := st.Self

	if s.initialLeader == self.PlatoonAddress {
		st.BecomeLeader()
		s.metrics.SetLeader(true)
		records := []model.ElectionRecord{self}
		s.notifyDashboard("set_list", func(ctx context.Context) error {
			return s.dashboard.SetList(ctx, records)
		})
		s.notifyRegistry("update_election_status", func(ctx context.Context) error {
			return s.registry.UpdateElectionStatus(ctx, false)
		})
		s.logger.Info("Founded the platoon as leader")
	} else {
		front, err := s.platoons.SignIn(ctx, s.initialLeader, self.PlatoonAddress)
		if err != nil {
			if apierrors.IsPlatoonError(err) && !apierrors.IsCode(err, apierrors.ErrCodePeerUnreachable) {
				return err
			}
			return apierrors.PeerUnreachable(s.initialLeader, "sign_in", err)
		}
		st.FollowLeader(s.initialLeader)
		st.Ring.BackAddress = s.initialLeader
		st.Ring.FrontAddress = front
		s.logger.Info("Signed in with leader",
			zap.String("leader", s.initialLeader),
			zap.String("front", front))
	}

	st.Joined = true
	s.frontProbe.Restart()
	s.cruiseProbe.Start()

	if !st.Ring.IsLeader {
		s.startElectionLocked(st)
	}
	return nil
}

// SignIn lets a new member in at the back of the ring. Only the leader accepts;
// it returns the newcomer's front neighbour.
func (s *PlatoonService) SignIn(ctx context.Context, newMember string) (string, error) {
	if newMember == "" {
		return "", apierrors.InvalidRequest("address is required", nil)
	}

	var front string
	err := s.store.Update(ctx, func(st *ring.State) error {
		if !st.Ring.IsLeader {
			return apierrors.NotLeader(st.Self.PlatoonAddress)
		}

		last := st.Ring.FrontAddress
		if last != "" {
			// the old last member now has the newcomer behind it
			if err := s.platoons.UpdateBack(ctx, last, newMember); err != nil {
				return apierrors.PeerUnreachable(last, "update_back", err)
			}
			front = last
		} else {
			front = st.Self.PlatoonAddress
		}

		s.updateFrontLocked(st, newMember)
		if st.Ring.BackAddress == "" {
			st.Ring.BackAddress = newMember
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("New member signed in",
		zap.String("member", newMember),
		zap.String("its_front", front))
	return front, nil
}

// UpdateBack replaces the back neighbour.
func (s *PlatoonService) UpdateBack(ctx context.Context, back string) error {
	return s.store.Update(ctx, func(st *ring.State) error {
		st.Ring.BackAddress = back
		return nil
	})
}

// UpdateFront replaces the front neighbour and resumes whatever a repair left pending.
func (s *PlatoonService) UpdateFront(ctx context.Context, front string) error {
	return s.store.Update(ctx, func(st *ring.State) error {
		s.updateFrontLocked(st, front)
		return nil
	})
}

func (s *PlatoonService) updateFrontLocked(st *ring.State, front string) {
	st.Ring.FrontAddress = front

	if st.Repair.WaitingForNewFront {
		st.Repair.WaitingForNewFront = false
		s.metrics.RecordRepair("closed")
		s.logger.Info("Ring closed", zap.String("front", front))

		if st.Repair.GapToClose {
			st.Repair.GapToClose = false
			leader, cruise := st.Ring.LeaderAddress, st.Self.CruiseAddress
			if leader != "" && cruise != "" {
				s.notifier.Go("close_gap", leader, func(ctx context.Context) error {
					return s.platoons.RequestCloseGap(ctx, leader, cruise)
				})
			}
		}
	}

	s.frontProbe.Restart()

	if st.Repair.StartElectionAfterRepair {
		st.Repair.StartElectionAfterRepair = false
		s.notifyRegistry("update_election_status", func(ctx context.Context) error {
			return s.registry.UpdateElectionStatus(ctx, true)
		})
		s.startElectionLocked(st)
	}
}

// NotifyLeave is sent by a front neighbour that leaves the platoon gracefully.
func (s *PlatoonService) NotifyLeave(ctx context.Context, newFront string, nowAlone bool) error {
	return s.store.Update(ctx, func(st *ring.State) error {
		leaving := st.Ring.FrontAddress

		switch {
		case nowAlone:
			st.Ring.BackAddress = ""
			s.becomeSoleMemberLocked(st)
		case !st.Ring.IsLeader && leaving == st.Ring.LeaderAddress:
			st.Repair.StartElectionAfterRepair = true
		}

		s.logger.Info("Front neighbour left the platoon",
			zap.String("left", leaving),
			zap.String("new_front", newFront),
			zap.Bool("now_alone", nowAlone))

		s.updateFrontLocked(st, newFront)
		return nil
	})
}

// RequestCloseGap asks this node, if it leads, to have its motion node close the gap
// in front of the given motion node.
func (s *PlatoonService) RequestCloseGap(ctx context.Context, requester string) error {
	return s.store.Update(ctx, func(st *ring.State) error {
		own := st.Ring.CruiseAddress
		if !st.Ring.IsLeader || own == "" {
			s.logger.Debug("Ignoring close gap request, not the leader", zap.String("requester", requester))
			return nil
		}
		s.notifier.Go("close_gap_leader", own, func(ctx context.Context) error {
			return s.cruises.CloseGapLeader(ctx, own, requester)
		})
		return nil
	})
}

// Leave removes this node from the ring, hands its neighbours to each other and
// shuts its motion node down. Every step is attempted; the first failure is returned.
func (s *PlatoonService) Leave(ctx context.Context) error {
	var (
		self            model.ElectionRecord
		front, back     string
		leader          string
		isLeader, alone bool
		joined          bool
	)

	err := s.store.Update(ctx, func(st *ring.State) error {
		self = st.Self
		front, back = st.Ring.FrontAddress, st.Ring.BackAddress
		leader, isLeader = st.Ring.LeaderAddress, st.Ring.IsLeader
		alone = st.Alone()
		joined = st.Joined

		st.Ring.FrontAddress, st.Ring.BackAddress = "", ""
		st.Joined = false
		return nil
	})
	if err != nil {
		return err
	}

	s.frontProbe.Stop()
	s.cruiseProbe.Stop()

	if !joined {
		return nil
	}

	s.logger.Info("Leaving the platoon",
		zap.String("front", front),
		zap.String("back", back),
		zap.Bool("leader", isLeader))

	if err := s.dashboard.RemoveTruck(ctx, self.PlatoonAddress); err != nil {
		s.logger.Warn("Failed to remove truck from dashboard", zap.Error(err))
	}

	newBackForFront, newFrontForBack := back, front
	nowAlone := front == back
	if nowAlone {
		newBackForFront, newFrontForBack = "", ""
	}

	var g errgroup.Group
	if front != "" {
		g.Go(func() error {
			return s.logged("update_back", front, s.platoons.UpdateBack(ctx, front, newBackForFront))
		})
	}
	if back != "" {
		g.Go(func() error {
			return s.logged("notify_leave", back, s.platoons.NotifyLeave(ctx, back, newFrontForBack, nowAlone))
		})
	}
	if !isLeader && leader != "" && self.CruiseAddress != "" {
		g.Go(func() error {
			return s.logged("close_gap", leader, s.platoons.RequestCloseGap(ctx, leader, self.CruiseAddress))
		})
	}
	if self.CruiseAddress != "" {
		g.Go(func() error {
			return s.logged("shutdown", self.CruiseAddress, s.cruises.Shutdown(ctx, self.CruiseAddress))
		})
	}
	if alone {
		g.Go(func() error {
			return s.logged("reset", s.registry.Address(), s.registry.Reset(ctx))
		})
	}
	return g.Wait()
}

// Status returns the inspection view of this node.
func (s *PlatoonService) Status() model.PlatoonStatus {
	st := s.store.Snapshot()
	return model.PlatoonStatus{
		Identity: model.Identity{Address: st.Self.PlatoonAddress, ProcessID: st.Self.ProcessID},
		Ring:     st.Ring,
		Repair:   st.Repair,
		Joined:   st.Joined,
	}
}

// Joined reports whether the node is part of a ring.
func (s *PlatoonService) Joined() bool {
	return s.store.Snapshot().Joined
}

// Stop halts the probers.
func (s *PlatoonService) Stop() {
	s.frontProbe.Stop()
	s.cruiseProbe.Stop()
}

// becomeSoleMemberLocked makes this node the leader of a one-truck platoon.
func (s *PlatoonService) becomeSoleMemberLocked(st *ring.State) {
	s.applyNewLeaderLocked(st, st.Self)

	records := []model.ElectionRecord{st.Self}
	s.notifyDashboard("set_list", func(ctx context.Context) error {
		return s.dashboard.SetList(ctx, records)
	})
	if own := st.Ring.CruiseAddress; own != "" {
		s.notifier.Go("set_followers", own, func(ctx context.Context) error {
			return s.cruises.SetFollowers(ctx, own, nil)
		})
	}
}

func (s *PlatoonService) notifyDashboard(name string, fn func(ctx context.Context) error) {
	s.notifier.Go(name, s.dashboard.Address(), fn)
}

func (s *PlatoonService) notifyRegistry(name string, fn func(ctx context.Context) error) {
	s.notifier.Go(name, s.registry.Address(), fn)
}

func (s *PlatoonService) logged(operation, peer string, err error) error {
	if err != nil {
		s.logger.Warn("Leave notification failed",
			zap.String("operation", operation),
			zap.String("peer", peer),
			zap.Error(err))
	}
	return err
}

func newElectionID() string {
	return uuid.New().String()
}
