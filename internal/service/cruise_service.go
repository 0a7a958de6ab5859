package service

import (
	"context"
	"sync"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/metrics"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CruiseConfig holds motion node timings and convoy constants
type CruiseConfig struct {
	config.CruiseConfig
	PeerTimeout time.Duration
}

// CruiseDeps are the collaborators of a motion node
type CruiseDeps struct {
	Platoons  PlatoonPeer
	Cruises   CruisePeer
	Registry  Registry
	Dashboard Dashboard
	Telemetry telemetry.Publisher
	Notifier  Notifier
	Metrics   *metrics.Metrics
	// OnFatal ends the process when the paired coordination node is gone.
	OnFatal func(err error)
	// OnShutdown is called once the coordination node asked this node to stop.
	OnShutdown func()
}

// CruiseService is the motion node: speed ramp, gap accounting and the leader's fan-out
// of speed and close-gap commands.
//
// Lock order is speedMu, gapMu, leaderMu. None of them is held across a peer call.
type CruiseService struct {
	cfg        *CruiseConfig
	address    string
	platoons   PlatoonPeer
	cruises    CruisePeer
	registry   Registry
	dashboard  Dashboard
	telemetry  telemetry.Publisher
	notifier   Notifier
	metrics    *metrics.Metrics
	onFatal    func(err error)
	onShutdown func()
	logger     *zap.Logger

	speedMu     sync.Mutex
	speed       int
	targetSpeed int

	gapMu         sync.Mutex
	gap           float64
	traveled      float64
	traveledFront float64
	// close-gap commands not yet turned into a manoeuvre
	pendingGaps int

	leaderMu  sync.RWMutex
	isLeader  bool
	followers []string

	platoonMu sync.RWMutex
	platoon   string
	memberID  int

	tick         *Prober
	report       *Prober
	platoonProbe *Prober
	closeGap     *Prober

	shutdownOnce sync.Once
}

// NewCruiseService creates a motion node listening on address
func NewCruiseService(cfg *CruiseConfig, address string, deps CruiseDeps, logger *zap.Logger) *CruiseService {
	logger = logger.With(zap.String("cruise", address))

	s := &CruiseService{
		cfg:        cfg,
		address:    address,
		platoons:   deps.Platoons,
		cruises:    deps.Cruises,
		registry:   deps.Registry,
		dashboard:  deps.Dashboard,
		telemetry:  deps.Telemetry,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		onFatal:    deps.OnFatal,
		onShutdown: deps.OnShutdown,
		logger:     logger,
	}
	if s.telemetry == nil {
		s.telemetry = telemetry.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewMetrics(nil)
	}
	if s.onFatal == nil {
		s.onFatal = func(err error) {
			logger.Fatal("Paired coordination node is gone, shutting down", zap.Error(err))
		}
	}
	if s.onShutdown == nil {
		s.onShutdown = func() {}
	}

	s.tick = NewProber("tick", cfg.TickInterval, func(context.Context) { s.Tick() }, logger)
	s.report = NewProber("report", cfg.ReportInterval, s.ReportSpeed, logger)
	s.platoonProbe = NewProber("platoon", cfg.ProbeInterval, s.CheckPlatoon, logger)
	s.closeGap = NewProber("close_gap", cfg.CloseGapInterval, func(context.Context) { s.checkCloseGap() }, logger)
	return s
}

// Register announces this motion node to the registry, pairs it with the waiting
// coordination node and picks the starting speed.
func (s *CruiseService) Register(ctx context.Context) (model.CruiseRegistration, error) {
	reg, ok, err := s.registry.RegisterCruise(ctx, s.address)
	if err != nil {
		return reg, apierrors.PeerUnreachable(s.registry.Address(), "register_cruise", err)
	}
	if !ok {
		return reg, apierrors.ProtocolViolation("registry refused the motion node: no coordination node is waiting, start one first")
	}

	s.platoonMu.Lock()
	s.platoon = reg.PlatoonAddress
	s.memberID = reg.MemberID
	s.platoonMu.Unlock()

	if reg.LeaderCruiseAddress == "" || reg.LeaderCruiseAddress == s.address {
		s.setLeader(true)
		s.setSpeeds(s.cfg.InitialSpeed, s.cfg.InitialSpeed)
	} else {
		initial, err := s.cruises.InitialSpeed(ctx, reg.LeaderCruiseAddress)
		if err != nil {
			return reg, apierrors.PeerUnreachable(reg.LeaderCruiseAddress, "initial_speed", err)
		}
		s.setSpeeds(initial.Speed, initial.TargetSpeed)
	}

	s.logger.Info("Registered with registry",
		zap.Int("member_id", reg.MemberID),
		zap.String("platoon", reg.PlatoonAddress),
		zap.String("leader_cruise", reg.LeaderCruiseAddress))
	return reg, nil
}

// Attach hands this motion node to its coordination node, which joins the platoon,
// and starts the periodic loops.
func (s *CruiseService) Attach(ctx context.Context) error {
	platoon := s.Platoon()
	if platoon == "" {
		return apierrors.ProtocolViolation("motion node is not registered")
	}
	if err := s.platoons.AddCruise(ctx, platoon, s.address); err != nil {
		return err
	}
	s.Start()
	return nil
}

// Start launches the ramp, report and liveness loops.
func (s *CruiseService) Start() {
	s.tick.Start()
	s.report.Start()
	s.platoonProbe.Start()
}

// Stop halts every loop.
func (s *CruiseService) Stop() {
	s.tick.Stop()
	s.report.Stop()
	s.platoonProbe.Stop()
	s.closeGap.Stop()
}

// Tick advances the speed ramp and the gap accounting by one step.
func (s *CruiseService) Tick() {
	s.speedMu.Lock()
	switch {
	case s.speed < s.targetSpeed:
		s.speed += rampStep(s.speed)
	case s.speed > s.targetSpeed:
		s.speed--
	}
	speed, target := s.speed, s.targetSpeed
	s.speedMu.Unlock()

	closed, gap := s.advanceGap(speed, target)
	if closed {
		s.metrics.RecordGapClosed()
		s.logger.Info("Gap closed, resuming following distance")
		s.SlowDown(s.cfg.GapBoost)
	}
	s.metrics.SetMotion(speed, target, gap)
}

// rampStep is the acceleration for one tick at the given speed.
func rampStep(speed int) int {
	switch {
	case speed < 5:
		return 1
	case speed < 20:
		return 3
	case speed < 50:
		return 2
	default:
		return 1
	}
}

// advanceGap accumulates the distance driven by this truck and the one in front.
// It reports whether the gap just closed and returns the gap left open.
func (s *CruiseService) advanceGap(speed, target int) (bool, float64) {
	s.gapMu.Lock()
	defer s.gapMu.Unlock()

	if s.gap == 0 {
		return false, 0
	}

	s.traveled += float64(speed) / 3600
	s.traveledFront += float64(target-s.cfg.GapBoost) / 3600
	remaining := s.gap + s.traveledFront - s.traveled
	if remaining > s.cfg.CloseThreshold {
		return false, s.gap
	}

	s.gap, s.traveled, s.traveledFront = 0, 0, 0
	return true, 0
}

// SpeedUp raises the target speed by delta. Above the maximum speed the request is
// rejected unless a gap is being closed. It returns the current speed.
func (s *CruiseService) SpeedUp(delta int) int {
	s.speedMu.Lock()
	s.gapMu.Lock()
	gapOpen := s.gap != 0
	s.gapMu.Unlock()

	accepted := delta > 0 && (s.targetSpeed+delta <= s.cfg.MaxSpeed || gapOpen)
	if accepted {
		s.targetSpeed += delta
	}
	speed, target := s.speed, s.targetSpeed
	s.speedMu.Unlock()

	if !accepted {
		s.logger.Debug("Speed up rejected", zap.Int("delta", delta), zap.Int("target_speed", target))
		return speed
	}

	s.logger.Debug("Speed up", zap.Int("delta", delta), zap.Int("target_speed", target))
	s.fanOut("speed_up", func(ctx context.Context, follower string) error {
		_, err := s.cruises.SpeedUp(ctx, follower, delta)
		return err
	})
	return speed
}

// SlowDown lowers the target speed by delta, never below zero. It returns the current speed.
func (s *CruiseService) SlowDown(delta int) int {
	s.speedMu.Lock()
	accepted := delta > 0 && s.targetSpeed-delta >= 0
	if accepted {
		s.targetSpeed -= delta
	}
	speed, target := s.speed, s.targetSpeed
	s.speedMu.Unlock()

	if !accepted {
		s.logger.Debug("Slow down rejected", zap.Int("delta", delta), zap.Int("target_speed", target))
		return speed
	}

	s.logger.Debug("Slow down", zap.Int("delta", delta), zap.Int("target_speed", target))
	s.fanOut("slow_down", func(ctx context.Context, follower string) error {
		_, err := s.cruises.SlowDown(ctx, follower, delta)
		return err
	})
	return speed
}

// StopTruck brings speed and target speed to zero at once.
func (s *CruiseService) StopTruck() {
	s.fanOut("stop", func(ctx context.Context, follower string) error {
		return s.cruises.Stop(ctx, follower)
	})
	s.setSpeeds(0, 0)
	s.logger.Info("Stopped")
}

// Speed returns the current speed.
func (s *CruiseService) Speed() int {
	s.speedMu.Lock()
	defer s.speedMu.Unlock()
	return s.speed
}

// InitialSpeed returns the speed pair a newly joining motion node starts with.
func (s *CruiseService) InitialSpeed() api.InitialSpeedResponse {
	s.speedMu.Lock()
	defer s.speedMu.Unlock()
	return api.InitialSpeedResponse{Speed: s.speed, TargetSpeed: s.targetSpeed}
}

// IsLeader reports whether this motion node leads the convoy.
func (s *CruiseService) IsLeader() bool {
	s.leaderMu.RLock()
	defer s.leaderMu.RUnlock()
	return s.isLeader
}

// SetLeader changes the role. Losing it discards the follower list.
func (s *CruiseService) SetLeader(leader bool) {
	s.setLeader(leader)
	s.logger.Info("Leader role changed", zap.Bool("leader", leader))
}

func (s *CruiseService) setLeader(leader bool) {
	s.leaderMu.Lock()
	s.isLeader = leader
	if !leader {
		s.followers = nil
	}
	s.leaderMu.Unlock()
	s.metrics.SetLeader(leader)

	if leader {
		// nobody drives ahead of the leader
		s.gapMu.Lock()
		s.pendingGaps = 0
		s.closeGap.Stop()
		s.gapMu.Unlock()
	}
}

// SetFollowers replaces the follower list in convoy order.
func (s *CruiseService) SetFollowers(followers []string) {
	s.leaderMu.Lock()
	s.followers = append([]string(nil), followers...)
	s.leaderMu.Unlock()
	s.logger.Info("Follower list updated", zap.Strings("followers", followers))
}

// Followers returns a copy of the follower list.
func (s *CruiseService) Followers() []string {
	s.leaderMu.RLock()
	defer s.leaderMu.RUnlock()
	return append([]string(nil), s.followers...)
}

// Platoon returns the paired coordination node.
func (s *CruiseService) Platoon() string {
	s.platoonMu.RLock()
	defer s.platoonMu.RUnlock()
	return s.platoon
}

// Address returns this node's address.
func (s *CruiseService) Address() string {
	return s.address
}

// State returns a snapshot of the motion state.
func (s *CruiseService) State() model.MotionState {
	s.speedMu.Lock()
	s.gapMu.Lock()
	state := model.MotionState{
		Speed:                 s.speed,
		TargetSpeed:           s.targetSpeed,
		Gap:                   s.gap,
		TraveledDistance:      s.traveled,
		TraveledDistanceFront: s.traveledFront,
	}
	s.gapMu.Unlock()
	s.speedMu.Unlock()

	s.leaderMu.RLock()
	state.IsLeader = s.isLeader
	state.FollowerAddresses = append([]string(nil), s.followers...)
	s.leaderMu.RUnlock()
	return state
}

// Status returns the inspection view of this node.
func (s *CruiseService) Status() model.CruiseStatus {
	return model.CruiseStatus{
		Address:        s.address,
		PlatoonAddress: s.Platoon(),
		Motion:         s.State(),
	}
}

// Shutdown stops the loops and hands control back to the process. Repeated calls are ignored.
func (s *CruiseService) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutdown requested by coordination node")
		s.Stop()
		s.onShutdown()
	})
}

// ReportSpeed sends the current speed to the dashboard and the telemetry broker.
func (s *CruiseService) ReportSpeed(ctx context.Context) {
	state := s.State()

	reportCtx, cancel := context.WithTimeout(ctx, s.cfg.PeerTimeout)
	defer cancel()

	if err := s.dashboard.SetSpeed(reportCtx, s.address, state.Speed); err != nil {
		s.logger.Debug("Speed report failed", zap.Error(err))
	}
	if err := s.telemetry.PublishSpeed(reportCtx, s.address, state); err != nil {
		s.logger.Debug("Speed telemetry failed", zap.Error(err))
	}
}

// CheckPlatoon probes the paired coordination node. Losing it is fatal for this node.
func (s *CruiseService) CheckPlatoon(ctx context.Context) {
	platoon := s.Platoon()
	if platoon == "" {
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.PeerTimeout)
	err := s.platoons.HealthCheck(probeCtx, platoon)
	cancel()
	if err == nil || ctx.Err() != nil {
		return
	}

	s.metrics.RecordProbeFailure("platoon")
	s.platoonProbe.Stop()
	s.onFatal(apierrors.FatalLocalFailure(platoon, err))
}

func (s *CruiseService) setSpeeds(speed, target int) {
	s.speedMu.Lock()
	s.speed, s.targetSpeed = speed, target
	s.speedMu.Unlock()
}

// fanOut repeats a command on every follower when this node leads. Followers that
// cannot be reached are pruned.
func (s *CruiseService) fanOut(operation string, call func(ctx context.Context, follower string) error) {
	s.leaderMu.RLock()
	if !s.isLeader || len(s.followers) == 0 {
		s.leaderMu.RUnlock()
		return
	}
	followers := append([]string(nil), s.followers...)
	s.leaderMu.RUnlock()

	s.notifier.Go(operation, "followers", func(ctx context.Context) error {
		s.callFollowers(ctx, operation, followers, call)
		return nil
	})
}

// callFollowers calls every follower concurrently and prunes the unreachable ones.
func (s *CruiseService) callFollowers(ctx context.Context, operation string, followers []string, call func(ctx context.Context, follower string) error) {
	failed := make([]bool, len(followers))

	var g errgroup.Group
	for i, follower := range followers {
		i, follower := i, follower
		g.Go(func() error {
			if err := call(ctx, follower); err != nil {
				s.logger.Warn("Follower unreachable, pruning it",
					zap.String("operation", operation),
					zap.String("follower", follower),
					zap.Error(err))
				failed[i] = true
			}
			return nil
		})
	}
	g.Wait()

	var gone []string
	for i, f := range failed {
		if f {
			gone = append(gone, followers[i])
		}
	}
	if len(gone) > 0 {
		s.pruneFollowers(gone)
	}
}

func (s *CruiseService) pruneFollowers(gone []string) {
	s.leaderMu.Lock()
	defer s.leaderMu.Unlock()

	kept := s.followers[:0]
	for _, f := range s.followers {
		if !contains(gone, f) {
			kept = append(kept, f)
		}
	}
	s.followers = kept
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
