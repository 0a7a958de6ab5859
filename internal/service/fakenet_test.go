package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/config"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/store"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/util/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errDead = errors.New("connection refused")

const (
	waitFor   = 3 * time.Second
	pollEvery = 10 * time.Millisecond
)

// fakeNet routes peer calls between in-process nodes. Killed addresses answer with errors.
type fakeNet struct {
	t      *testing.T
	logger *zap.Logger
	pool   *workerpool.Pool

	registry *RegistryService
	monitor  *MonitorService

	mu       sync.Mutex
	platoons map[string]*PlatoonService
	cruises  map[string]*CruiseService
	dead     map[string]bool
	calls    map[string]int
	fatal    map[string]error
	shutdown map[string]bool
}

type truck struct {
	platoon *PlatoonService
	cruise  *CruiseService
}

func newFakeNet(t *testing.T) *fakeNet {
	logger := zap.NewNop()
	n := &fakeNet{
		t:        t,
		logger:   logger,
		registry: NewRegistryService(store.NewMemoryStore(), logger),
		platoons: make(map[string]*PlatoonService),
		cruises:  make(map[string]*CruiseService),
		dead:     make(map[string]bool),
		calls:    make(map[string]int),
		fatal:    make(map[string]error),
		shutdown: make(map[string]bool),
	}
	n.monitor = NewMonitorService(n, logger)
	n.pool = workerpool.New(&workerpool.Config{
		Name:        "fakenet",
		MaxWorkers:  16,
		QueueSize:   1024,
		TaskTimeout: time.Second,
		Logger:      logger,
	})

	t.Cleanup(func() {
		n.mu.Lock()
		for _, p := range n.platoons {
			p.Stop()
		}
		for _, c := range n.cruises {
			c.Stop()
		}
		n.mu.Unlock()
		n.pool.Stop(time.Second)
	})
	return n
}

func testCruiseConfig() *CruiseConfig {
	return &CruiseConfig{
		CruiseConfig: config.CruiseConfig{
			TickInterval:     time.Hour,
			ReportInterval:   time.Hour,
			ProbeInterval:    time.Hour,
			CloseGapInterval: 5 * time.Millisecond,
			MaxSpeed:         80,
			InitialSpeed:     30,
			GapBoost:         10,
			ExpectedDistance: 0.02,
			TruckLength:      0.02,
			CloseThreshold:   0.025,
		},
		PeerTimeout: 200 * time.Millisecond,
	}
}

// join starts a truck and waits until its election has finished.
func (n *fakeNet) join(name string, pid int64) *truck {
	n.t.Helper()
	ctx := context.Background()
	cruiseAddr := "c" + name

	p := NewPlatoonService(&PlatoonConfig{ProbeInterval: 20 * time.Millisecond, PeerTimeout: 200 * time.Millisecond},
		model.Identity{Address: name, ProcessID: pid},
		PlatoonDeps{
			Platoons:  n,
			Cruises:   n,
			Registry:  registryAdapter{n.registry},
			Dashboard: dashboardAdapter{n.monitor},
			Notifier:  n.pool,
			OnFatal:   func(err error) { n.recordFatal(name, err) },
		}, n.logger)

	c := NewCruiseService(testCruiseConfig(), cruiseAddr, CruiseDeps{
		Platoons:   n,
		Cruises:    n,
		Registry:   registryAdapter{n.registry},
		Dashboard:  dashboardAdapter{n.monitor},
		Notifier:   n.pool,
		OnFatal:    func(err error) { n.recordFatal(cruiseAddr, err) },
		OnShutdown: func() { n.recordShutdown(cruiseAddr) },
	}, n.logger)

	n.mu.Lock()
	n.platoons[name] = p
	n.cruises[cruiseAddr] = c
	n.mu.Unlock()

	_, err := p.Register(ctx)
	require.NoError(n.t, err)
	_, err = c.Register(ctx)
	require.NoError(n.t, err)
	require.NoError(n.t, c.Attach(ctx))

	n.waitElectionDone()
	return &truck{platoon: p, cruise: c}
}

func (n *fakeNet) waitElectionDone() {
	n.t.Helper()
	require.Eventually(n.t, func() bool {
		st, err := n.registry.Status(context.Background())
		return err == nil && !st.RunningElection && st.WaitingPlatoon == ""
	}, waitFor, pollEvery)
}

// kill makes a truck unreachable and stops its loops.
func (n *fakeNet) kill(name string) {
	n.mu.Lock()
	n.dead[name] = true
	n.dead["c"+name] = true
	p, c := n.platoons[name], n.cruises["c"+name]
	n.mu.Unlock()
	p.Stop()
	c.Stop()
}

func (n *fakeNet) recordFatal(addr string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fatal[addr] = err
}

func (n *fakeNet) recordShutdown(addr string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shutdown[addr] = true
}

func (n *fakeNet) count(op string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[op]
}

func (n *fakeNet) platoon(addr, op string) (*PlatoonService, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[op]++
	p, ok := n.platoons[addr]
	if !ok || n.dead[addr] {
		return nil, apierrors.PeerUnreachable(addr, op, errDead)
	}
	return p, nil
}

func (n *fakeNet) cruise(addr, op string) (*CruiseService, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[op]++
	c, ok := n.cruises[addr]
	if !ok || n.dead[addr] {
		return nil, apierrors.PeerUnreachable(addr, op, errDead)
	}
	return c, nil
}

// PlatoonPeer

func (n *fakeNet) HealthCheck(ctx context.Context, address string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, isPlatoon := n.platoons[address]
	_, isCruise := n.cruises[address]
	if n.dead[address] || (!isPlatoon && !isCruise) {
		return apierrors.PeerUnreachable(address, "health_check", errDead)
	}
	return nil
}

func (n *fakeNet) CheckBack(ctx context.Context, address, unreachable, caller string) error {
	p, err := n.platoon(address, "check_back")
	if err != nil {
		return err
	}
	return p.CheckBack(ctx, unreachable, caller)
}

func (n *fakeNet) UpdateFront(ctx context.Context, address, front string) error {
	p, err := n.platoon(address, "update_front")
	if err != nil {
		return err
	}
	return p.UpdateFront(ctx, front)
}

func (n *fakeNet) UpdateBack(ctx context.Context, address, back string) error {
	p, err := n.platoon(address, "update_back")
	if err != nil {
		return err
	}
	return p.UpdateBack(ctx, back)
}

func (n *fakeNet) NotifyLeave(ctx context.Context, address, newFront string, nowAlone bool) error {
	p, err := n.platoon(address, "notify_leave")
	if err != nil {
		return err
	}
	return p.NotifyLeave(ctx, newFront, nowAlone)
}

func (n *fakeNet) ContinueElection(ctx context.Context, address string, req api.ContinueElectionRequest) error {
	p, err := n.platoon(address, "continue_election")
	if err != nil {
		return err
	}
	return p.ContinueElection(ctx, req)
}

func (n *fakeNet) NewLeader(ctx context.Context, address string, req api.NewLeaderRequest) error {
	p, err := n.platoon(address, "new_leader")
	if err != nil {
		return err
	}
	return p.NewLeader(ctx, req)
}

func (n *fakeNet) SignIn(ctx context.Context, address, newMember string) (string, error) {
	p, err := n.platoon(address, "sign_in")
	if err != nil {
		return "", err
	}
	return p.SignIn(ctx, newMember)
}

func (n *fakeNet) AddCruise(ctx context.Context, address, cruise string) error {
	p, err := n.platoon(address, "add_cruise")
	if err != nil {
		return err
	}
	return p.AddCruise(ctx, cruise)
}

func (n *fakeNet) RequestCloseGap(ctx context.Context, address, cruise string) error {
	p, err := n.platoon(address, "request_close_gap")
	if err != nil {
		return err
	}
	return p.RequestCloseGap(ctx, cruise)
}

// CruisePeer

func (n *fakeNet) SetLeader(ctx context.Context, address string, leader bool) error {
	c, err := n.cruise(address, "set_leader")
	if err != nil {
		return err
	}
	c.SetLeader(leader)
	return nil
}

func (n *fakeNet) SetFollowers(ctx context.Context, address string, followers []string) error {
	c, err := n.cruise(address, "set_followers")
	if err != nil {
		return err
	}
	c.SetFollowers(followers)
	return nil
}

func (n *fakeNet) CloseGapLeader(ctx context.Context, address, requester string) error {
	c, err := n.cruise(address, "close_gap_leader")
	if err != nil {
		return err
	}
	c.CloseGapLeader(requester)
	return nil
}

func (n *fakeNet) CloseGap(ctx context.Context, address string) error {
	c, err := n.cruise(address, "close_gap")
	if err != nil {
		return err
	}
	c.CloseGap()
	return nil
}

func (n *fakeNet) SpeedUp(ctx context.Context, address string, delta int) (int, error) {
	c, err := n.cruise(address, "speed_up")
	if err != nil {
		return 0, err
	}
	return c.SpeedUp(delta), nil
}

func (n *fakeNet) SlowDown(ctx context.Context, address string, delta int) (int, error) {
	c, err := n.cruise(address, "slow_down")
	if err != nil {
		return 0, err
	}
	return c.SlowDown(delta), nil
}

func (n *fakeNet) Stop(ctx context.Context, address string) error {
	c, err := n.cruise(address, "stop")
	if err != nil {
		return err
	}
	c.StopTruck()
	return nil
}

func (n *fakeNet) InitialSpeed(ctx context.Context, address string) (api.InitialSpeedResponse, error) {
	c, err := n.cruise(address, "initial_speed")
	if err != nil {
		return api.InitialSpeedResponse{}, err
	}
	return c.InitialSpeed(), nil
}

func (n *fakeNet) Shutdown(ctx context.Context, address string) error {
	c, err := n.cruise(address, "shutdown")
	if err != nil {
		return err
	}
	c.Shutdown()
	return nil
}

// registryAdapter exposes a RegistryService through the Registry interface the way the
// HTTP client does: a refused registration is ok=false.
type registryAdapter struct {
	svc *RegistryService
}

func (a registryAdapter) RegisterPlatoon(ctx context.Context, address string) (model.PlatoonRegistration, bool, error) {
	reg, err := a.svc.RegisterPlatoon(ctx, address)
	if apierrors.IsCode(err, apierrors.ErrCodeProtocolViolation) {
		return reg, false, nil
	}
	return reg, err == nil, err
}

func (a registryAdapter) RegisterCruise(ctx context.Context, address string) (model.CruiseRegistration, bool, error) {
	reg, err := a.svc.RegisterCruise(ctx, address)
	if apierrors.IsCode(err, apierrors.ErrCodeProtocolViolation) {
		return reg, false, nil
	}
	return reg, err == nil, err
}

func (a registryAdapter) SetLeader(ctx context.Context, platoon, cruise string) error {
	return a.svc.SetLeader(ctx, platoon, cruise)
}

func (a registryAdapter) UpdateElectionStatus(ctx context.Context, running bool) error {
	return a.svc.UpdateElectionStatus(ctx, running)
}

func (a registryAdapter) Reset(ctx context.Context) error {
	return a.svc.Reset(ctx)
}

func (a registryAdapter) Address() string { return "registry" }

type dashboardAdapter struct {
	svc *MonitorService
}

func (a dashboardAdapter) SetList(ctx context.Context, records []model.ElectionRecord) error {
	a.svc.SetList(records)
	return nil
}

func (a dashboardAdapter) SetSpeed(ctx context.Context, cruise string, speed int) error {
	a.svc.SetSpeed(cruise, speed)
	return nil
}

func (a dashboardAdapter) RemoveTruck(ctx context.Context, platoon string) error {
	a.svc.RemoveTruck(platoon)
	return nil
}

func (a dashboardAdapter) Address() string { return "monitor" }

// syncNotifier runs notifications inline.
type syncNotifier struct{}

func (syncNotifier) Go(name, peer string, fn func(ctx context.Context) error) {
	_ = fn(context.Background())
}

func ringOf(t *testing.T, nodes ...*PlatoonService) map[string]model.RingState {
	t.Helper()
	out := make(map[string]model.RingState, len(nodes))
	for _, p := range nodes {
		st := p.Status()
		out[st.Identity.Address] = st.Ring
	}
	return out
}

func assertClosedRing(t *testing.T, nodes ...*PlatoonService) {
	t.Helper()
	ring := ringOf(t, nodes...)
	for addr, st := range ring {
		front, ok := ring[st.FrontAddress]
		if assert.True(t, ok, "front of %s is %q", addr, st.FrontAddress) {
			assert.Equal(t, addr, front.BackAddress, "back of %s", st.FrontAddress)
		}
	}

	start := nodes[0].Status().Identity.Address
	cur := start
	for i := 0; i < len(nodes); i++ {
		cur = ring[cur].FrontAddress
	}
	assert.Equal(t, start, cur, "front traversal of %d hops returns to start", len(nodes))
}
