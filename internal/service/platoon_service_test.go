package service

import (
	"context"
	"testing"
	"time"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/api"
	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatoonService_FirstTruckLeads(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 10)

	st := a.platoon.Status()
	assert.True(t, st.Joined)
	assert.True(t, st.Ring.IsLeader)
	assert.Empty(t, st.Ring.LeaderAddress)
	assert.Empty(t, st.Ring.FrontAddress)
	assert.Empty(t, st.Ring.BackAddress)
	assert.Equal(t, "cA", st.Ring.CruiseAddress)

	assert.True(t, a.cruise.IsLeader())
	assert.Equal(t, api.InitialSpeedResponse{Speed: 30, TargetSpeed: 30}, a.cruise.InitialSpeed())

	require.Eventually(t, func() bool { return len(net.monitor.Trucks()) == 1 }, waitFor, pollEvery)
	assert.True(t, net.monitor.Trucks()[0].IsLeader)
}

func TestPlatoonService_JoinFormsRingAndElectsHighestProcessID(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 10)
	b := net.join("B", 30)
	c := net.join("C", 20)

	assertClosedRing(t, a.platoon, b.platoon, c.platoon)

	require.Eventually(t, func() bool {
		return b.platoon.Status().Ring.IsLeader &&
			a.platoon.Status().Ring.LeaderAddress == "B" &&
			c.platoon.Status().Ring.LeaderAddress == "B"
	}, waitFor, pollEvery)
	assert.False(t, a.platoon.Status().Ring.IsLeader)
	assert.False(t, c.platoon.Status().Ring.IsLeader)

	require.Eventually(t, func() bool {
		return b.cruise.IsLeader() && !a.cruise.IsLeader() && len(b.cruise.Followers()) == 2
	}, waitFor, pollEvery)
	assert.ElementsMatch(t, []string{"cA", "cC"}, b.cruise.Followers())

	// later trucks start at the leader's speed
	assert.Equal(t, 30, c.cruise.Speed())

	require.Eventually(t, func() bool { return len(net.monitor.Trucks()) == 3 }, waitFor, pollEvery)
	first, err := net.monitor.Truck(1)
	require.NoError(t, err)
	assert.Equal(t, "B", first.PlatoonAddress)
	assert.True(t, first.IsLeader)

	require.Eventually(t, func() bool {
		st, err := net.registry.Status(context.Background())
		return err == nil && st.LeaderPlatoon == "B" && st.LeaderCruise == "cB"
	}, waitFor, pollEvery)
}

func TestPlatoonService_LeaderFailureRepairsRingAndReelects(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 10)
	net.join("B", 30)
	c := net.join("C", 20)

	net.kill("B")

	require.Eventually(t, func() bool {
		sa, sc := a.platoon.Status(), c.platoon.Status()
		return sa.Ring.FrontAddress == "C" && sc.Ring.FrontAddress == "A" &&
			sc.Ring.IsLeader && sa.Ring.LeaderAddress == "C"
	}, waitFor, pollEvery)
	assertClosedRing(t, a.platoon, c.platoon)

	sa := a.platoon.Status()
	assert.False(t, sa.Repair.WaitingForNewFront)
	assert.False(t, sa.Repair.StartElectionAfterRepair)

	require.Eventually(t, func() bool {
		return c.cruise.IsLeader() && len(c.cruise.Followers()) == 1
	}, waitFor, pollEvery)
	assert.Equal(t, []string{"cA"}, c.cruise.Followers())

	net.waitElectionDone()
	require.Eventually(t, func() bool {
		trucks := net.monitor.Trucks()
		return len(trucks) == 2 && trucks[0].PlatoonAddress == "C"
	}, waitFor, pollEvery)
}

func TestPlatoonService_FollowerFailureClosesGap(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)
	net.join("B", 10)
	c := net.join("C", 20)

	// C drives behind B
	require.Equal(t, "B", c.platoon.Status().Ring.FrontAddress)

	net.kill("B")

	require.Eventually(t, func() bool {
		return c.platoon.Status().Ring.FrontAddress == "A" && a.platoon.Status().Ring.BackAddress == "C"
	}, waitFor, pollEvery)
	assertClosedRing(t, a.platoon, c.platoon)

	st := c.platoon.Status()
	assert.False(t, st.Repair.GapToClose)
	assert.Equal(t, "A", st.Ring.LeaderAddress)

	require.Eventually(t, func() bool {
		m := c.cruise.State()
		return m.Gap > 0 && m.TargetSpeed == 40
	}, waitFor, pollEvery)
	assert.Equal(t, 30, a.cruise.State().TargetSpeed)
}

func TestPlatoonService_LeaderDetectsLastMemberFailure(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 40)
	b := net.join("B", 10)
	c := net.join("C", 20)
	d := net.join("D", 30)

	assertClosedRing(t, a.platoon, b.platoon, c.platoon, d.platoon)
	require.True(t, a.platoon.Status().Ring.IsLeader)
	// the leader's front is the last member of the convoy
	require.Equal(t, "D", a.platoon.Status().Ring.FrontAddress)
	require.Equal(t, "C", d.platoon.Status().Ring.FrontAddress)
	require.Eventually(t, func() bool { return len(net.monitor.Trucks()) == 4 }, waitFor, pollEvery)

	elections := net.count("continue_election")
	announcements := net.count("new_leader")
	gapRequests := net.count("request_close_gap") + net.count("close_gap_leader") + net.count("close_gap")

	net.kill("D")

	require.Eventually(t, func() bool {
		return a.platoon.Status().Ring.FrontAddress == "C" && c.platoon.Status().Ring.BackAddress == "A"
	}, waitFor, pollEvery)
	assertClosedRing(t, a.platoon, b.platoon, c.platoon)

	sa := a.platoon.Status()
	assert.True(t, sa.Ring.IsLeader)
	assert.Equal(t, "B", sa.Ring.BackAddress)
	assert.False(t, sa.Repair.WaitingForNewFront)
	assert.False(t, sa.Repair.GapToClose)
	assert.False(t, sa.Repair.StartElectionAfterRepair)
	assert.Equal(t, "A", b.platoon.Status().Ring.LeaderAddress)
	assert.Equal(t, "A", c.platoon.Status().Ring.LeaderAddress)

	// the walk started at the leader's back and was closed by C
	assert.GreaterOrEqual(t, net.count("check_back"), 2)

	require.Eventually(t, func() bool { return len(net.monitor.Trucks()) == 3 }, waitFor, pollEvery)

	assert.Equal(t, elections, net.count("continue_election"))
	assert.Equal(t, announcements, net.count("new_leader"))
	assert.Equal(t, gapRequests, net.count("request_close_gap")+net.count("close_gap_leader")+net.count("close_gap"))
	assert.Equal(t, 30, b.cruise.State().TargetSpeed)
	assert.Equal(t, 30, c.cruise.State().TargetSpeed)
}

func TestPlatoonService_SoleSurvivorBecomesLeader(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 10)
	b := net.join("B", 20)

	require.Eventually(t, func() bool { return a.platoon.Status().Ring.LeaderAddress == "B" }, waitFor, pollEvery)
	require.True(t, b.platoon.Status().Ring.IsLeader)

	net.kill("B")

	require.Eventually(t, func() bool { return a.platoon.Status().Ring.IsLeader }, waitFor, pollEvery)
	st := a.platoon.Status()
	assert.Empty(t, st.Ring.FrontAddress)
	assert.Empty(t, st.Ring.BackAddress)
	assert.Empty(t, st.Ring.LeaderAddress)
	assert.False(t, st.Repair.WaitingForNewFront)

	require.Eventually(t, func() bool { return a.cruise.IsLeader() }, waitFor, pollEvery)
	assert.Empty(t, a.cruise.Followers())

	require.Eventually(t, func() bool {
		trucks := net.monitor.Trucks()
		return len(trucks) == 1 && trucks[0].PlatoonAddress == "A" && trucks[0].IsLeader
	}, waitFor, pollEvery)
}

func TestPlatoonService_NewLeaderFromSelfIsNotForwarded(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)
	net.join("B", 10)

	before := a.platoon.Status()
	forwarded := net.count("new_leader")

	req := api.NewLeaderRequest{
		ElectionID:      "replayed",
		Winner:          model.ElectionRecord{PlatoonAddress: "B", CruiseAddress: "cB", ProcessID: 10},
		SenderProcessID: 30,
	}
	require.NoError(t, a.platoon.NewLeader(context.Background(), req))
	require.NoError(t, a.platoon.NewLeader(context.Background(), req))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, forwarded, net.count("new_leader"))
	assert.Equal(t, before.Ring, a.platoon.Status().Ring)
}

func TestPlatoonService_CheckBackFullCircleIsDropped(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)
	b := net.join("B", 10)
	c := net.join("C", 20)
	before := ringOf(t, a.platoon, b.platoon, c.platoon)

	// nobody has X behind it, so the walk comes back to the caller
	require.NoError(t, a.platoon.CheckBack(context.Background(), "X", "C"))

	require.Eventually(t, func() bool { return net.count("check_back") >= 2 }, waitFor, pollEvery)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, net.count("update_front"))
	assert.Equal(t, before, ringOf(t, a.platoon, b.platoon, c.platoon))
}

func TestPlatoonService_GracefulLeaveOfMiddleMember(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)
	b := net.join("B", 10)
	c := net.join("C", 20)

	require.NoError(t, b.platoon.Leave(context.Background()))

	assert.False(t, b.platoon.Joined())
	assertClosedRing(t, a.platoon, c.platoon)
	assert.Equal(t, "A", c.platoon.Status().Ring.LeaderAddress)
	assert.True(t, a.platoon.Status().Ring.IsLeader)

	net.mu.Lock()
	assert.True(t, net.shutdown["cB"])
	net.mu.Unlock()

	trucks := net.monitor.Trucks()
	require.Len(t, trucks, 2)
	assert.Equal(t, "A", trucks[0].PlatoonAddress)
}

func TestPlatoonService_LastMemberLeaveResetsRegistry(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)

	require.NoError(t, a.platoon.Leave(context.Background()))

	st, err := net.registry.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.RegistryState{}, st)
	assert.Empty(t, net.monitor.Trucks())
}

func TestPlatoonService_AddCruise(t *testing.T) {
	net := newFakeNet(t)
	a := net.join("A", 30)

	assert.NoError(t, a.platoon.AddCruise(context.Background(), "cA"))

	err := a.platoon.AddCruise(context.Background(), "cOther")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeProtocolViolation))

	err = a.platoon.AddCruise(context.Background(), "")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeInvalidRequest))
}

func TestPlatoonService_SignInRequiresLeader(t *testing.T) {
	net := newFakeNet(t)
	net.join("A", 30)
	b := net.join("B", 10)

	_, err := b.platoon.SignIn(context.Background(), "D")
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeNotLeader))
}

func TestPlatoonService_LostCruiseIsFatal(t *testing.T) {
	net := newFakeNet(t)
	net.join("A", 30)

	net.mu.Lock()
	net.dead["cA"] = true
	net.mu.Unlock()

	require.Eventually(t, func() bool {
		net.mu.Lock()
		defer net.mu.Unlock()
		return net.fatal["A"] != nil
	}, waitFor, pollEvery)

	net.mu.Lock()
	err := net.fatal["A"]
	net.mu.Unlock()
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeFatalLocalFailure))
}

func TestPlatoonService_RegisterRefusedWhileTruckWaiting(t *testing.T) {
	net := newFakeNet(t)
	_, err := net.registry.RegisterPlatoon(context.Background(), "W")
	require.NoError(t, err)

	p := NewPlatoonService(&PlatoonConfig{ProbeInterval: time.Hour, PeerTimeout: time.Second},
		model.Identity{Address: "X", ProcessID: 1},
		PlatoonDeps{
			Platoons:  net,
			Cruises:   net,
			Registry:  registryAdapter{net.registry},
			Dashboard: dashboardAdapter{net.monitor},
			Notifier:  syncNotifier{},
		}, net.logger)

	_, err = p.Register(context.Background())
	assert.True(t, apierrors.IsCode(err, apierrors.ErrCodeProtocolViolation))
}

func TestPlatoonService_RegisterFailsWhenStateCannotBeRecorded(t *testing.T) {
	net := newFakeNet(t)
	p := NewPlatoonService(&PlatoonConfig{ProbeInterval: time.Hour, PeerTimeout: time.Second},
		model.Identity{Address: "X", ProcessID: 1},
		PlatoonDeps{
			Platoons:  net,
			Cruises:   net,
			Registry:  registryAdapter{net.registry},
			Dashboard: dashboardAdapter{net.monitor},
			Notifier:  syncNotifier{},
		}, net.logger)

	held := make(chan struct{})
	release := make(chan struct{})
	go p.store.Update(context.Background(), func(st *ring.State) error {
		close(held)
		<-release
		return nil
	})
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Register(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
