package election

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(n int, pid int64) model.ElectionRecord {
	return model.ElectionRecord{
		PlatoonAddress: fmt.Sprintf("localhost:90%02d", n),
		CruiseAddress:  fmt.Sprintf("localhost:91%02d", n),
		ProcessID:      pid,
	}
}

func TestContains(t *testing.T) {
	a, b := rec(1, 10), rec(2, 20)
	records := []model.ElectionRecord{a}

	assert.True(t, Contains(records, a))
	assert.False(t, Contains(records, b))

	// same pid, different address is a different member
	imposter := a
	imposter.CruiseAddress = "localhost:9999"
	assert.False(t, Contains(records, imposter))
}

func TestAppend_DoesNotAlias(t *testing.T) {
	base := make([]model.ElectionRecord, 1, 4)
	base[0] = rec(1, 10)

	x := Append(base, rec(2, 20))
	y := Append(base, rec(3, 30))

	assert.Equal(t, rec(2, 20), x[1])
	assert.Equal(t, rec(3, 30), y[1])
	assert.Len(t, base, 1)
}

func TestWinner(t *testing.T) {
	_, ok := Winner(nil)
	assert.False(t, ok)

	w, ok := Winner([]model.ElectionRecord{rec(1, 10), rec(2, 50), rec(3, 30)})
	require.True(t, ok)
	assert.Equal(t, rec(2, 50), w)
}

func TestConclude_LeaderFirstDrivingOrder(t *testing.T) {
	// ring L(1) <- 2 <- 3 <- 4, started at 3, travelling along front pointers: 3, 2, L, 4
	L, two, three, four := rec(1, 100), rec(2, 20), rec(3, 30), rec(4, 40)
	result, ok := Conclude([]model.ElectionRecord{three, two, L, four})
	require.True(t, ok)

	assert.Equal(t, L, result.Winner)
	assert.Equal(t, []model.ElectionRecord{L, two, three, four}, result.Members)
	assert.Equal(t, []string{two.CruiseAddress, three.CruiseAddress, four.CruiseAddress}, result.Followers)
}

func TestConclude_WinnerAtTheBack(t *testing.T) {
	// a newcomer with the highest pid joined behind 3
	L, two, three, w := rec(1, 10), rec(2, 20), rec(3, 30), rec(4, 99)
	result, ok := Conclude([]model.ElectionRecord{w, three, two, L})
	require.True(t, ok)

	assert.Equal(t, []model.ElectionRecord{w, L, two, three}, result.Members)
	assert.Equal(t, []string{L.CruiseAddress, two.CruiseAddress, three.CruiseAddress}, result.Followers)
}

func TestConclude_SingleMember(t *testing.T) {
	only := rec(1, 7)
	result, ok := Conclude([]model.ElectionRecord{only})
	require.True(t, ok)

	assert.Equal(t, only, result.Winner)
	assert.Equal(t, []model.ElectionRecord{only}, result.Members)
	assert.Empty(t, result.Followers)
}

func TestConclude_MaxProcessIDAlwaysWinsAndLeads(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(8)
		records := make([]model.ElectionRecord, n)
		var max int64 = -1
		for i := range records {
			pid := rng.Int63n(1 << 20)
			records[i] = rec(i, pid)
			if pid > max {
				max = pid
			}
		}

		result, ok := Conclude(records)
		require.True(t, ok)
		assert.Equal(t, max, result.Winner.ProcessID)
		assert.Equal(t, result.Winner, result.Members[0])
		assert.Len(t, result.Members, n)
		assert.Len(t, result.Followers, n-1)
		assert.NotContains(t, result.Followers, result.Winner.CruiseAddress)
	}
}
