// Package ring holds the topology of one coordination node behind its critical section.
//
// Every read and write goes through a weighted semaphore of size one, which hands the
// section out in FIFO order. Update is the only way to hold it across several fields;
// code running inside an Update callback works on the *State it was given and must not
// call back into the Store.
package ring

import (
	"context"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/model"
	"golang.org/x/sync/semaphore"
)

// State is everything the critical section guards.
type State struct {
	Self   model.ElectionRecord
	Ring   model.RingState
	Repair model.RepairState
	Joined bool
}

// BecomeLeader marks this node as leader. LeaderAddress is cleared.
func (st *State) BecomeLeader() {
	st.Ring.IsLeader = true
	st.Ring.LeaderAddress = ""
}

// FollowLeader records another node as leader and reports whether this node led before.
func (st *State) FollowLeader(address string) bool {
	wasLeader := st.Ring.IsLeader
	st.Ring.IsLeader = false
	st.Ring.LeaderAddress = address
	return wasLeader
}

// Alone reports whether this node has no neighbours.
func (st *State) Alone() bool {
	return st.Ring.FrontAddress == "" && st.Ring.BackAddress == ""
}

// Store is the topology of one coordination node.
type Store struct {
	sem   *semaphore.Weighted
	state State
}

// NewStore creates the store for the node with the given identity.
func NewStore(id model.Identity) *Store {
	return &Store{
		sem: semaphore.NewWeighted(1),
		state: State{
			Self: model.ElectionRecord{
				PlatoonAddress: id.Address,
				ProcessID:      id.ProcessID,
			},
		},
	}
}

// Update runs fn inside the critical section. The section is released on every exit path,
// including a panic in fn. It fails only if ctx ends while waiting.
func (s *Store) Update(ctx context.Context, fn func(st *State) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn(&s.state)
}

// Snapshot returns a copy of the guarded state.
func (s *Store) Snapshot() State {
	var out State
	s.Update(context.Background(), func(st *State) error {
		out = *st
		return nil
	})
	return out
}

// Self returns this node's election record.
func (s *Store) Self() model.ElectionRecord {
	return s.Snapshot().Self
}

// Cruise returns the co-located motion node, empty until attached.
func (s *Store) Cruise() string {
	return s.Snapshot().Ring.CruiseAddress
}
