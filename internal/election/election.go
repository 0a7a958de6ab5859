// Package election implements the ring-traversal leader election arithmetic.
//
// The message circulates along front pointers, each node appending its record. When a
// node finds its own record already present the message has gone round once and the
// election concludes: the highest process id wins and the collected records are put
// in leader-first driving order.
package election

import "github.com/TorbenSp09/TruckPlatoonPub/internal/model"

// Result is the outcome of a concluded election.
type Result struct {
	Winner model.ElectionRecord
	// Members is every collected record, winner first, in driving order.
	Members []model.ElectionRecord
	// Followers holds the motion addresses of every member except the winner, in Members order.
	Followers []string
}

// Contains reports whether r is in records. All fields must match.
func Contains(records []model.ElectionRecord, r model.ElectionRecord) bool {
	for _, rec := range records {
		if rec == r {
			return true
		}
	}
	return false
}

// Append returns a copy of records with r added at the end.
func Append(records []model.ElectionRecord, r model.ElectionRecord) []model.ElectionRecord {
	out := make([]model.ElectionRecord, 0, len(records)+1)
	out = append(out, records...)
	return append(out, r)
}

// Winner returns the record with the highest process id; the first one wins a tie.
func Winner(records []model.ElectionRecord) (model.ElectionRecord, bool) {
	if len(records) == 0 {
		return model.ElectionRecord{}, false
	}
	best := records[0]
	for _, r := range records[1:] {
		if r.ProcessID > best.ProcessID {
			best = r
		}
	}
	return best, true
}

// Canonical reverses the traversal order and rotates it so that winner comes first.
// The input is not modified.
func Canonical(records []model.ElectionRecord, winner model.ElectionRecord) []model.ElectionRecord {
	n := len(records)
	reversed := make([]model.ElectionRecord, n)
	for i, r := range records {
		reversed[n-1-i] = r
	}

	start := 0
	for i, r := range reversed {
		if r == winner {
			start = i
			break
		}
	}

	out := make([]model.ElectionRecord, 0, n)
	out = append(out, reversed[start:]...)
	return append(out, reversed[:start]...)
}

// Followers lists the motion addresses of members other than the winner.
func Followers(members []model.ElectionRecord, winner model.ElectionRecord) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		if m.CruiseAddress == winner.CruiseAddress {
			continue
		}
		out = append(out, m.CruiseAddress)
	}
	return out
}

// Conclude computes the result for a message that has completed one traversal.
func Conclude(records []model.ElectionRecord) (Result, bool) {
	winner, ok := Winner(records)
	if !ok {
		return Result{}, false
	}
	members := Canonical(records, winner)
	return Result{
		Winner:    winner,
		Members:   members,
		Followers: Followers(members, winner),
	}, true
}
