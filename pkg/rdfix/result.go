package rdfix

import (
	"github.com/pkg/errors"

	"github.com/oisee/reachdef/pkg/rdstate"
)

// OpType is the half of an observation point: whether the snapshot was
// taken before or after the matching statement ran.
type OpType int

const (
	Before OpType = iota
	After
)

func (o OpType) String() string {
	if o == Before {
		return "before"
	}
	return "after"
}

// ObservationKey identifies one requested observation point.
type ObservationKey struct {
	InsAddr uint64
	Point   OpType
}

// Result is the mapping from observation point to the deep-copied state
// snapshot recorded there.
type Result struct {
	States map[ObservationKey]*rdstate.State
}

// newResult returns an empty Result.
func newResult() *Result {
	return &Result{States: make(map[ObservationKey]*rdstate.State)}
}

// One returns the sole recorded state, failing unless exactly one
// observation fired.
func (r *Result) One() (*rdstate.State, error) {
	if len(r.States) != 1 {
		return nil, errors.Errorf("rdfix: one_result requires exactly one observation, got %d", len(r.States))
	}
	for _, s := range r.States {
		return s, nil
	}
	panic("unreachable")
}

// At returns the state observed at (insAddr, point), if any.
func (r *Result) At(insAddr uint64, point OpType) (*rdstate.State, bool) {
	s, ok := r.States[ObservationKey{InsAddr: insAddr, Point: point}]
	return s, ok
}

// Downsize detaches the owning-driver back-pointer from every retained
// snapshot (§5), letting the driver be garbage-collected independently
// of results the caller keeps around.
func (r *Result) Downsize() {
	for _, s := range r.States {
		s.Downsize()
	}
}
