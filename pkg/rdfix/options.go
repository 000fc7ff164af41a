package rdfix

import (
	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/pkg/rdengine"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdstate"
)

// defaultMaxIterations is the per-node iteration cap applied when Options
// doesn't override it (§4.5: "max_iterations per node (default 3)").
const defaultMaxIterations = 3

// Options configures a FixpointDriver.
type Options struct {
	Arch            rdir.Architecture
	CallingConv     *rdir.CallingConvention
	Loader          rdir.Loader
	FunctionHandler rdengine.FunctionHandler
	Log             *rdlog.Logger
	FailFast        bool

	// MaxIterations bounds how many times any single block is
	// reprocessed before the driver stops propagating its changes
	// further (termination guarantee independent of lattice height).
	MaxIterations int
	// TrackTmps enables use-recording for temporaries.
	TrackTmps bool
	// ObservationPoints names the (ins_addr, before/after) pairs whose
	// state snapshots should be captured into the Result.
	ObservationPoints []ObservationKey

	// Seed, if set, is deep-copied to become the entry block's in-state
	// instead of constructing a fresh one.
	Seed *rdstate.State
	// InitFunc, when true and no Seed is set, seeds the entry state via
	// State.InitFunc using Arch/CallingConv/Loader and the target
	// function's address.
	InitFunc bool
}

func (o Options) maxIterations() int {
	if o.MaxIterations <= 0 {
		return defaultMaxIterations
	}
	return o.MaxIterations
}

func (o Options) wantsPoint(insAddr uint64, point OpType) bool {
	for _, k := range o.ObservationPoints {
		if k.InsAddr == insAddr && k.Point == point {
			return true
		}
	}
	return false
}
