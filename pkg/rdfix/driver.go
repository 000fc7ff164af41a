// Package rdfix implements FixpointDriver, the forward worklist solver
// that drives a TransferEngine over a block graph to a fixpoint bounded
// by a per-node iteration cap (§4.5).
package rdfix

import (
	"github.com/willf/bitset"

	"github.com/oisee/reachdef/pkg/rdengine"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdstate"
)

// FixpointDriver runs a forward, may-dataflow fixpoint computation over a
// Target's block graph.
type FixpointDriver struct {
	opts Options
}

// NewDriver builds a FixpointDriver.
func NewDriver(opts Options) *FixpointDriver {
	return &FixpointDriver{opts: opts}
}

// Run analyses target to a fixpoint (or until the per-block iteration cap
// is reached) and returns the observed-state Result.
func (d *FixpointDriver) Run(target *Target) (*Result, error) {
	graph := target.Graph()
	blocks := graph.Blocks()
	if len(blocks) == 0 {
		return newResult(), nil
	}

	index := make(map[rdir.BlockID]uint, len(blocks))
	for i, b := range blocks {
		index[b] = uint(i)
	}
	entry := graph.Entry()

	initial, err := d.initialState(target)
	if err != nil {
		return nil, err
	}

	outStates := make(map[rdir.BlockID]*rdstate.State, len(blocks))
	visits := make(map[rdir.BlockID]int, len(blocks))
	result := newResult()

	dirty := new(bitset.BitSet)
	dirty.Set(index[entry])

	for {
		i, ok := dirty.NextSet(0)
		if !ok {
			break
		}
		dirty.Clear(i)
		block := blocks[i]

		var inState *rdstate.State
		if block == entry {
			inState = initial.Copy()
		} else {
			inState = d.mergePreds(graph, block, outStates)
		}
		// Tag the state with this driver before it's threaded through the
		// engine, so every snapshot an Observer takes mid-block already
		// carries the back-reference Downsize later clears.
		inState.SetOwner(d)

		obs := &blockObserver{opts: d.opts, result: result, dialect: graph.Dialect(block)}
		var outState *rdstate.State
		switch graph.Dialect(block) {
		case rdir.DialectVEX:
			vb := graph.VEXBlock(block)
			obs.vexBlock = vb
			eng := rdengine.NewVEXEngine(d.engineOptions(obs))
			outState, err = eng.ProcessBlock(vb, inState)
		case rdir.DialectAIL:
			ab := graph.AILBlock(block)
			obs.ailBlock = ab
			eng := rdengine.NewAILEngine(d.engineOptions(obs))
			outState, err = eng.ProcessBlock(ab, inState)
		}
		if err != nil {
			return nil, err
		}

		visits[block]++
		prev, existed := outStates[block]
		changed := !existed || !prev.Equal(outState)
		outStates[block] = outState

		if !changed {
			continue
		}
		if visits[block] >= d.opts.maxIterations() {
			d.opts.Log.Warnw("max iterations reached, not propagating further", "block", uint64(block), "max", d.opts.maxIterations())
			continue
		}
		for _, succ := range graph.Succs(block) {
			dirty.Set(index[succ])
		}
	}

	return result, nil
}

// mergePreds joins the out-states of block's already-visited predecessors.
// A predecessor not yet visited contributes nothing (monotone under-
// approximation during the worklist's early iterations, corrected as the
// worklist revisits block once that predecessor settles).
func (d *FixpointDriver) mergePreds(graph rdir.Graph, block rdir.BlockID, outStates map[rdir.BlockID]*rdstate.State) *rdstate.State {
	preds := graph.Preds(block)
	var collected []*rdstate.State
	for _, p := range preds {
		if s, ok := outStates[p]; ok {
			collected = append(collected, s)
		}
	}
	if len(collected) == 0 {
		return rdstate.New(d.opts.TrackTmps)
	}
	if len(collected) == 1 {
		return collected[0].Copy()
	}
	return collected[0].Merge(collected[1:]...)
}

// initialState computes the entry block's in-state: a deep copy of the
// configured seed, or a fresh state optionally populated by InitFunc.
func (d *FixpointDriver) initialState(target *Target) (*rdstate.State, error) {
	if d.opts.Seed != nil {
		return d.opts.Seed.Copy(), nil
	}
	st := rdstate.New(d.opts.TrackTmps)
	if d.opts.InitFunc {
		funcAddr, _ := target.FuncAddr()
		if err := st.InitFunc(d.opts.Arch, d.opts.CallingConv, d.opts.Loader, funcAddr); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (d *FixpointDriver) engineOptions(obs rdengine.Observer) rdengine.Options {
	return rdengine.Options{
		Arch:            d.opts.Arch,
		CallingConv:     d.opts.CallingConv,
		Loader:          d.opts.Loader,
		FunctionHandler: d.opts.FunctionHandler,
		Observer:        obs,
		Log:             d.opts.Log,
		FailFast:        d.opts.FailFast,
	}
}
