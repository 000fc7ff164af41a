package rdfix

import (
	"github.com/pkg/errors"

	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdir/ail"
	"github.com/oisee/reachdef/pkg/rdir/vex"
)

// FuncTarget analyses a function's full control-flow graph.
type FuncTarget struct {
	Graph rdir.Graph
	Addr  uint64
}

// BlockTarget analyses a single block in isolation.
type BlockTarget struct {
	VEXBlock *vex.Block
	AILBlock *ail.Block
}

// Target is the driver's analysis target: exactly one of Func or Block
// must be set (§7 InvalidAnalysisTarget).
type Target struct {
	Func  *FuncTarget
	Block *BlockTarget
}

// NewTarget validates and builds a Target from exactly one of fn or block.
func NewTarget(fn *FuncTarget, block *BlockTarget) (*Target, error) {
	if (fn == nil) == (block == nil) {
		return nil, errors.New("rdfix: exactly one of a function target or a block target must be supplied")
	}
	return &Target{Func: fn, Block: block}, nil
}

// Graph returns the block-graph to run the driver over: the supplied CFG
// for a function target, or a synthetic one-node graph for a block
// target.
func (t *Target) Graph() rdir.Graph {
	if t.Func != nil {
		return t.Func.Graph
	}
	if t.Block.VEXBlock != nil {
		return rdir.NewSingleVEXBlockGraph(t.Block.VEXBlock)
	}
	return rdir.NewSingleAILBlockGraph(t.Block.AILBlock)
}

// FuncAddr returns the target function's address, when known.
func (t *Target) FuncAddr() (uint64, bool) {
	if t.Func == nil {
		return 0, false
	}
	return t.Func.Addr, true
}
