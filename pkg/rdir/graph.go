package rdir

import (
	"github.com/oisee/reachdef/pkg/rdir/ail"
	"github.com/oisee/reachdef/pkg/rdir/vex"
)

// Dialect identifies which IR a block is expressed in.
type Dialect int

const (
	DialectVEX Dialect = iota
	DialectAIL
)

// BlockID is an opaque, comparable block identifier — typically a block
// address, but kept distinct from uint64 so callers can't accidentally
// pass a raw instruction address where a block identity is expected.
type BlockID uint64

// Graph is the block-graph contract the fixpoint driver walks: either a
// function's full control-flow graph or a single block wrapped as a
// one-node graph. Disassembly, lifting and CFG construction themselves
// are out of scope (§1) — this is the only shape the driver needs from
// whatever produced the CFG.
type Graph interface {
	// Entry returns the graph's unique entry block.
	Entry() BlockID
	// Blocks returns every block, entry first.
	Blocks() []BlockID
	// Preds returns the direct predecessors of b.
	Preds(b BlockID) []BlockID
	// Succs returns the direct successors of b.
	Succs(b BlockID) []BlockID
	// Dialect reports which IR b is expressed in.
	Dialect(b BlockID) Dialect
	// VEXBlock returns b's VEX statements; valid when Dialect(b) == DialectVEX.
	VEXBlock(b BlockID) *vex.Block
	// AILBlock returns b's AIL statements; valid when Dialect(b) == DialectAIL.
	AILBlock(b BlockID) *ail.Block
}

// singleBlockGraph wraps one block as a trivial one-node graph, used
// when the analysis target is a single block rather than a function.
type singleBlockGraph struct {
	id      BlockID
	dialect Dialect
	vexB    *vex.Block
	ailB    *ail.Block
}

// NewSingleVEXBlockGraph wraps a lone VEX block as a one-node Graph.
func NewSingleVEXBlockGraph(b *vex.Block) Graph {
	return &singleBlockGraph{id: BlockID(b.Addr), dialect: DialectVEX, vexB: b}
}

// NewSingleAILBlockGraph wraps a lone AIL block as a one-node Graph.
func NewSingleAILBlockGraph(b *ail.Block) Graph {
	return &singleBlockGraph{id: BlockID(b.Addr), dialect: DialectAIL, ailB: b}
}

func (g *singleBlockGraph) Entry() BlockID        { return g.id }
func (g *singleBlockGraph) Blocks() []BlockID      { return []BlockID{g.id} }
func (g *singleBlockGraph) Preds(BlockID) []BlockID { return nil }
func (g *singleBlockGraph) Succs(BlockID) []BlockID { return nil }
func (g *singleBlockGraph) Dialect(BlockID) Dialect { return g.dialect }
func (g *singleBlockGraph) VEXBlock(BlockID) *vex.Block { return g.vexB }
func (g *singleBlockGraph) AILBlock(BlockID) *ail.Block { return g.ailB }
