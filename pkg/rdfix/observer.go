package rdfix

import (
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdengine"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdir/ail"
	"github.com/oisee/reachdef/pkg/rdir/vex"
	"github.com/oisee/reachdef/pkg/rdstate"
)

// blockObserver adapts the driver's configured observation points to
// rdengine.Observer, applying the VEX IMark-adjacency rule from §4.5.3:
// a BEFORE snapshot only fires on an IMark statement, an AFTER snapshot
// only on the block's last statement or one immediately followed by an
// IMark. AIL statements carry their own ins_addr directly and have no
// such restriction.
type blockObserver struct {
	opts     Options
	result   *Result
	dialect  rdir.Dialect
	vexBlock *vex.Block
	ailBlock *ail.Block
}

func (o *blockObserver) Observe(point rdengine.ObservePoint, codeLoc rdatom.CodeLocation, state *rdstate.State) {
	switch point {
	case rdengine.ObserveBeforeStmt:
		if !o.opts.wantsPoint(codeLoc.InsAddr, Before) {
			return
		}
		if o.dialect == rdir.DialectVEX && !o.isIMark(codeLoc.StmtIdx) {
			return
		}
		o.record(codeLoc.InsAddr, Before, state)
	case rdengine.ObserveAfterStmt:
		if !o.opts.wantsPoint(codeLoc.InsAddr, After) {
			return
		}
		if o.dialect == rdir.DialectVEX && !o.isLastOrNextIMark(codeLoc.StmtIdx) {
			return
		}
		o.record(codeLoc.InsAddr, After, state)
	}
}

func (o *blockObserver) isIMark(stmtIdx int) bool {
	stmts := o.vexBlock.Statements
	return stmtIdx >= 0 && stmtIdx < len(stmts) && stmts[stmtIdx].Kind == vex.IMark
}

func (o *blockObserver) isLastOrNextIMark(stmtIdx int) bool {
	stmts := o.vexBlock.Statements
	if stmtIdx == len(stmts)-1 {
		return true
	}
	return stmtIdx >= 0 && stmtIdx+1 < len(stmts) && stmts[stmtIdx+1].Kind == vex.IMark
}

func (o *blockObserver) record(insAddr uint64, point OpType, state *rdstate.State) {
	o.result.States[ObservationKey{InsAddr: insAddr, Point: point}] = state.Copy()
}
