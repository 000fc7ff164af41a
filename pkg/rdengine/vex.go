package rdengine

import (
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdir/vex"
	"github.com/oisee/reachdef/pkg/rdstate"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

// VEXEngine is the TransferEngine for the VEX-ish dialect (§4.4.1): it
// walks one block's statements left to right, threading a *rdstate.State
// through Put/Store/StoreG/LoadG/WrTmp, evaluating expressions via tmp
// and register reads that record uses as they're consumed.
type VEXEngine struct {
	Options
}

// NewVEXEngine builds a VEXEngine.
func NewVEXEngine(opts Options) *VEXEngine { return &VEXEngine{Options: opts} }

// ProcessBlock runs every statement of b against state, returning the
// resulting state. state is mutated in place and returned: each statement
// reads from and writes into the same *State value, matching the mutable,
// single-owner style the per-block worklist iteration expects (a fresh
// Copy is made by the caller before each block visit).
func (e *VEXEngine) ProcessBlock(b *vex.Block, state *rdstate.State) (*rdstate.State, error) {
	e.notify(ObserveBeforeBlock, rdatom.NewCodeLocation(b.Addr, 0, b.Addr), state)
	insAddr := b.Addr
	for i, stmt := range b.Statements {
		if stmt.Kind == vex.IMark {
			insAddr = stmt.InsAddr
		}
		loc := rdatom.NewCodeLocation(b.Addr, i, insAddr)
		e.notify(ObserveBeforeStmt, loc, state)
		if err := e.processStmt(stmt, loc, state); err != nil {
			return nil, err
		}
		e.notify(ObserveAfterStmt, loc, state)
	}
	if b.Jumpkind == vex.JumpCall {
		loc := rdatom.NewCodeLocation(b.Addr, len(b.Statements), insAddr)
		if _, err := e.handleFunction(state, loc, nil, nil); err != nil {
			return nil, err
		}
	}
	e.notify(ObserveAfterBlock, rdatom.NewCodeLocation(b.Addr, len(b.Statements), insAddr), state)
	return state, nil
}

func (e *VEXEngine) processStmt(stmt *vex.Stmt, loc rdatom.CodeLocation, state *rdstate.State) error {
	switch stmt.Kind {
	case vex.IMark, vex.AbiHint, vex.Exit:
		return nil
	case vex.WrTmp:
		data, err := e.evalExpr(stmt.Data, loc, state)
		if err != nil {
			return err
		}
		_, err = state.KillAndAddDefinition(rdatom.Temporary{TmpIdx: stmt.Tmp}, loc, data)
		return err
	case vex.Put:
		data, err := e.evalExpr(stmt.Data, loc, state)
		if err != nil {
			return err
		}
		reg := rdatom.Register{RegOffset: stmt.Offset, Size: data.Bits / 8}
		_, err = state.KillAndAddDefinition(reg, loc, data)
		return err
	case vex.Store:
		addrData, err := e.evalExpr(stmt.Addr, loc, state)
		if err != nil {
			return err
		}
		valData, err := e.evalExpr(stmt.Data, loc, state)
		if err != nil {
			return err
		}
		return e.storeAt(addrData, valData, loc, state)
	case vex.StoreG:
		guard, err := e.evalExpr(stmt.Guard, loc, state)
		if err != nil {
			return err
		}
		if b, ok := guard.SoleBool(); ok && !b {
			return nil
		}
		addrData, err := e.evalExpr(stmt.Addr, loc, state)
		if err != nil {
			return err
		}
		valData, err := e.evalExpr(stmt.Data, loc, state)
		if err != nil {
			return err
		}
		return e.storeAt(addrData, valData, loc, state)
	case vex.LoadG:
		guard, err := e.evalExpr(stmt.Guard, loc, state)
		if err != nil {
			return err
		}
		var data rdvalue.DataSet
		if b, ok := guard.SoleBool(); ok && !b {
			data, err = e.evalExpr(stmt.AltExpr, loc, state)
		} else {
			data, err = e.evalExpr(stmt.Addr, loc, state)
			if err == nil {
				data, err = e.loadFrom(data, stmt.ConvBits, loc, state)
			}
		}
		if err != nil {
			return err
		}
		_, err = state.KillAndAddDefinition(rdatom.Temporary{TmpIdx: stmt.Tmp}, loc, data)
		return err
	default:
		e.Log.Errorw("unsupported VEX statement", "kind", stmt.Kind, "loc", loc.String())
		return nil
	}
}

func (e *VEXEngine) storeAt(addrData, valData rdvalue.DataSet, loc rdatom.CodeLocation, state *rdstate.State) error {
	addrs := addrData.ConcreteInts()
	if len(addrs) == 0 {
		e.Log.Infow("store address undefined, skipping", "loc", loc.String())
		return nil
	}
	for _, addr := range addrs {
		ml := rdatom.MemoryLocation{Addr: addr, Size: valData.Bits / 8}
		if _, err := state.KillAndAddDefinition(ml, loc, valData); err != nil {
			return err
		}
	}
	return nil
}

func (e *VEXEngine) loadFrom(addrData rdvalue.DataSet, bits int, loc rdatom.CodeLocation, state *rdstate.State) (rdvalue.DataSet, error) {
	addrs := addrData.ConcreteInts()
	if len(addrs) == 0 {
		e.Log.Infow("load address undefined, skipping", "loc", loc.String())
		return rdvalue.UndefinedSet(bits), nil
	}
	out := rdvalue.DataSet{Bits: bits, Data: make(map[rdvalue.Value]struct{})}
	for _, addr := range addrs {
		ml := rdatom.MemoryLocation{Addr: addr, Size: bits / 8}
		current := state.MemoryDefinitions.GetObjectsByOffset(int64(ml.Addr))
		if len(current) == 0 {
			// The loader fallback only decodes full word reads of size
			// 4 or 8 bytes; any other size, or a read the loader cannot
			// serve, contributes Undefined. This is carried over
			// verbatim from the observed behavior rather than
			// generalised.
			if e.Loader != nil && (bits == 32 || bits == 64) {
				if raw, ok := e.Loader.ReadBytes(addr, bits/8); ok {
					out = out.Union(rdvalue.Singleton(bits, e.decodeWord(raw)))
					continue
				}
			}
			out = out.Union(rdvalue.UndefinedSet(bits))
			continue
		}
		for _, d := range current {
			out = out.Union(d.Data)
			state.MemoryUses.AddUse(d, loc)
		}
	}
	return out, nil
}

// decodeWord decodes a full-word read per the architecture's declared
// memory endness.
func (e *VEXEngine) decodeWord(b []byte) uint64 {
	var v uint64
	if e.Arch.MemoryEndness == rdir.BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return v
}

// evalExpr evaluates e against state, recording register/tmp uses at
// loc as it goes.
func (e *VEXEngine) evalExpr(expr *vex.Expr, loc rdatom.CodeLocation, state *rdstate.State) (rdvalue.DataSet, error) {
	switch expr.Kind {
	case vex.ExConst:
		return rdvalue.Singleton(expr.Bits, expr.ConstVal), nil
	case vex.ExRdTmp:
		def, ok := state.TmpDefinitions[expr.Tmp]
		if !ok {
			return rdvalue.UndefinedSet(expr.Bits), nil
		}
		if state.TrackTmps {
			state.AddUse(rdatom.Temporary{TmpIdx: expr.Tmp}, loc)
		}
		return def.Data, nil
	case vex.ExGet:
		return state.ReadRegister(expr.Offset, expr.Bits, loc), nil
	case vex.ExLoad:
		addrData, err := e.evalExpr(expr.Addr, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return e.loadFrom(addrData, expr.Bits, loc, state)
	case vex.ExUnop:
		a, err := e.evalExpr(expr.Args[0], loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		if _, ok := isConversion(expr.Op); ok {
			return a.ConvertWidth(expr.Bits), nil
		}
		if fn, ok := unaryArithOp(expr.Op); ok {
			return a.UnaryOp(expr.Bits, fn), nil
		}
		e.Log.Errorw("unsupported VEX unop", "op", expr.Op, "loc", loc.String())
		return rdvalue.UndefinedSet(expr.Bits), nil
	case vex.ExBinop:
		a, err := e.evalExpr(expr.Args[0], loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		b, err := e.evalExpr(expr.Args[1], loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		switch classifyCmp(expr.Op) {
		case cmpEQ:
			return a.CmpEQ(b), nil
		case cmpNE:
			return a.CmpNE(b), nil
		case cmpLT:
			return a.CmpLT(b), nil
		case cmpORD:
			return a.CmpORD(b), nil
		}
		if isArithShiftRight(expr.Op) {
			return a.BinOp(b, expr.Bits, sarOp(expr.Bits)), nil
		}
		if fn, ok := arithOp(expr.Op); ok {
			return a.BinOp(b, expr.Bits, fn), nil
		}
		e.Log.Errorw("unsupported VEX binop", "op", expr.Op, "loc", loc.String())
		return rdvalue.UndefinedSet(expr.Bits), nil
	case vex.ExCCall:
		// Helper-call expressions model architecture-specific
		// computations (e.g. flag synthesis) this analysis has no
		// access to; widen to top rather than guess at semantics.
		e.Log.Errorw("unsupported VEX CCall, widening to top", "loc", loc.String())
		return rdvalue.UndefinedSet(expr.Bits), nil
	case vex.ExITE:
		cond, err := e.evalExpr(expr.Cond, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		if b, ok := cond.SoleBool(); ok {
			if b {
				return e.evalExpr(expr.IfTrue, loc, state)
			}
			return e.evalExpr(expr.IfFalse, loc, state)
		}
		t, err := e.evalExpr(expr.IfTrue, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		f, err := e.evalExpr(expr.IfFalse, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return t.Union(f), nil
	default:
		e.Log.Errorw("unsupported VEX expression, widening to top", "kind", expr.Kind, "loc", loc.String())
		return rdvalue.UndefinedSet(expr.Bits), nil
	}
}

