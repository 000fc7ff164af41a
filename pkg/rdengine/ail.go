package rdengine

import (
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdir/ail"
	"github.com/oisee/reachdef/pkg/rdstate"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

// condCodeRegisters are the condition-code pseudo-registers every AIL
// Jump/ConditionalJump/Call kills in addition to the instruction pointer.
var condCodeRegisters = []string{"cc_op", "cc_dep1", "cc_dep2", "cc_ndep"}

// AILEngine is the TransferEngine for the AIL-ish dialect (§4.4.2).
type AILEngine struct {
	Options
}

// NewAILEngine builds an AILEngine.
func NewAILEngine(opts Options) *AILEngine { return &AILEngine{Options: opts} }

// ProcessBlock runs every statement of b against state, returning the
// resulting state.
func (e *AILEngine) ProcessBlock(b *ail.Block, state *rdstate.State) (*rdstate.State, error) {
	e.notify(ObserveBeforeBlock, rdatom.NewCodeLocation(b.Addr, 0, b.Addr), state)
	for i, stmt := range b.Statements {
		loc := rdatom.NewCodeLocation(b.Addr, i, stmt.InsAddr)
		e.notify(ObserveBeforeStmt, loc, state)
		if err := e.processStmt(stmt, loc, state); err != nil {
			return nil, err
		}
		e.notify(ObserveAfterStmt, loc, state)
	}
	last := rdatom.NewCodeLocation(b.Addr, len(b.Statements), b.Addr)
	e.notify(ObserveAfterBlock, last, state)
	return state, nil
}

func (e *AILEngine) processStmt(stmt *ail.Stmt, loc rdatom.CodeLocation, state *rdstate.State) error {
	switch stmt.Kind {
	case ail.Assignment:
		data, err := e.evalExpr(stmt.Src, loc, state)
		if err != nil {
			return err
		}
		return e.assign(stmt.Dst, data, loc, state)
	case ail.Store:
		// Evaluated for their use-recording side effects only; no
		// MemoryLocation definition is installed. This reproduces the
		// AIL store handler's observed behavior rather than guessing
		// at intent (see design notes). TODO: revisit if a future
		// revision clarifies whether AIL stores should also write
		// memory definitions.
		if _, err := e.evalExpr(stmt.Addr, loc, state); err != nil {
			return err
		}
		if _, err := e.evalExpr(stmt.Data, loc, state); err != nil {
			return err
		}
		return nil
	case ail.Jump:
		if _, err := e.evalExpr(stmt.Target, loc, state); err != nil {
			return err
		}
		if err := e.killCCRegisters(state, loc); err != nil {
			return err
		}
		ip := rdatom.Register{RegOffset: e.Arch.IPOffset, Size: e.Arch.Bytes}
		_, err := state.KillAndAddDefinition(ip, loc, undefinedData(e.Arch.Bits))
		return err
	case ail.ConditionalJump:
		if _, err := e.evalExpr(stmt.Cond, loc, state); err != nil {
			return err
		}
		if stmt.Target != nil {
			if _, err := e.evalExpr(stmt.Target, loc, state); err != nil {
				return err
			}
		}
		if err := e.killCCRegisters(state, loc); err != nil {
			return err
		}
		ip := rdatom.Register{RegOffset: e.Arch.IPOffset, Size: e.Arch.Bytes}
		_, err := state.KillAndAddDefinition(ip, loc, undefinedData(e.Arch.Bits))
		return err
	case ail.Call:
		if stmt.Target != nil {
			if _, err := e.evalExpr(stmt.Target, loc, state); err != nil {
				return err
			}
		}
		for _, arg := range stmt.Args {
			if _, err := e.evalExpr(arg, loc, state); err != nil {
				return err
			}
		}
		if err := e.killCCRegisters(state, loc); err != nil {
			return err
		}
		// The instruction pointer and every caller-saved register are
		// killed by handleFunction's default call kill, then the
		// configured FunctionHandler (if any) runs.
		_, err := e.handleFunction(state, loc, nil, stmt.CallerSavedRegs)
		return err
	default:
		e.Log.Errorw("unsupported AIL statement", "kind", stmt.Kind, "loc", loc.String())
		return nil
	}
}

// killCCRegisters kills the condition-code pseudo-registers every
// Jump/ConditionalJump/Call performs.
func (e *AILEngine) killCCRegisters(state *rdstate.State, loc rdatom.CodeLocation) error {
	for _, name := range condCodeRegisters {
		info, ok := e.Arch.RegisterOffset(name)
		if !ok {
			continue
		}
		reg := rdatom.Register{RegOffset: info.Offset, Size: info.Size}
		if _, err := state.KillAndAddDefinition(reg, loc, undefinedData(info.Size*8)); err != nil {
			return err
		}
	}
	return nil
}

func (e *AILEngine) assign(dst *ail.Expr, data rdvalue.DataSet, loc rdatom.CodeLocation, state *rdstate.State) error {
	switch dst.Kind {
	case ail.ExTmp:
		_, err := state.KillAndAddDefinition(rdatom.Temporary{TmpIdx: dst.TmpIdx}, loc, data)
		return err
	case ail.ExRegister:
		reg := rdatom.Register{RegOffset: dst.RegOffset, Size: data.Bits / 8}
		_, err := state.KillAndAddDefinition(reg, loc, data)
		return err
	default:
		e.Log.Errorw("unsupported AIL assignment target", "kind", dst.Kind, "loc", loc.String())
		return nil
	}
}

// evalExpr evaluates e against state, recording uses as it goes.
func (e *AILEngine) evalExpr(expr *ail.Expr, loc rdatom.CodeLocation, state *rdstate.State) (rdvalue.DataSet, error) {
	switch expr.Kind {
	case ail.ExConst:
		return rdvalue.Singleton(expr.Bits, expr.ConstVal), nil
	case ail.ExTmp:
		if state.TrackTmps {
			state.AddUse(rdatom.Temporary{TmpIdx: expr.TmpIdx}, loc)
		}
		if def, ok := state.TmpDefinitions[expr.TmpIdx]; ok {
			return def.Data, nil
		}
		return rdvalue.UndefinedSet(expr.Bits), nil
	case ail.ExRegister:
		return e.readRegister(expr.RegOffset, expr.Bits, loc, state), nil
	case ail.ExLoad:
		if _, err := e.evalExpr(expr.Operand, loc, state); err != nil {
			return rdvalue.DataSet{}, err
		}
		// No backing memory model is defined for AIL Load (§4.4.2
		// lists it as structural): the address is evaluated purely for
		// its use-recording effect, and the result widens to top.
		return rdvalue.UndefinedSet(expr.Bits), nil
	case ail.ExConvert:
		a, err := e.evalExpr(expr.Operand, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return a.ConvertWidth(expr.Bits), nil
	case ail.ExCmpEQ:
		a, err := e.evalExpr(expr.Left, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		b, err := e.evalExpr(expr.Right, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return a.CmpEQ(b), nil
	case ail.ExCmpLE:
		a, err := e.evalExpr(expr.Left, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		b, err := e.evalExpr(expr.Right, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return a.CmpLE(b), nil
	case ail.ExXor:
		a, err := e.evalExpr(expr.Left, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		b, err := e.evalExpr(expr.Right, loc, state)
		if err != nil {
			return rdvalue.DataSet{}, err
		}
		return a.BinOp(b, expr.Bits, func(x, y uint64) uint64 { return x ^ y }), nil
	default:
		e.Log.Errorw("unsupported AIL expression, widening to top", "kind", expr.Kind, "loc", loc.String())
		return rdvalue.UndefinedSet(expr.Bits), nil
	}
}

// readRegister implements the AIL Register transfer rule (§4.4.2): the
// stack and frame pointers return symbolic zero offsets, every other
// register unions its current definitions' data, and a register with no
// definition at all gets one installed on the fly — an external
// definition whose data is the register's own incoming-value symbol —
// before being re-read.
func (e *AILEngine) readRegister(offset, bits int, loc rdatom.CodeLocation, state *rdstate.State) rdvalue.DataSet {
	if offset == e.Arch.SPOffset {
		state.AddUse(rdatom.Register{RegOffset: offset, Size: bits / 8}, loc)
		return rdvalue.New(bits, rdvalue.SpOffsetValue(rdatom.SpOffset{Bits: bits, Offset: 0}))
	}
	if offset == e.Arch.BPOffset {
		state.AddUse(rdatom.Register{RegOffset: offset, Size: bits / 8}, loc)
		return rdvalue.New(bits, rdvalue.SpOffsetValue(rdatom.SpOffset{Bits: bits, Offset: 0, IsBase: true}))
	}
	reg := rdatom.Register{RegOffset: offset, Size: bits / 8}
	current := state.RegisterDefinitions.GetObjectsByOffset(int64(offset))
	if len(current) == 0 {
		symbolic := rdvalue.New(bits, rdvalue.RegisterOffsetValue(rdatom.RegisterOffset{Bits: bits, RegOffset: offset, Offset: 0}))
		if _, err := state.KillAndAddDefinition(reg, rdatom.ExternalCodeLocation(), symbolic); err != nil {
			return rdvalue.UndefinedSet(bits)
		}
		current = state.RegisterDefinitions.GetObjectsByOffset(int64(offset))
	}
	out := rdvalue.DataSet{Bits: bits, Data: make(map[rdvalue.Value]struct{})}
	for _, d := range current {
		out = out.Union(d.Data)
	}
	state.AddUse(reg, loc)
	return out
}
