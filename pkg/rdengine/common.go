// Package rdengine implements the TransferEngine: the per-statement
// transfer functions that turn one basic block's IR into an updated
// ReachingState, for both supported dialects (VEX and AIL).
package rdengine

import (
	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdstate"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

// undefinedData builds the DataSet stored for a register killed by an
// unmodelled effect (a call or an unsupported operation).
func undefinedData(bits int) rdvalue.DataSet { return rdvalue.UndefinedSet(bits) }

// ObservePoint names a moment during block processing an Observer can be
// invoked at.
type ObservePoint int

const (
	// ObserveBeforeBlock fires once, before the block's first statement.
	ObserveBeforeBlock ObservePoint = iota
	// ObserveBeforeStmt fires before each statement.
	ObserveBeforeStmt
	// ObserveAfterStmt fires after each statement.
	ObserveAfterStmt
	// ObserveAfterBlock fires once, after the block's last statement.
	ObserveAfterBlock
)

// Observer is notified at chosen points during block processing, mirroring
// the source's observation-points mechanism: it never mutates state, only
// inspects snapshots.
type Observer interface {
	Observe(point ObservePoint, codeLoc rdatom.CodeLocation, state *rdstate.State)
}

// FunctionHandler customises how a call site is modelled, standing in for
// the source's pluggable function-handler hook (§4.4.3).
type FunctionHandler interface {
	// HandleFunction is invoked at a Call statement/jumpkind. It returns
	// the state to continue analysis with after the call; engines apply
	// the default caller-saved-register kill first and pass that state
	// in, so a handler that has nothing special to do can just return it
	// unchanged.
	HandleFunction(state *rdstate.State, callCodeLoc rdatom.CodeLocation, target *rdatom.Atom) (*rdstate.State, error)
}

// Options configures a TransferEngine.
type Options struct {
	Arch            rdir.Architecture
	CallingConv     *rdir.CallingConvention
	Loader          rdir.Loader
	FunctionHandler FunctionHandler
	Observer        Observer
	Log             *rdlog.Logger
	// FailFast is copied from the driver's options. The engines do not
	// consult it: every error a transfer function returns stops the
	// block and is returned to the caller, whether or not it is set.
	FailFast bool
}

// notify is a nil-safe Observer.Observe call.
func (o Options) notify(point ObservePoint, codeLoc rdatom.CodeLocation, state *rdstate.State) {
	if o.Observer != nil {
		o.Observer.Observe(point, codeLoc, state)
	}
}

// defaultCallKill applies the kills every call/jump statement performs
// regardless of dialect or function handler: the instruction pointer and
// every caller-saved register named by the calling convention (or by the
// statement's own caller-saved list, for AIL) become Undefined at
// callCodeLoc.
func defaultCallKill(arch rdir.Architecture, state *rdstate.State, callCodeLoc rdatom.CodeLocation, extraCallerSaved []string) error {
	ip := rdatom.Register{RegOffset: arch.IPOffset, Size: arch.Bytes}
	if _, err := state.KillAndAddDefinition(ip, callCodeLoc, undefinedData(arch.Bits)); err != nil {
		return err
	}
	for _, name := range extraCallerSaved {
		info, ok := arch.RegisterOffset(name)
		if !ok {
			continue
		}
		reg := rdatom.Register{RegOffset: info.Offset, Size: info.Size}
		if _, err := state.KillAndAddDefinition(reg, callCodeLoc, undefinedData(info.Size*8)); err != nil {
			return err
		}
	}
	return nil
}

// callerSavedFrom returns the caller-saved register names to kill at a
// call: the statement's own list when it is non-empty, otherwise the
// calling convention's list, or none when cc is nil.
func callerSavedFrom(cc *rdir.CallingConvention, stmtLevel []string) []string {
	if len(stmtLevel) > 0 {
		return stmtLevel
	}
	if cc != nil {
		return cc.CallerSavedRegs
	}
	return nil
}

// handleFunction runs the default caller-saved kill, then defers to the
// configured FunctionHandler (if any) for further customisation. None of
// the six steps of the call hook described in §4.4.3 run here; CallHandler
// implements them as a FunctionHandler.
func (o Options) handleFunction(state *rdstate.State, callCodeLoc rdatom.CodeLocation, target *rdatom.Atom, stmtCallerSaved []string) (*rdstate.State, error) {
	if err := defaultCallKill(o.Arch, state, callCodeLoc, callerSavedFrom(o.CallingConv, stmtCallerSaved)); err != nil {
		return nil, err
	}
	if o.FunctionHandler != nil {
		return o.FunctionHandler.HandleFunction(state, callCodeLoc, target)
	}
	return state, nil
}

