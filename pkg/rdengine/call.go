package rdengine

import (
	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdstate"
)

// UserHandler is the analyst-supplied hook for externals and local
// functions, named the way §6's "Function handler (user)" contract
// describes it: HandleExternal is consulted for PLT stubs/external
// symbols, HandleLocalFunction for calls into the same object.
type UserHandler interface {
	// HandleExternal is invoked for a call to a named external symbol.
	// A false second return means "no handler for this symbol": policy
	// is MissingHandler (log a warning, leave state unchanged).
	HandleExternal(name string, state *rdstate.State, callCodeLoc rdatom.CodeLocation) (*rdstate.State, bool, error)
	// HandleLocalFunction is invoked for a call to an address inside the
	// main object. A false second return leaves the state unchanged.
	HandleLocalFunction(addr uint64, state *rdstate.State, callCodeLoc rdatom.CodeLocation, currentDepth, maximumDepth int) (*rdstate.State, bool, error)
}

// CallHandler implements FunctionHandler by running the six-step hook
// described in §4.4.3: depth-limit check, single concrete IP resolution,
// internal/external classification via the Loader, and dispatch to a
// UserHandler.
type CallHandler struct {
	Arch         rdir.Architecture
	Loader       rdir.Loader
	User         UserHandler
	MaximumDepth int
	CurrentDepth int
	Log          *rdlog.Logger
}

// HandleFunction implements FunctionHandler.
func (h *CallHandler) HandleFunction(state *rdstate.State, callCodeLoc rdatom.CodeLocation, _ *rdatom.Atom) (*rdstate.State, error) {
	if h.CurrentDepth > h.MaximumDepth {
		h.Log.Warnw("call depth exceeded, not descending", "depth", h.CurrentDepth, "max", h.MaximumDepth, "loc", callCodeLoc.String())
		return state, nil
	}

	ipReg := rdatom.Register{RegOffset: h.Arch.IPOffset, Size: h.Arch.Bytes}
	ipDefs := state.RegisterDefinitions.GetObjectsByOffset(int64(ipReg.RegOffset))
	if len(ipDefs) != 1 {
		h.Log.Warnw("call target is not a single definition, bailing", "loc", callCodeLoc.String(), "candidates", len(ipDefs))
		return state, nil
	}
	addr, ok := ipDefs[0].Data.SoleConcreteInt()
	if !ok {
		h.Log.Warnw("call target is not a singleton concrete address, bailing", "loc", callCodeLoc.String())
		return state, nil
	}

	if h.User == nil {
		h.Log.Warnw("no function handler configured, leaving state unchanged", "addr", addr, "loc", callCodeLoc.String())
		return state, nil
	}
	if h.Loader == nil {
		h.Log.Warnw("no loader configured, cannot classify call target", "addr", addr, "loc", callCodeLoc.String())
		return state, nil
	}

	if stub, isStub := h.Loader.FindPLTStubName(addr); isStub {
		return h.dispatchExternal(stub, state, callCodeLoc)
	}
	if h.Loader.ContainsAddr(addr) {
		next, handled, err := h.User.HandleLocalFunction(addr, state, callCodeLoc, h.CurrentDepth+1, h.MaximumDepth)
		if err != nil {
			return nil, err
		}
		if !handled {
			h.Log.Warnw("local function handler declined, leaving state unchanged", "addr", addr, "loc", callCodeLoc.String())
			return state, nil
		}
		return next, nil
	}
	if sym, isSym := h.Loader.FindSymbol(addr); isSym {
		return h.dispatchExternal(sym, state, callCodeLoc)
	}

	h.Log.Warnw("call target could not be classified, leaving state unchanged", "addr", addr, "loc", callCodeLoc.String())
	return state, nil
}

func (h *CallHandler) dispatchExternal(name string, state *rdstate.State, callCodeLoc rdatom.CodeLocation) (*rdstate.State, error) {
	next, handled, err := h.User.HandleExternal(name, state, callCodeLoc)
	if err != nil {
		return nil, err
	}
	if !handled {
		h.Log.Warnw("no external handler for symbol, leaving state unchanged", "symbol", name, "loc", callCodeLoc.String())
		return state, nil
	}
	return next, nil
}
