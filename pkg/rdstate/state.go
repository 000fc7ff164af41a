// Package rdstate implements ReachingState, the per-program-point
// abstract state the analysis threads through a function: register and
// memory definitions (with their uses), per-block temporaries, and the
// set of dead-virgin definitions discovered along the way.
package rdstate

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rddef"
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

// TmpDefinition records which code location last wrote a temporary, and
// the value it was written with — temporaries live only for a block, so
// unlike Register/MemoryLocation there is no KeyedRegion entry to read
// the value back out of; the state carries it directly.
type TmpDefinition struct {
	Atom    rdatom.Temporary
	CodeLoc rdatom.CodeLocation
	Data    rdvalue.DataSet
}

// TmpUseRecord pairs a use site with the temporary definition it
// consumed — carried over from the source's tmp_uses bookkeeping, which
// keeps the producing (atom, codeloc) pair alongside each use so callers
// can walk from a use back to its producer without a second lookup.
type TmpUseRecord struct {
	CodeLoc rdatom.CodeLocation
	Def     TmpDefinition
}

// State is the abstract state at one program point.
type State struct {
	RegisterDefinitions *rddef.Region
	MemoryDefinitions   *rddef.Region
	RegisterUses        *rddef.Uses
	MemoryUses          *rddef.Uses

	TmpDefinitions map[int]TmpDefinition
	TmpUses        map[int][]TmpUseRecord

	DeadVirginDefinitions map[*rddef.Definition]struct{}

	TrackTmps bool

	// owner is cleared by Downsize so a retained snapshot does not keep
	// the driver (and transitively, every other live per-block state)
	// reachable through it.
	owner interface{}
}

// New returns a fresh, empty ReachingState.
func New(trackTmps bool) *State {
	return &State{
		RegisterDefinitions:   rddef.NewRegion(),
		MemoryDefinitions:     rddef.NewRegion(),
		RegisterUses:          rddef.NewUses(),
		MemoryUses:            rddef.NewUses(),
		TmpDefinitions:        make(map[int]TmpDefinition),
		TmpUses:               make(map[int][]TmpUseRecord),
		DeadVirginDefinitions: make(map[*rddef.Definition]struct{}),
		TrackTmps:             trackTmps,
	}
}

// SetOwner attaches an opaque back-reference (the driver that produced
// this state), cleared again by Downsize.
func (s *State) SetOwner(owner interface{}) { s.owner = owner }

// Owner returns the state's current back-reference, or nil once
// Downsize has been called.
func (s *State) Owner() interface{} { return s.owner }

// Downsize drops the owning-analysis back-pointer for memory economy,
// allowing the driver to be garbage-collected while this snapshot
// survives. Observed states share nothing mutable with the live driver
// after the snapshot copy in the first place; Downsize only breaks the
// remaining reference so it, too, can be freed.
func (s *State) Downsize() { s.owner = nil }

// Copy returns an independent deep copy.
func (s *State) Copy() *State {
	out := &State{
		RegisterDefinitions:   s.RegisterDefinitions.Copy(),
		MemoryDefinitions:     s.MemoryDefinitions.Copy(),
		RegisterUses:          s.RegisterUses.Copy(),
		MemoryUses:            s.MemoryUses.Copy(),
		TmpDefinitions:        make(map[int]TmpDefinition, len(s.TmpDefinitions)),
		TmpUses:               make(map[int][]TmpUseRecord, len(s.TmpUses)),
		DeadVirginDefinitions: make(map[*rddef.Definition]struct{}, len(s.DeadVirginDefinitions)),
		TrackTmps:             s.TrackTmps,
		owner:                 s.owner,
	}
	for k, v := range s.TmpDefinitions {
		out.TmpDefinitions[k] = v
	}
	for k, v := range s.TmpUses {
		cp := make([]TmpUseRecord, len(v))
		copy(cp, v)
		out.TmpUses[k] = cp
	}
	for d := range s.DeadVirginDefinitions {
		out.DeadVirginDefinitions[d] = struct{}{}
	}
	return out
}

// Merge deep-copies s, then unions register/memory definitions and uses
// and the dead-virgin set from every other state. Temporaries are not
// merged — their scope is a single block, so a join across block
// boundaries starts tmp-less.
func (s *State) Merge(others ...*State) *State {
	out := s.Copy()
	out.TmpDefinitions = make(map[int]TmpDefinition)
	out.TmpUses = make(map[int][]TmpUseRecord)
	for _, other := range others {
		out.RegisterDefinitions = out.RegisterDefinitions.Merge(other.RegisterDefinitions)
		out.MemoryDefinitions = out.MemoryDefinitions.Merge(other.MemoryDefinitions)
		out.RegisterUses = out.RegisterUses.Merge(other.RegisterUses)
		out.MemoryUses = out.MemoryUses.Merge(other.MemoryUses)
		for d := range other.DeadVirginDefinitions {
			out.DeadVirginDefinitions[d] = struct{}{}
		}
	}
	return out
}

// Equal reports whether s and other are observationally equivalent: same
// register/memory definitions, same dead-virgin set. Use bookkeeping and
// temporaries are not compared. Used by the fixpoint driver to detect
// when a block's out-state has stopped changing.
func (s *State) Equal(other *State) bool {
	if !s.RegisterDefinitions.Equal(other.RegisterDefinitions) {
		return false
	}
	if !s.MemoryDefinitions.Equal(other.MemoryDefinitions) {
		return false
	}
	if len(s.DeadVirginDefinitions) != len(other.DeadVirginDefinitions) {
		return false
	}
	for d := range s.DeadVirginDefinitions {
		if _, ok := other.DeadVirginDefinitions[d]; !ok {
			return false
		}
	}
	return true
}

// String renders the register and memory definitions for debugging and
// CLI display; temporaries and use bookkeeping are omitted for brevity.
func (s *State) String() string {
	var b strings.Builder
	fmt.Fprintln(&b, "registers:")
	for _, d := range s.RegisterDefinitions.Entries() {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	fmt.Fprintln(&b, "memory:")
	for _, d := range s.MemoryDefinitions.Entries() {
		fmt.Fprintf(&b, "  %s\n", d)
	}
	if len(s.DeadVirginDefinitions) > 0 {
		fmt.Fprintln(&b, "dead-virgin:")
		for d := range s.DeadVirginDefinitions {
			fmt.Fprintf(&b, "  %s\n", d)
		}
	}
	return b.String()
}

// KillAndAddDefinition installs a new Definition for atom at codeLoc with
// the given data, applying the atom-specific kill policy:
//
//   - Register: definitions currently covering the register's offset are
//     checked for any recorded use; if none of them have been used at
//     all, every one of those displaced definitions is recorded as
//     dead-virgin before being replaced.
//   - MemoryLocation: installed directly — memory aliasing makes
//     dead-virgin tracking unsound here, so it is not attempted.
//   - Temporary: the per-tmp slot is overwritten unconditionally.
func (s *State) KillAndAddDefinition(atom rdatom.Atom, codeLoc rdatom.CodeLocation, data rdvalue.DataSet) (*rddef.Definition, error) {
	switch a := atom.(type) {
	case rdatom.Register:
		current := s.RegisterDefinitions.GetObjectsByOffset(int64(a.RegOffset))
		if len(current) > 0 {
			used := false
			for _, d := range current {
				if s.RegisterUses.CurrentUses(d) {
					used = true
					break
				}
			}
			if !used {
				for _, d := range current {
					s.DeadVirginDefinitions[d] = struct{}{}
				}
			}
		}
		def := rddef.New(a, codeLoc, data)
		s.RegisterDefinitions.SetObject(int64(a.RegOffset), def, int64(a.Size))
		return def, nil
	case rdatom.MemoryLocation:
		def := rddef.New(a, codeLoc, data)
		s.MemoryDefinitions.SetObject(int64(a.Addr), def, int64(a.Size))
		return def, nil
	case rdatom.Temporary:
		s.TmpDefinitions[a.TmpIdx] = TmpDefinition{Atom: a, CodeLoc: codeLoc, Data: data}
		return nil, nil
	default:
		return nil, errors.Errorf("rdstate: unsupported atom type %T", atom)
	}
}

// KillDefinitions overwrites the definitions at atom with a dummy
// definition. The source this models defines kill_definitions but routes
// it straight through kill_and_add_definition without ever truly
// removing the prior entry (the "dummy" replaces rather than deletes);
// that behavior is preserved here rather than implementing a real kill —
// a future revision may want one.
func (s *State) KillDefinitions(atom rdatom.Atom, codeLoc rdatom.CodeLocation, dummy rdvalue.DataSet) error {
	_, err := s.KillAndAddDefinition(atom, codeLoc, dummy)
	return err
}

// AddUse records that codeLoc consumed every definition currently
// covering atom's offset.
func (s *State) AddUse(atom rdatom.Atom, codeLoc rdatom.CodeLocation) {
	switch a := atom.(type) {
	case rdatom.Register:
		for _, d := range s.RegisterDefinitions.GetObjectsByOffset(int64(a.RegOffset)) {
			s.RegisterUses.AddUse(d, codeLoc)
		}
	case rdatom.MemoryLocation:
		for _, d := range s.MemoryDefinitions.GetObjectsByOffset(int64(a.Addr)) {
			s.MemoryUses.AddUse(d, codeLoc)
		}
	case rdatom.Temporary:
		if def, ok := s.TmpDefinitions[a.TmpIdx]; ok {
			s.TmpUses[a.TmpIdx] = append(s.TmpUses[a.TmpIdx], TmpUseRecord{CodeLoc: codeLoc, Def: def})
		}
	}
}

// ReadRegister unions the data of every Definition covering offset,
// records a use at codeLoc, and falls back to {Undefined} when no
// definition covers the register at all. This is the Get transfer rule's
// core (§4.4.1).
func (s *State) ReadRegister(offset, bits int, codeLoc rdatom.CodeLocation) rdvalue.DataSet {
	current := s.RegisterDefinitions.GetObjectsByOffset(int64(offset))
	if len(current) == 0 {
		return rdvalue.UndefinedSet(bits)
	}
	out := rdvalue.DataSet{Bits: bits, Data: make(map[rdvalue.Value]struct{})}
	for _, d := range current {
		out = out.Union(d.Data)
	}
	s.AddUse(rdatom.Register{RegOffset: offset, Size: bits / 8}, codeLoc)
	return out
}

// InitFunc seeds the state the way a fresh function-entry analysis does:
// the stack pointer register holds the architecture's initial SP, each
// register argument is marked Parameter(Register), each stack argument
// Parameter(SpOffset) at its stack slot, and architecture-specific
// initialisation runs for PPC64 (rtoc) and MIPS64 (t9 := func_addr).
func (s *State) InitFunc(arch rdir.Architecture, cc *rdir.CallingConvention, loader rdir.Loader, funcAddr uint64) error {
	ext := rdatom.ExternalCodeLocation()

	sp := rdatom.Register{RegOffset: arch.SPOffset, Size: arch.Bytes}
	spDef := rddef.New(sp, ext, rdvalue.Singleton(arch.Bits, arch.InitialSP))
	s.RegisterDefinitions.SetObject(int64(sp.RegOffset), spDef, int64(sp.Size))

	if cc != nil {
		for _, arg := range cc.Args {
			switch a := arg.(type) {
			case rdir.SimRegArg:
				info, ok := arch.RegisterOffset(a.RegName)
				if !ok {
					return errors.Errorf("rdstate: unknown register argument %q", a.RegName)
				}
				reg := rdatom.Register{RegOffset: info.Offset, Size: arch.Bytes}
				data := rdvalue.New(arch.Bits, rdvalue.ParameterValue(rdvalue.Parameter{Kind: rdvalue.ParamRegister, Reg: reg}))
				def := rddef.New(reg, ext, data)
				s.RegisterDefinitions.SetObject(int64(reg.RegOffset), def, int64(reg.Size))
			case rdir.SimStackArg:
				addr := arch.InitialSP + uint64(a.StackOffset)
				ml := rdatom.MemoryLocation{Addr: addr, Size: arch.Bytes}
				spOff := rdatom.SpOffset{Bits: a.Size * 8, Offset: a.StackOffset}
				data := rdvalue.New(arch.Bits, rdvalue.ParameterValue(rdvalue.Parameter{Kind: rdvalue.ParamSpOffset, Sp: spOff}))
				def := rddef.New(ml, ext, data)
				s.MemoryDefinitions.SetObject(int64(ml.Addr), def, int64(ml.Size))
			default:
				return errors.Errorf("rdstate: unsupported calling-convention argument %T", arg)
			}
		}
	}

	switch {
	case containsFold(arch.Name, "ppc64"):
		if loader != nil {
			if rtoc, ok := loader.PPC64InitialRTOC(); ok {
				info, ok := arch.RegisterOffset("rtoc")
				if ok {
					reg := rdatom.Register{RegOffset: info.Offset, Size: info.Size}
					def := rddef.New(reg, ext, rdvalue.Singleton(arch.Bits, rtoc))
					s.RegisterDefinitions.SetObject(int64(reg.RegOffset), def, int64(reg.Size))
				}
			}
		}
	case containsFold(arch.Name, "mips64"):
		info, ok := arch.RegisterOffset("t9")
		if ok {
			reg := rdatom.Register{RegOffset: info.Offset, Size: info.Size}
			def := rddef.New(reg, ext, rdvalue.Singleton(arch.Bits, funcAddr))
			s.RegisterDefinitions.SetObject(int64(reg.RegOffset), def, int64(reg.Size))
		}
	}

	return nil
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
