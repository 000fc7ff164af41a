// Package rddef implements Definition records and the Uses bookkeeping
// that links definitions forward to the code locations that consumed
// them.
package rddef

import (
	"fmt"

	"github.com/oisee/reachdef/pkg/keyedregion"
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

// Definition records that atom was assigned data at codeLoc. Definitions
// are immutable after construction and referenced by pointer identity —
// two states may point at the very same Definition, and callers that
// need structural equality use Equal rather than ==.
type Definition struct {
	Atom    rdatom.Atom
	CodeLoc rdatom.CodeLocation
	Data    rdvalue.DataSet
}

// New builds a Definition. data.Bits must equal atom.Size*8 for Register
// and MemoryLocation atoms (the caller is expected to have evaluated the
// expression at the atom's own width already).
func New(atom rdatom.Atom, codeLoc rdatom.CodeLocation, data rdvalue.DataSet) *Definition {
	return &Definition{Atom: atom, CodeLoc: codeLoc, Data: data}
}

func (d *Definition) String() string {
	return fmt.Sprintf("Definition{Atom: %s, Codeloc: %s, Data: %v}", d.Atom, d.CodeLoc, d.Data.Values())
}

// Equal reports structural equality over atom, code location and data —
// used for testing and for keeping KeyedRegion.Merge idempotent on
// self-merge, not for the identity-based bookkeeping Uses performs.
func (d *Definition) Equal(o *Definition) bool {
	if d == o {
		return true
	}
	if d == nil || o == nil {
		return false
	}
	return d.Atom == o.Atom && d.CodeLoc == o.CodeLoc && d.Data.Equal(o.Data)
}

// Offset returns the definition's KeyedRegion key.
func (d *Definition) Offset() int64 { return rdatom.Offset(d.Atom) }

// Size returns the definition's width in bytes.
func (d *Definition) Size() int { return rdatom.Size(d.Atom) }

// Region is the concrete KeyedRegion instantiation Definitions live in.
type Region = keyedregion.KeyedRegion[*Definition]

// NewRegion returns an empty Definition region.
func NewRegion() *Region { return keyedregion.New[*Definition]() }

// Uses tracks, for every Definition, the set of code locations that
// consumed it, plus a KeyedRegion of the currently-live uses indexed by
// atom offset — the structure _kill_and_add_register_definition consults
// to decide whether a displaced definition was ever used.
type Uses struct {
	byDefinition map[*Definition]map[rdatom.CodeLocation]struct{}
	current      *Region
}

// NewUses returns an empty Uses.
func NewUses() *Uses {
	return &Uses{byDefinition: make(map[*Definition]map[rdatom.CodeLocation]struct{}), current: NewRegion()}
}

// AddUse records that loc consumed def.
func (u *Uses) AddUse(def *Definition, loc rdatom.CodeLocation) {
	set, ok := u.byDefinition[def]
	if !ok {
		set = make(map[rdatom.CodeLocation]struct{})
		u.byDefinition[def] = set
	}
	set[loc] = struct{}{}
	u.current.SetObject(def.Offset(), def, int64(def.Size()))
}

// UsesOf returns every code location known to have consumed def.
func (u *Uses) UsesOf(def *Definition) []rdatom.CodeLocation {
	set := u.byDefinition[def]
	out := make([]rdatom.CodeLocation, 0, len(set))
	for loc := range set {
		out = append(out, loc)
	}
	return out
}

// CurrentUses reports whether def is among the live uses recorded at
// def's offset in the live-uses region.
func (u *Uses) CurrentUses(def *Definition) bool {
	for _, live := range u.current.GetObjectsByOffset(def.Offset()) {
		if live == def {
			return true
		}
	}
	return false
}

// Copy returns an independent deep copy.
func (u *Uses) Copy() *Uses {
	out := &Uses{byDefinition: make(map[*Definition]map[rdatom.CodeLocation]struct{}, len(u.byDefinition)), current: u.current.Copy()}
	for def, locs := range u.byDefinition {
		cp := make(map[rdatom.CodeLocation]struct{}, len(locs))
		for l := range locs {
			cp[l] = struct{}{}
		}
		out.byDefinition[def] = cp
	}
	return out
}

// Merge unions other's bookkeeping into a copy of u.
func (u *Uses) Merge(other *Uses) *Uses {
	out := u.Copy()
	for def, locs := range other.byDefinition {
		set, ok := out.byDefinition[def]
		if !ok {
			set = make(map[rdatom.CodeLocation]struct{})
			out.byDefinition[def] = set
		}
		for l := range locs {
			set[l] = struct{}{}
		}
	}
	out.current = out.current.Merge(other.current)
	return out
}
