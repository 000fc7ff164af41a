// Package rdatom defines the tagged storage-cell identifiers (Atoms) and
// code locations the reaching-definitions analysis tracks: registers,
// memory cells, per-block temporaries, and the symbolic stack/register
// offsets used to model function parameters.
package rdatom

import "fmt"

// Atom identifies one piece of abstract storage: a register, a memory
// cell, or a per-block temporary. Atom values are comparable structs, so
// two Atoms can be compared with == directly (Go's interface equality
// compares dynamic type then the underlying value).
type Atom interface {
	isAtom()
	String() string
}

// Register is a machine register slice, identified by its byte offset
// into the register file and its width in bytes. Size participates in
// equality so that a write to a sub-register (e.g. AL) does not kill the
// wider parent register's definition (e.g. EAX).
type Register struct {
	RegOffset int
	Size      int // bytes
}

func (Register) isAtom() {}

func (r Register) String() string { return fmt.Sprintf("<Reg %d<%d>>", r.RegOffset, r.Size) }

// Bits returns the register's width in bits.
func (r Register) Bits() int { return r.Size * 8 }

// MemoryLocation is a byte range in the analysed program's address space.
type MemoryLocation struct {
	Addr uint64
	Size int // bytes
}

func (MemoryLocation) isAtom() {}

func (m MemoryLocation) String() string { return fmt.Sprintf("<Mem %#x<%d>>", m.Addr, m.Size) }

// Bits returns the memory cell's width in bits.
func (m MemoryLocation) Bits() int { return m.Size * 8 }

// Temporary is an IR temporary; its lifetime is a single basic block.
type Temporary struct {
	TmpIdx int
}

func (Temporary) isAtom() {}

func (t Temporary) String() string { return fmt.Sprintf("<Tmp %d>", t.TmpIdx) }

// Offset returns the atom's key into a KeyedRegion: the register offset
// for a Register, the address for a MemoryLocation. Panics for atoms
// that are never stored in a KeyedRegion (Temporary).
func Offset(a Atom) int64 {
	switch v := a.(type) {
	case Register:
		return int64(v.RegOffset)
	case MemoryLocation:
		return int64(v.Addr)
	default:
		panic(fmt.Sprintf("rdatom: Offset is undefined for %T", a))
	}
}

// Size returns the atom's width in bytes.
func Size(a Atom) int {
	switch v := a.(type) {
	case Register:
		return v.Size
	case MemoryLocation:
		return v.Size
	default:
		panic(fmt.Sprintf("rdatom: Size is undefined for %T", a))
	}
}

// CodeLocation pins a code position: the block it belongs to, the
// statement index within the block's IR, and (when known) the
// instruction address the statement lowers from. External is set for the
// distinguished sentinel location representing definitions that existed
// before analysis started (initial state, external callers).
type CodeLocation struct {
	BlockAddr uint64
	StmtIdx   int
	InsAddr   uint64
	HasIns    bool
	External  bool
}

func (c CodeLocation) String() string {
	if c.External {
		return "[External]"
	}
	if c.HasIns {
		return fmt.Sprintf("<%#x[%d] ins=%#x>", c.BlockAddr, c.StmtIdx, c.InsAddr)
	}
	return fmt.Sprintf("<%#x[%d]>", c.BlockAddr, c.StmtIdx)
}

// NewCodeLocation builds a code location for a statement with a known
// instruction address.
func NewCodeLocation(blockAddr uint64, stmtIdx int, insAddr uint64) CodeLocation {
	return CodeLocation{BlockAddr: blockAddr, StmtIdx: stmtIdx, InsAddr: insAddr, HasIns: true}
}

// ExternalCodeLocation returns the sentinel location for definitions that
// predate the analysed region: the initial state and external callers.
func ExternalCodeLocation() CodeLocation {
	return CodeLocation{External: true}
}

// SpOffset is a symbolic offset from the stack pointer at function entry.
// IsBase distinguishes the frame base (e.g. a saved RBP value) from the
// raw stack-pointer-relative top of stack.
type SpOffset struct {
	Bits   int
	Offset int64
	IsBase bool
}

func (s SpOffset) String() string {
	if s.IsBase {
		return fmt.Sprintf("<SpOffset(base) %d>", s.Offset)
	}
	return fmt.Sprintf("<SpOffset %d>", s.Offset)
}

// RegisterOffset is a symbolic offset from an arbitrary register's value
// at function entry (used by the AIL engine to stand in for "this
// register's incoming value" when no definition covers it yet).
type RegisterOffset struct {
	Bits      int
	RegOffset int
	Offset    int64
	IsBase    bool
}

func (r RegisterOffset) String() string {
	return fmt.Sprintf("<RegisterOffset reg=%d off=%d>", r.RegOffset, r.Offset)
}
