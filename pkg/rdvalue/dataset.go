package rdvalue

// Ordered tri-codes returned by CmpORD for singleton integer operands,
// matching the PowerPC-style condition-register encoding referenced by
// the analysed IR: exactly one bit set depending on LT/GT/EQ.
const (
	OrdLT uint64 = 0x08
	OrdGT uint64 = 0x04
	OrdEQ uint64 = 0x02
)

// DataSet is a set-valued lattice element with an associated bit width.
// All arithmetic on integer members is implicitly taken modulo 2^Bits.
// A DataSet is never empty: kill_and_add_definition-style updates that
// would produce no members instead produce {Undefined}.
type DataSet struct {
	Bits int
	Data map[Value]struct{}
}

// mask returns the bitmask for ds.Bits (all-ones for Bits>=64).
func (ds DataSet) mask() uint64 {
	if ds.Bits <= 0 {
		return 0
	}
	if ds.Bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(ds.Bits)) - 1
}

// New builds a DataSet of the given bit width from the supplied values.
// Integer members are masked to width on construction.
func New(bits int, vals ...Value) DataSet {
	ds := DataSet{Bits: bits, Data: make(map[Value]struct{}, len(vals))}
	for _, v := range vals {
		ds.Add(v)
	}
	if len(ds.Data) == 0 {
		ds.Data[Undefined] = struct{}{}
	}
	return ds
}

// Singleton builds a DataSet containing exactly one concrete integer.
func Singleton(bits int, v uint64) DataSet {
	return New(bits, Int64(v))
}

// UndefinedSet builds the DataSet containing only Undefined.
func UndefinedSet(bits int) DataSet {
	return New(bits, Undefined)
}

// Add inserts v into ds, masking integer values to ds.Bits.
func (ds DataSet) Add(v Value) {
	if v.Kind == KindInt {
		v.Int &= ds.mask()
	}
	ds.Data[v] = struct{}{}
}

// IsEmpty reports whether ds has no members. DataSets built by New,
// Singleton, UndefinedSet and the operators are never empty; the zero
// DataSet is.
func (ds DataSet) IsEmpty() bool { return len(ds.Data) == 0 }

// Has reports whether v is a member of ds.
func (ds DataSet) Has(v Value) bool {
	_, ok := ds.Data[v]
	return ok
}

// HasUndefined reports whether Undefined is a member of ds.
func (ds DataSet) HasUndefined() bool { return ds.Has(Undefined) }

// Copy returns an independent deep copy of ds.
func (ds DataSet) Copy() DataSet {
	out := DataSet{Bits: ds.Bits, Data: make(map[Value]struct{}, len(ds.Data))}
	for v := range ds.Data {
		out.Data[v] = struct{}{}
	}
	return out
}

// Union returns a new DataSet containing every member of ds and other.
// The two operands are expected to share a bit width; when they don't,
// the wider width wins (the narrower side's members were already masked
// at their own construction, so this only affects future operations).
func (ds DataSet) Union(other DataSet) DataSet {
	bits := ds.Bits
	if other.Bits > bits {
		bits = other.Bits
	}
	out := DataSet{Bits: bits, Data: make(map[Value]struct{}, len(ds.Data)+len(other.Data))}
	for v := range ds.Data {
		out.Data[v] = struct{}{}
	}
	for v := range other.Data {
		out.Data[v] = struct{}{}
	}
	return out
}

// Equal reports whether ds and other contain exactly the same members (at
// any bit width — equality here is about observable content).
func (ds DataSet) Equal(other DataSet) bool {
	if len(ds.Data) != len(other.Data) {
		return false
	}
	for v := range ds.Data {
		if _, ok := other.Data[v]; !ok {
			return false
		}
	}
	return true
}

// Values returns the DataSet's members as a slice, for callers that need
// to iterate deterministically after sorting or that just want a count.
func (ds DataSet) Values() []Value {
	out := make([]Value, 0, len(ds.Data))
	for v := range ds.Data {
		out = append(out, v)
	}
	return out
}

// SoleConcreteInt reports whether ds is a singleton containing exactly
// one concrete integer, returning that integer.
func (ds DataSet) SoleConcreteInt() (uint64, bool) {
	if len(ds.Data) != 1 {
		return 0, false
	}
	for v := range ds.Data {
		if v.Kind == KindInt {
			return v.Int, true
		}
	}
	return 0, false
}

// SoleBool reports whether ds is a singleton boolean, returning its value.
func (ds DataSet) SoleBool() (bool, bool) {
	if len(ds.Data) != 1 {
		return false, false
	}
	for v := range ds.Data {
		if v.Kind == KindBool {
			return v.Bool, true
		}
	}
	return false, false
}

// ConcreteInts returns every concrete integer member of ds.
func (ds DataSet) ConcreteInts() []uint64 {
	var out []uint64
	for v := range ds.Data {
		if v.Kind == KindInt {
			out = append(out, v.Int)
		}
	}
	return out
}

// BinOp applies op over the Cartesian product of ds and other's members,
// per Design Notes §9: Undefined is absorbing, integer pairs are computed
// and masked to resultBits, and any other pairing (a TypeError in the
// source this models) contributes Undefined instead of aborting.
func (ds DataSet) BinOp(other DataSet, resultBits int, op func(a, b uint64) uint64) DataSet {
	out := DataSet{Bits: resultBits, Data: make(map[Value]struct{})}
	for a := range ds.Data {
		for b := range other.Data {
			switch {
			case a.Kind == KindUndefined || b.Kind == KindUndefined:
				out.Add(Undefined)
			case a.Kind == KindInt && b.Kind == KindInt:
				out.Add(Int64(op(a.Int, b.Int)))
			default:
				// Unsupported combination (e.g. SpOffset + Parameter):
				// widen to Undefined and keep going, never abort.
				out.Add(Undefined)
			}
		}
	}
	if len(out.Data) == 0 {
		out.Add(Undefined)
	}
	return out
}

// UnaryOp is BinOp's single-operand analogue.
func (ds DataSet) UnaryOp(resultBits int, op func(a uint64) uint64) DataSet {
	out := DataSet{Bits: resultBits, Data: make(map[Value]struct{})}
	for a := range ds.Data {
		switch a.Kind {
		case KindUndefined:
			out.Add(Undefined)
		case KindInt:
			out.Add(Int64(op(a.Int)))
		default:
			out.Add(Undefined)
		}
	}
	if len(out.Data) == 0 {
		out.Add(Undefined)
	}
	return out
}

// cmpOp is the shared implementation for CmpEQ/CmpNE/CmpLT/CmpORD: when
// both sides are singleton integers the result is the singleton
// comparison outcome (boolean, or the ordered tri-code for CmpORD);
// otherwise soundness requires widening to {true, false}.
func (ds DataSet) cmpOp(other DataSet, ordered bool, intCmp func(a, b uint64) (Value, bool)) DataSet {
	av, aok := ds.SoleConcreteInt()
	bv, bok := other.SoleConcreteInt()
	if aok && bok {
		if ds.HasUndefined() || other.HasUndefined() {
			return New(1, Undefined)
		}
		if v, ok := intCmp(av, bv); ok {
			bits := 1
			if ordered {
				bits = 8
			}
			return New(bits, v)
		}
	}
	if ds.HasUndefined() || other.HasUndefined() {
		// Soundness: at least one side may be Undefined, still must widen.
		return New(1, Bool64(true), Bool64(false))
	}
	return New(1, Bool64(true), Bool64(false))
}

// CmpEQ is the equality comparator.
func (ds DataSet) CmpEQ(other DataSet) DataSet {
	return ds.cmpOp(other, false, func(a, b uint64) (Value, bool) { return Bool64(a == b), true })
}

// CmpNE is the inequality comparator.
func (ds DataSet) CmpNE(other DataSet) DataSet {
	return ds.cmpOp(other, false, func(a, b uint64) (Value, bool) { return Bool64(a != b), true })
}

// CmpLT is the unsigned less-than comparator.
func (ds DataSet) CmpLT(other DataSet) DataSet {
	return ds.cmpOp(other, false, func(a, b uint64) (Value, bool) { return Bool64(a < b), true })
}

// CmpLE is the unsigned less-than-or-equal comparator.
func (ds DataSet) CmpLE(other DataSet) DataSet {
	return ds.cmpOp(other, false, func(a, b uint64) (Value, bool) { return Bool64(a <= b), true })
}

// CmpORD returns the PPC-style ordered tri-code for singleton integer
// operands, or {true, false} widened to preserve soundness otherwise.
func (ds DataSet) CmpORD(other DataSet) DataSet {
	return ds.cmpOp(other, true, func(a, b uint64) (Value, bool) {
		switch {
		case a < b:
			return Int64(OrdLT), true
		case a > b:
			return Int64(OrdGT), true
		default:
			return Int64(OrdEQ), true
		}
	})
}

// ConvertWidth re-masks integer members to newBits, rewrites the size of
// Parameter(Register) and the bit width of Parameter(SpOffset) members,
// and passes every other member through unchanged.
func (ds DataSet) ConvertWidth(newBits int) DataSet {
	out := DataSet{Bits: newBits, Data: make(map[Value]struct{}, len(ds.Data))}
	mask := uint64(0)
	if newBits > 0 {
		if newBits >= 64 {
			mask = ^uint64(0)
		} else {
			mask = (uint64(1) << uint(newBits)) - 1
		}
	}
	for v := range ds.Data {
		switch v.Kind {
		case KindInt:
			v.Int &= mask
		case KindParameter:
			switch v.Param.Kind {
			case ParamRegister:
				v.Param.Reg.Size = newBits / 8
			case ParamSpOffset:
				v.Param.Sp.Bits = newBits
			}
		}
		out.Data[v] = struct{}{}
	}
	if len(out.Data) == 0 {
		out.Add(Undefined)
	}
	return out
}
