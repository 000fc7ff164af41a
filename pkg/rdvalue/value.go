// Package rdvalue implements DataSet, the reaching-definitions analysis's
// abstract value domain: a set of concrete integers, symbolic offsets,
// parameter markers, booleans, and the absorbing Undefined element, all
// closed under the IR's arithmetic and logical operators.
package rdvalue

import (
	"fmt"

	"github.com/oisee/reachdef/pkg/rdatom"
)

// Kind tags the variant of a Value.
type Kind int

const (
	KindInt Kind = iota
	KindBool
	KindSpOffset
	KindRegisterOffset
	KindParameter
	KindUndefined
)

// ParamKind distinguishes the two things a Parameter can wrap.
type ParamKind int

const (
	ParamRegister ParamKind = iota
	ParamSpOffset
)

// Parameter marks "the caller supplied this" — either a Register's
// incoming value or a stack slot's incoming value.
type Parameter struct {
	Kind ParamKind
	Reg  rdatom.Register
	Sp   rdatom.SpOffset
}

func (p Parameter) String() string {
	if p.Kind == ParamRegister {
		return fmt.Sprintf("Parameter(%s)", p.Reg)
	}
	return fmt.Sprintf("Parameter(%s)", p.Sp)
}

// Value is one member of a DataSet. It is a comparable struct (no
// pointers or slices) so DataSets can use it as a Go map key directly,
// the same way the set-valued lattice element is implemented as a hash
// set in the source this analysis is modelled on.
type Value struct {
	Kind Kind
	Int  uint64
	Bool bool
	Sp   rdatom.SpOffset
	Reg  rdatom.RegisterOffset
	Param Parameter
}

// Int64 builds a concrete-integer Value.
func Int64(v uint64) Value { return Value{Kind: KindInt, Int: v} }

// Bool64 builds a boolean Value.
func Bool64(v bool) Value { return Value{Kind: KindBool, Bool: v} }

// SpOffsetValue wraps a symbolic stack offset.
func SpOffsetValue(o rdatom.SpOffset) Value { return Value{Kind: KindSpOffset, Sp: o} }

// RegisterOffsetValue wraps a symbolic register offset.
func RegisterOffsetValue(o rdatom.RegisterOffset) Value { return Value{Kind: KindRegisterOffset, Reg: o} }

// ParameterValue wraps a Parameter marker.
func ParameterValue(p Parameter) Value { return Value{Kind: KindParameter, Param: p} }

// Undefined is the singleton absorbing top element. Every numeric
// operator, given Undefined on either side, returns Undefined.
var Undefined = Value{Kind: KindUndefined}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%#x", v.Int)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindSpOffset:
		return v.Sp.String()
	case KindRegisterOffset:
		return v.Reg.String()
	case KindParameter:
		return v.Param.String()
	default:
		return "Undefined"
	}
}

// IsUndefined reports whether v is the Undefined sentinel.
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// IsInt reports whether v is a concrete integer.
func (v Value) IsInt() bool { return v.Kind == KindInt }
