package rdvalue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oisee/reachdef/pkg/rdatom"
)

func TestNewNeverEmpty(t *testing.T) {
	ds := New(32)
	if !ds.Has(Undefined) {
		t.Fatalf("New() with no values should fall back to {Undefined}, got %v", ds.Values())
	}
}

func TestUnionPreservesNonEmptiness(t *testing.T) {
	a := Singleton(32, 1)
	b := New(32)
	out := a.Union(b)
	if out.IsEmpty() {
		t.Fatal("union of two non-empty DataSets must not be empty")
	}
}

func TestMaskLaw(t *testing.T) {
	a := Singleton(8, 250)
	b := Singleton(8, 10)
	sum := a.BinOp(b, 8, func(x, y uint64) uint64 { return x + y })
	got, ok := sum.SoleConcreteInt()
	if !ok {
		t.Fatalf("expected a singleton concrete int, got %v", sum.Values())
	}
	want := (250 + 10) % 256
	if got != uint64(want) {
		t.Fatalf("mask law violated: got %d want %d", got, want)
	}
}

func TestBinOpAbsorbsUndefined(t *testing.T) {
	x := Singleton(32, 5)
	u := UndefinedSet(32)
	out := x.BinOp(u, 32, func(a, b uint64) uint64 { return a + b })
	if !out.HasUndefined() {
		t.Fatalf("Undefined must absorb through BinOp, got %v", out.Values())
	}
	if len(out.Data) != 1 {
		t.Fatalf("x + {Undefined} should collapse to exactly {Undefined}, got %v", out.Values())
	}
}

func TestBinOpTypeMismatchWidensToUndefined(t *testing.T) {
	sp := New(64, SpOffsetValue(rdatom.SpOffset{Bits: 64, Offset: 8}))
	concrete := Singleton(64, 4)
	out := sp.BinOp(concrete, 64, func(a, b uint64) uint64 { return a + b })
	if !out.HasUndefined() {
		t.Fatalf("incompatible operand kinds must widen to Undefined, got %v", out.Values())
	}
}

func TestCopyIsIndependent(t *testing.T) {
	a := Singleton(32, 1)
	b := a.Copy()
	b.Add(Int64(2))
	if a.Has(Int64(2)) {
		t.Fatal("mutating a copy must not affect the original")
	}
	if !a.Equal(Singleton(32, 1)) {
		t.Fatal("original should remain a singleton after copying")
	}
}

func TestCmpEQSingleton(t *testing.T) {
	a := Singleton(32, 7)
	b := Singleton(32, 7)
	out := a.CmpEQ(b)
	got, ok := out.SoleBool()
	if !ok || !got {
		t.Fatalf("expected singleton true, got %v", out.Values())
	}
}

func TestCmpEQWidensWhenNotSingleton(t *testing.T) {
	a := New(32, Int64(1), Int64(2))
	b := Singleton(32, 1)
	out := a.CmpEQ(b)
	if _, ok := out.SoleBool(); ok {
		t.Fatalf("non-singleton operand must widen to {true,false}, got %v", out.Values())
	}
	if !out.Has(Bool64(true)) || !out.Has(Bool64(false)) {
		t.Fatalf("expected both booleans present, got %v", out.Values())
	}
}

func TestCmpORDTriCode(t *testing.T) {
	cases := []struct {
		a, b uint64
		want uint64
	}{
		{1, 2, OrdLT},
		{2, 1, OrdGT},
		{3, 3, OrdEQ},
	}
	for _, c := range cases {
		out := Singleton(32, c.a).CmpORD(Singleton(32, c.b))
		got, ok := out.SoleConcreteInt()
		if !ok || got != c.want {
			t.Fatalf("CmpORD(%d,%d) = %v, want %#x", c.a, c.b, out.Values(), c.want)
		}
	}
}

func TestConvertWidthMasksIntegers(t *testing.T) {
	a := Singleton(32, 0x1FF)
	out := a.ConvertWidth(8)
	got, ok := out.SoleConcreteInt()
	assert.True(t, ok, "expected a singleton concrete int, got %v", out.Values())
	assert.Equal(t, uint64(0xFF), got, "narrowing to 8 bits should mask to 0xFF")
}

