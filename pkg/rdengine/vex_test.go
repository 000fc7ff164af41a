package rdengine

import (
	"testing"

	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/internal/toyprogram"
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdir/vex"
	"github.com/oisee/reachdef/pkg/rdstate"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

func newVEXEngine() *VEXEngine {
	return NewVEXEngine(Options{Arch: toyprogram.Arch(), Log: rdlog.Nop()})
}

func TestVEXConstantPropagation(t *testing.T) {
	e := newVEXEngine()
	b := toyprogram.ConstantPropagationBlock()
	st := rdstate.New(true)

	out, err := e.ProcessBlock(b, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tmp, ok := out.TmpDefinitions[0]
	if !ok {
		t.Fatal("expected t0 to be defined")
	}
	got, ok := tmp.Data.SoleConcreteInt()
	if !ok || got != 0x1234 {
		t.Fatalf("expected t0 = 0x1234 propagated from the Put, got %v", tmp.Data.Values())
	}
}

func TestVEXMemoryRoundTrip(t *testing.T) {
	e := newVEXEngine()
	b := toyprogram.MemoryRoundTripBlock()
	st := rdstate.New(true)

	out, err := e.ProcessBlock(b, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tmp, ok := out.TmpDefinitions[0]
	if !ok {
		t.Fatal("expected t0 to be defined by the load")
	}
	got, ok := tmp.Data.SoleConcreteInt()
	if !ok || got != 0xAA {
		t.Fatalf("expected the load to read back the stored byte 0xAA, got %v", tmp.Data.Values())
	}

	memDefs := out.MemoryDefinitions.GetObjectsByOffset(0x4000)
	if len(memDefs) != 1 {
		t.Fatalf("expected exactly one memory definition at 0x4000, got %d", len(memDefs))
	}
}

func TestVEXMultiValuedAddressStore(t *testing.T) {
	e := newVEXEngine()
	b := toyprogram.MultiValuedAddressBlock()
	st := rdstate.New(true)

	out, err := e.ProcessBlock(b, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, addr := range []int64{0x4000, 0x4008} {
		defs := out.MemoryDefinitions.GetObjectsByOffset(addr)
		if len(defs) != 1 {
			t.Fatalf("expected a store to have landed at %#x, got %d definitions", addr, len(defs))
		}
		got, ok := defs[0].Data.SoleConcreteInt()
		if !ok || got != 0x55 {
			t.Fatalf("expected 0x55 stored at %#x, got %v", addr, defs[0].Data.Values())
		}
	}
}

func TestVEXBinopDispatchesSarAsArithmeticShift(t *testing.T) {
	e := newVEXEngine()
	st := rdstate.New(false)
	loc := rdatom.NewCodeLocation(0x9000, 0, 0x9000)

	expr := &vex.Expr{
		Kind: vex.ExBinop, Bits: 8, Op: "Sar8",
		Args: []*vex.Expr{
			{Kind: vex.ExConst, Bits: 8, ConstVal: 0xFF}, // -1 in 8-bit two's complement
			{Kind: vex.ExConst, Bits: 8, ConstVal: 1},
		},
	}
	out, err := e.evalExpr(expr, loc, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := out.SoleConcreteInt()
	if !ok || got != 0xFF {
		t.Fatalf("Sar8(0xFF, 1) should sign-extend to 0xFF, got %v", out.Values())
	}
}

func TestVEXBinopDispatchesCmpORD(t *testing.T) {
	e := newVEXEngine()
	st := rdstate.New(false)
	loc := rdatom.NewCodeLocation(0x9100, 0, 0x9100)

	expr := &vex.Expr{
		Kind: vex.ExBinop, Bits: 32, Op: "CmpORD32S",
		Args: []*vex.Expr{
			{Kind: vex.ExConst, Bits: 32, ConstVal: 1},
			{Kind: vex.ExConst, Bits: 32, ConstVal: 2},
		},
	}
	out, err := e.evalExpr(expr, loc, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := rdvalue.Singleton(32, rdvalue.OrdLT)
	if !out.Equal(want) {
		t.Fatalf("CmpORD32S(1, 2) should reach DataSet.CmpORD and yield the LT tri-code, got %v", out.Values())
	}
}

func TestVEXDeadVirginDetection(t *testing.T) {
	e := newVEXEngine()
	b := toyprogram.DeadVirginBlock()
	st := rdstate.New(false)

	out, err := e.ProcessBlock(b, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.DeadVirginDefinitions) != 1 {
		t.Fatalf("expected exactly one dead-virgin definition (the first Put, never read before being replaced), got %d", len(out.DeadVirginDefinitions))
	}
}
