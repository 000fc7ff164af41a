package rdfix

import (
	"testing"

	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/internal/toyprogram"
)

func TestDriverMergesDiamondBranches(t *testing.T) {
	g := toyprogram.NewTwoBlockVEXGraph()
	target, err := NewTarget(&FuncTarget{Graph: g, Addr: uint64(g.Entry())}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts := Options{
		Arch:              toyprogram.Arch(),
		Log:               rdlog.Nop(),
		TrackTmps:         true,
		ObservationPoints: []ObservationKey{{InsAddr: g.TailAddr(), Point: After}},
	}
	driver := NewDriver(opts)
	result, err := driver.Run(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, ok := result.At(g.TailAddr(), After)
	if !ok {
		t.Fatal("expected a state observed at the tail block's after point")
	}
	tmp, ok := st.TmpDefinitions[0]
	if !ok {
		t.Fatal("expected the tail's read of rax to have defined t0")
	}
	vals := tmp.Data.ConcreteInts()
	if len(vals) != 2 {
		t.Fatalf("expected the join to carry both branch values {1,2}, got %v", tmp.Data.Values())
	}
	seen := map[uint64]bool{}
	for _, v := range vals {
		seen[v] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected {1,2} after merging both diamond branches, got %v", vals)
	}
}

func TestDriverWithoutObservationPointsHasNoOneResult(t *testing.T) {
	b := toyprogram.ConstantPropagationBlock()
	target, err := NewTarget(nil, &BlockTarget{VEXBlock: b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := Options{Arch: toyprogram.Arch(), Log: rdlog.Nop()}
	result, err := NewDriver(opts).Run(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := result.One(); err == nil {
		t.Fatal("One() must fail when no observation points were requested")
	}
}

func TestNewTargetRejectsBothOrNeither(t *testing.T) {
	if _, err := NewTarget(nil, nil); err == nil {
		t.Fatal("expected an error when neither a function nor a block target is supplied")
	}
	g := toyprogram.NewTwoBlockVEXGraph()
	b := toyprogram.ConstantPropagationBlock()
	if _, err := NewTarget(&FuncTarget{Graph: g, Addr: uint64(g.Entry())}, &BlockTarget{VEXBlock: b}); err == nil {
		t.Fatal("expected an error when both a function and a block target are supplied")
	}
}
