package rddef

import (
	"testing"

	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

func reg(off, size int) rdatom.Register { return rdatom.Register{RegOffset: off, Size: size} }

func loc(stmt int) rdatom.CodeLocation { return rdatom.NewCodeLocation(0x1000, stmt, 0x1000) }

func TestDefinitionEqualIsStructuralNotJustIdentity(t *testing.T) {
	a := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	b := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	if a == b {
		t.Fatal("test setup: expected distinct pointers")
	}
	if !a.Equal(b) {
		t.Fatal("two definitions with identical atom/codeloc/data must compare Equal")
	}
	if !a.Equal(a) {
		t.Fatal("a definition must equal itself")
	}
}

func TestDefinitionEqualDistinguishesData(t *testing.T) {
	a := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	b := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 2))
	if a.Equal(b) {
		t.Fatal("definitions with different data must not compare Equal")
	}
}

func TestDefinitionOffsetAndSize(t *testing.T) {
	d := New(reg(16, 4), loc(0), rdvalue.Singleton(32, 0))
	if d.Offset() != 16 {
		t.Fatalf("Offset() = %d, want 16", d.Offset())
	}
	if d.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", d.Size())
	}
}

func TestUsesTracksLocationsByPointerIdentity(t *testing.T) {
	u := NewUses()
	d1 := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	d2 := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1)) // structurally equal, distinct pointer

	u.AddUse(d1, loc(1))
	u.AddUse(d1, loc(2))

	locs := u.UsesOf(d1)
	if len(locs) != 2 {
		t.Fatalf("expected 2 recorded uses of d1, got %d", len(locs))
	}
	if locs := u.UsesOf(d2); len(locs) != 0 {
		t.Fatalf("d2 is pointer-distinct from d1 and was never used, expected 0 uses, got %d", len(locs))
	}
}

func TestUsesCurrentUsesReflectsLiveness(t *testing.T) {
	u := NewUses()
	d := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	if u.CurrentUses(d) {
		t.Fatal("a definition with no recorded use must not show as currently used")
	}
	u.AddUse(d, loc(1))
	if !u.CurrentUses(d) {
		t.Fatal("after AddUse, CurrentUses must report true")
	}
}

func TestUsesCopyIsIndependent(t *testing.T) {
	u := NewUses()
	d := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	u.AddUse(d, loc(1))

	cp := u.Copy()
	other := New(reg(8, 8), loc(0), rdvalue.Singleton(64, 1))
	cp.AddUse(other, loc(2))

	if len(u.UsesOf(other)) != 0 {
		t.Fatal("mutating a copy's Uses must not affect the original")
	}
}

func TestUsesMergeUnionsBothSides(t *testing.T) {
	a := NewUses()
	b := NewUses()
	d := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 1))
	a.AddUse(d, loc(1))
	b.AddUse(d, loc(2))

	merged := a.Merge(b)
	locs := merged.UsesOf(d)
	if len(locs) != 2 {
		t.Fatalf("merged Uses should contain both recorded locations, got %d", len(locs))
	}
}

func TestRegionSetAndGetDefinition(t *testing.T) {
	r := NewRegion()
	d := New(reg(0, 8), loc(0), rdvalue.Singleton(64, 42))
	r.SetObject(d.Offset(), d, int64(d.Size()))

	got := r.GetObjectsByOffset(0)
	if len(got) != 1 || got[0] != d {
		t.Fatalf("expected to retrieve the installed definition, got %v", got)
	}
}
