package rdstate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/oisee/reachdef/internal/toyprogram"
	"github.com/oisee/reachdef/pkg/rdatom"
	"github.com/oisee/reachdef/pkg/rdvalue"
)

func loc(stmt int) rdatom.CodeLocation { return rdatom.NewCodeLocation(0x2000, stmt, 0x2000) }

func TestKillAndAddDefinitionDetectsDeadVirginRegister(t *testing.T) {
	s := New(false)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}

	first, err := s.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// first is replaced before ever being used: it must be flagged dead-virgin.
	_, err = s.KillAndAddDefinition(rax, loc(1), rdvalue.Singleton(64, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, dead := s.DeadVirginDefinitions[first]; !dead {
		t.Fatal("a definition replaced without ever being used should be recorded as dead-virgin")
	}
}

func TestKillAndAddDefinitionSkipsUsedDefinitions(t *testing.T) {
	s := New(false)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}

	first, err := s.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.AddUse(rax, loc(1))

	_, err = s.KillAndAddDefinition(rax, loc(2), rdvalue.Singleton(64, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, dead := s.DeadVirginDefinitions[first]; dead {
		t.Fatal("a definition that was used before replacement must not be flagged dead-virgin")
	}
}

func TestKillAndAddDefinitionMemoryInstalledDirectly(t *testing.T) {
	s := New(false)
	ml := rdatom.MemoryLocation{Addr: 0x8000, Size: 8}
	def, err := s.KillAndAddDefinition(ml, loc(0), rdvalue.Singleton(64, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.MemoryDefinitions.GetObjectsByOffset(0x8000)
	if len(got) != 1 || got[0] != def {
		t.Fatalf("expected the installed memory definition to be retrievable, got %v", got)
	}
}

func TestReadRegisterFallsBackToUndefined(t *testing.T) {
	s := New(false)
	out := s.ReadRegister(toyprogram.RegRAX, 64, loc(0))
	if !out.HasUndefined() {
		t.Fatalf("reading a register with no definitions must yield Undefined, got %v", out.Values())
	}
}

func TestReadRegisterUnionsExistingDefinitions(t *testing.T) {
	s := New(false)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}
	s.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 9))

	out := s.ReadRegister(toyprogram.RegRAX, 64, loc(1))
	got, ok := out.SoleConcreteInt()
	if !ok || got != 9 {
		t.Fatalf("expected to read back the installed value 9, got %v", out.Values())
	}
}

func TestCopyIsIndependent(t *testing.T) {
	s := New(true)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}
	s.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))

	cp := s.Copy()
	rbx := rdatom.Register{RegOffset: toyprogram.RegRBX, Size: 8}
	cp.KillAndAddDefinition(rbx, loc(1), rdvalue.Singleton(64, 2))

	if len(s.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRBX)) != 0 {
		t.Fatal("mutating a copy must not affect the original state")
	}
}

func TestMergeUnionsDefinitionsAndDropsTmps(t *testing.T) {
	a := New(true)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}
	a.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))
	a.KillAndAddDefinition(rdatom.Temporary{TmpIdx: 0}, loc(0), rdvalue.Singleton(64, 1))

	b := New(true)
	rbx := rdatom.Register{RegOffset: toyprogram.RegRBX, Size: 8}
	b.KillAndAddDefinition(rbx, loc(0), rdvalue.Singleton(64, 2))

	merged := a.Merge(b)
	if len(merged.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRAX)) == 0 {
		t.Fatal("merge should retain a's register definitions")
	}
	if len(merged.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRBX)) == 0 {
		t.Fatal("merge should union in b's register definitions")
	}
	if len(merged.TmpDefinitions) != 0 {
		t.Fatal("temporaries are block-scoped and must not survive a merge")
	}
}

func TestEqualIgnoresTmpsButComparesDefinitions(t *testing.T) {
	a := New(true)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}
	a.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))

	b := a.Copy()
	b.KillAndAddDefinition(rdatom.Temporary{TmpIdx: 0}, loc(0), rdvalue.Singleton(64, 99))

	if !a.Equal(b) {
		t.Fatal("Equal must ignore temporaries, which are not part of observable state")
	}

	b.KillAndAddDefinition(rax, loc(1), rdvalue.Singleton(64, 2))
	if a.Equal(b) {
		t.Fatal("states with different register definitions must not compare Equal")
	}
}

func TestInitFuncSeedsStackPointerAndArguments(t *testing.T) {
	s := New(false)
	arch := toyprogram.Arch()
	cc := toyprogram.CallingConvention()

	if err := s.InitFunc(arch, &cc, nil, 0x401000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spDefs := s.RegisterDefinitions.GetObjectsByOffset(int64(toyprogram.RegRSP))
	if len(spDefs) != 1 {
		t.Fatalf("expected exactly one stack-pointer definition, got %d", len(spDefs))
	}
	got, ok := spDefs[0].Data.SoleConcreteInt()
	if !ok || got != arch.InitialSP {
		t.Fatalf("stack pointer should be seeded with the architecture's initial SP, got %v", spDefs[0].Data.Values())
	}

	raxDefs := s.RegisterDefinitions.GetObjectsByOffset(int64(toyprogram.RegRAX))
	if len(raxDefs) != 1 {
		t.Fatalf("expected the first register argument (rax) to be seeded, got %d defs", len(raxDefs))
	}
	if _, ok := raxDefs[0].Data.SoleConcreteInt(); ok {
		t.Fatal("a register argument should be a symbolic Parameter value, not a concrete int")
	}

	memDefs := s.MemoryDefinitions.Entries()
	if len(memDefs) != 1 {
		t.Fatalf("expected exactly one stack-argument memory definition, got %d", len(memDefs))
	}
}

func TestCopyProducesStructurallyIdenticalRegisterDefinitions(t *testing.T) {
	s := New(false)
	rax := rdatom.Register{RegOffset: toyprogram.RegRAX, Size: 8}
	s.KillAndAddDefinition(rax, loc(0), rdvalue.Singleton(64, 1))

	cp := s.Copy()
	want := s.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRAX)[0].Data.Values()
	got := cp.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRAX)[0].Data.Values()
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b rdvalue.Value) bool {
		return a.String() < b.String()
	})); diff != "" {
		t.Fatalf("copied register definition's data diverged from the original (-want +got):\n%s", diff)
	}
}
