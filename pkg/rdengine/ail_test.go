package rdengine

import (
	"testing"

	"github.com/oisee/reachdef/internal/rdlog"
	"github.com/oisee/reachdef/internal/toyprogram"
	"github.com/oisee/reachdef/pkg/rdstate"
)

func TestAILCallKillsCallerSavedRegisters(t *testing.T) {
	cc := toyprogram.CallingConvention()
	e := NewAILEngine(Options{Arch: toyprogram.Arch(), CallingConv: &cc, Log: rdlog.Nop()})
	b := toyprogram.CallBlock(0x401000)
	st := rdstate.New(false)

	out, err := e.ProcessBlock(b, st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rax := out.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRAX)
	if len(rax) != 1 {
		t.Fatalf("expected exactly one rax definition after the call, got %d", len(rax))
	}
	if _, ok := rax[0].Data.SoleConcreteInt(); ok {
		t.Fatal("rax is caller-saved and must be killed to Undefined across the call")
	}

	rcx := out.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRCX)
	if len(rcx) != 1 {
		t.Fatalf("expected exactly one rcx definition after the call, got %d", len(rcx))
	}
	if _, ok := rcx[0].Data.SoleConcreteInt(); ok {
		t.Fatal("rcx is caller-saved and must be killed to Undefined across the call")
	}

	rbx := out.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRBX)
	if len(rbx) != 1 {
		t.Fatalf("expected exactly one rbx definition, got %d", len(rbx))
	}
	got, ok := rbx[0].Data.SoleConcreteInt()
	if !ok || got != 0x33 {
		t.Fatalf("rbx is not caller-saved and must survive the call unchanged, got %v", rbx[0].Data.Values())
	}

	ip := out.RegisterDefinitions.GetObjectsByOffset(toyprogram.RegRIP)
	if len(ip) != 1 {
		t.Fatalf("expected the instruction pointer to be killed across the call, got %d definitions", len(ip))
	}
	if _, ok := ip[0].Data.SoleConcreteInt(); ok {
		t.Fatal("the instruction pointer must become Undefined across an unresolved call")
	}
}
