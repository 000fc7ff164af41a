// Package toyprogram supplies a minimal, self-contained fixture standing
// in for a real lifter/loader: a small x86_64-shaped Architecture, an
// in-memory Loader, and a couple of hand-built VEX/AIL blocks used by the
// CLI demo and by package tests.
package toyprogram

import "github.com/oisee/reachdef/pkg/rdir"

// Register offsets, arbitrary but fixed, loosely modelled on amd64's
// VEX guest-state layout (rax at 16, rsp at 48, rip at 184 in a real
// libVEX build; here just small distinct integers, since nothing reads
// these offsets except this fixture itself).
const (
	RegRAX    = 0
	RegRBX    = 8
	RegRCX    = 16
	RegRSP    = 24
	RegRBP    = 32
	RegRIP    = 40
	RegCCOp   = 48
	RegCCDep1 = 56
	RegCCDep2 = 64
	RegCCNdep = 72
)

// Arch returns the fixture's Architecture descriptor: 64-bit, little
// endian, with a handful of named registers.
func Arch() rdir.Architecture {
	return rdir.Architecture{
		Name:     "toy-amd64",
		Bits:     64,
		Bytes:    8,
		SPOffset: RegRSP,
		BPOffset: RegRBP,
		IPOffset: RegRIP,
		MemoryEndness: rdir.LittleEndian,
		Registers: map[string]rdir.RegisterInfo{
			"rax":      {Offset: RegRAX, Size: 8},
			"rbx":      {Offset: RegRBX, Size: 8},
			"rcx":      {Offset: RegRCX, Size: 8},
			"rsp":      {Offset: RegRSP, Size: 8},
			"rbp":      {Offset: RegRBP, Size: 8},
			"rip":      {Offset: RegRIP, Size: 8},
			"cc_op":    {Offset: RegCCOp, Size: 8},
			"cc_dep1":  {Offset: RegCCDep1, Size: 8},
			"cc_dep2":  {Offset: RegCCDep2, Size: 8},
			"cc_ndep":  {Offset: RegCCNdep, Size: 8},
		},
		RegisterNames: map[int]string{
			RegRAX: "rax", RegRBX: "rbx", RegRCX: "rcx", RegRSP: "rsp",
			RegRBP: "rbp", RegRIP: "rip",
		},
		InitialSP: 0x7ffffffde000,
	}
}

// CallingConvention returns a small SysV-shaped calling convention: the
// first two integer arguments in rdi/rsi-equivalents (modelled here as
// rax/rbx to stay within the fixture's tiny register set), caller-saved
// rax/rcx.
func CallingConvention() rdir.CallingConvention {
	return rdir.CallingConvention{
		Args: []rdir.SimArg{
			rdir.SimRegArg{RegName: "rax", Size: 8},
			rdir.SimRegArg{RegName: "rbx", Size: 8},
			rdir.SimStackArg{StackOffset: 8, Size: 8},
		},
		CallerSavedRegs: []string{"rax", "rcx"},
	}
}
