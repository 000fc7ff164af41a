package toyprogram

import (
	"github.com/oisee/reachdef/pkg/rdir"
	"github.com/oisee/reachdef/pkg/rdir/ail"
	"github.com/oisee/reachdef/pkg/rdir/vex"
)

// ConstantPropagationBlock builds the scenario-1 fixture: PUT(rax) =
// 0x1234 at ins 0x1000, then t0 = GET(rax) at ins 0x1004.
func ConstantPropagationBlock() *vex.Block {
	return &vex.Block{
		Addr:     0x1000,
		Jumpkind: vex.JumpBoring,
		Statements: []*vex.Stmt{
			{Kind: vex.IMark, InsAddr: 0x1000},
			{Kind: vex.Put, Offset: RegRAX, Data: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 0x1234}},
			{Kind: vex.IMark, InsAddr: 0x1004},
			vex.WrTmpExpr(0, &vex.Expr{Kind: vex.ExGet, Bits: 64, Offset: RegRAX}),
		},
	}
}

// MemoryRoundTripBlock builds the scenario-2 fixture: STle(0x4000) =
// 0xAA, then t0 = LDle:I8(0x4000).
func MemoryRoundTripBlock() *vex.Block {
	addrExpr := &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 0x4000}
	return &vex.Block{
		Addr:     0x2000,
		Jumpkind: vex.JumpBoring,
		Statements: []*vex.Stmt{
			{Kind: vex.IMark, InsAddr: 0x2000},
			{Kind: vex.Store, Addr: addrExpr, Data: &vex.Expr{Kind: vex.ExConst, Bits: 8, ConstVal: 0xAA}},
			{Kind: vex.IMark, InsAddr: 0x2004},
			vex.WrTmpExpr(0, vex.LoadExpr(addrExpr, 8)),
		},
	}
}

// MultiValuedAddressBlock builds the scenario-3 fixture: tAddr is
// written with the union {0x4000, 0x4008} via an ITE on an unresolved
// condition, then STle(tAddr) = 0x55.
func MultiValuedAddressBlock() *vex.Block {
	cond := &vex.Expr{Kind: vex.ExGet, Bits: 1, Offset: RegRCX}
	ite := &vex.Expr{
		Kind: vex.ExITE, Bits: 64,
		Cond:    cond,
		IfTrue:  &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 0x4000},
		IfFalse: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 0x4008},
	}
	return &vex.Block{
		Addr:     0x3000,
		Jumpkind: vex.JumpBoring,
		Statements: []*vex.Stmt{
			{Kind: vex.IMark, InsAddr: 0x3000},
			vex.WrTmpExpr(0, ite),
			{Kind: vex.IMark, InsAddr: 0x3004},
			{Kind: vex.Store, Addr: &vex.Expr{Kind: vex.ExRdTmp, Bits: 64, Tmp: 0}, Data: &vex.Expr{Kind: vex.ExConst, Bits: 8, ConstVal: 0x55}},
		},
	}
}

// DeadVirginBlock builds the scenario-4 fixture: PUT(rax) = 1 at L1,
// PUT(rax) = 2 at L2, with no intervening Get.
func DeadVirginBlock() *vex.Block {
	return &vex.Block{
		Addr:     0x4000,
		Jumpkind: vex.JumpBoring,
		Statements: []*vex.Stmt{
			{Kind: vex.IMark, InsAddr: 0x4000},
			{Kind: vex.Put, Offset: RegRAX, Data: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 1}},
			{Kind: vex.IMark, InsAddr: 0x4004},
			{Kind: vex.Put, Offset: RegRAX, Data: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 2}},
		},
	}
}

// CallBlock builds the scenario-6 fixture: rax and rcx hold concrete
// definitions, then a Call statement with caller-saved {rax, rcx}.
func CallBlock(target uint64) *ail.Block {
	return &ail.Block{
		Addr: 0x5000,
		Statements: []*ail.Stmt{
			{Kind: ail.Assignment, InsAddr: 0x5000, Dst: &ail.Expr{Kind: ail.ExRegister, Bits: 64, RegOffset: RegRAX}, Src: &ail.Expr{Kind: ail.ExConst, Bits: 64, ConstVal: 0x11}},
			{Kind: ail.Assignment, InsAddr: 0x5004, Dst: &ail.Expr{Kind: ail.ExRegister, Bits: 64, RegOffset: RegRCX}, Src: &ail.Expr{Kind: ail.ExConst, Bits: 64, ConstVal: 0x22}},
			{Kind: ail.Assignment, InsAddr: 0x5008, Dst: &ail.Expr{Kind: ail.ExRegister, Bits: 64, RegOffset: RegRBX}, Src: &ail.Expr{Kind: ail.ExConst, Bits: 64, ConstVal: 0x33}},
			{
				Kind: ail.Call, InsAddr: 0x500c,
				Target:          &ail.Expr{Kind: ail.ExConst, Bits: 64, ConstVal: target},
				CallerSavedRegs: []string{"rax", "rcx"},
			},
		},
	}
}

// singleVEXGraph and singleAILGraph aren't needed directly — callers use
// rdir.NewSingleVEXBlockGraph / rdir.NewSingleAILBlockGraph for these
// single-block fixtures. TwoBlockVEXGraph below is the multi-block case
// used to exercise the driver's merge/worklist logic end to end.

// TwoBlockVEXGraph links an entry block that conditionally branches into
// two successors rejoining at a shared tail, giving the driver an actual
// join point to merge.
type TwoBlockVEXGraph struct {
	entry, left, right, tail rdir.BlockID
	blocks                   map[rdir.BlockID]*vex.Block
	succs                    map[rdir.BlockID][]rdir.BlockID
	preds                    map[rdir.BlockID][]rdir.BlockID
}

// NewTwoBlockVEXGraph builds the diamond-shaped CFG: entry -> {left,
// right} -> tail. The left block sets rax := 1 and the right block
// rax := 2; tail reads rax, producing a two-member DataSet after merge.
func NewTwoBlockVEXGraph() *TwoBlockVEXGraph {
	entryAddr, leftAddr, rightAddr, tailAddr := rdir.BlockID(0x6000), rdir.BlockID(0x6100), rdir.BlockID(0x6200), rdir.BlockID(0x6300)
	g := &TwoBlockVEXGraph{
		entry: entryAddr, left: leftAddr, right: rightAddr, tail: tailAddr,
		blocks: map[rdir.BlockID]*vex.Block{
			entryAddr: {
				Addr: uint64(entryAddr), Jumpkind: vex.JumpBoring,
				Statements: []*vex.Stmt{{Kind: vex.IMark, InsAddr: uint64(entryAddr)}},
			},
			leftAddr: {
				Addr: uint64(leftAddr), Jumpkind: vex.JumpBoring,
				Statements: []*vex.Stmt{
					{Kind: vex.IMark, InsAddr: uint64(leftAddr)},
					{Kind: vex.Put, Offset: RegRAX, Data: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 1}},
				},
			},
			rightAddr: {
				Addr: uint64(rightAddr), Jumpkind: vex.JumpBoring,
				Statements: []*vex.Stmt{
					{Kind: vex.IMark, InsAddr: uint64(rightAddr)},
					{Kind: vex.Put, Offset: RegRAX, Data: &vex.Expr{Kind: vex.ExConst, Bits: 64, ConstVal: 2}},
				},
			},
			tailAddr: {
				Addr: uint64(tailAddr), Jumpkind: vex.JumpRet,
				Statements: []*vex.Stmt{
					{Kind: vex.IMark, InsAddr: uint64(tailAddr)},
					vex.WrTmpExpr(0, &vex.Expr{Kind: vex.ExGet, Bits: 64, Offset: RegRAX}),
				},
			},
		},
		succs: map[rdir.BlockID][]rdir.BlockID{
			entryAddr: {leftAddr, rightAddr},
			leftAddr:  {tailAddr},
			rightAddr: {tailAddr},
			tailAddr:  nil,
		},
		preds: map[rdir.BlockID][]rdir.BlockID{
			entryAddr: nil,
			leftAddr:  {entryAddr},
			rightAddr: {entryAddr},
			tailAddr:  {leftAddr, rightAddr},
		},
	}
	return g
}

func (g *TwoBlockVEXGraph) Entry() rdir.BlockID { return g.entry }
func (g *TwoBlockVEXGraph) Blocks() []rdir.BlockID {
	return []rdir.BlockID{g.entry, g.left, g.right, g.tail}
}
func (g *TwoBlockVEXGraph) Preds(b rdir.BlockID) []rdir.BlockID { return g.preds[b] }
func (g *TwoBlockVEXGraph) Succs(b rdir.BlockID) []rdir.BlockID { return g.succs[b] }
func (g *TwoBlockVEXGraph) Dialect(rdir.BlockID) rdir.Dialect   { return rdir.DialectVEX }
func (g *TwoBlockVEXGraph) VEXBlock(b rdir.BlockID) *vex.Block  { return g.blocks[b] }
func (g *TwoBlockVEXGraph) AILBlock(rdir.BlockID) *ail.Block    { return nil }

// TailAddr exposes the join block's address for tests/demos that want to
// set an observation point there.
func (g *TwoBlockVEXGraph) TailAddr() uint64 { return uint64(g.tail) }
