package rdengine

import "testing"

func TestSarOpSignExtends(t *testing.T) {
	cases := []struct {
		bits int
		a, b uint64
		want uint64
	}{
		{8, 0xFF, 1, 0xFF},  // -1 >> 1 == -1
		{8, 0x80, 1, 0xC0},  // -128 >> 1 == -64
		{8, 0x7F, 1, 0x3F},  // 127 >> 1 == 63, MSB clear: behaves like Shr
		{32, 0x80000000, 4, 0xF8000000},
		{64, 0x8000000000000000, 1, 0xC000000000000000},
	}
	for _, c := range cases {
		got := sarOp(c.bits)(c.a, c.b)
		if got != c.want {
			t.Fatalf("sarOp(%d)(%#x, %d) = %#x, want %#x", c.bits, c.a, c.b, got, c.want)
		}
	}
}

func TestArithOpRecognizesSalAsShl(t *testing.T) {
	fn, ok := arithOp("Sal32")
	if !ok {
		t.Fatal("expected Sal to resolve as a recognized binop")
	}
	if got := fn(1, 3); got != 8 {
		t.Fatalf("Sal32(1, 3) = %d, want 8", got)
	}
}

func TestArithOpNoLongerHandlesSar(t *testing.T) {
	if _, ok := arithOp("Sar32"); ok {
		t.Fatal("Sar must be dispatched via isArithShiftRight/sarOp, not arithOp, since it needs the declared bit width")
	}
	if !isArithShiftRight("Sar32") {
		t.Fatal("expected Sar32 to be classified as an arithmetic shift right")
	}
}

func TestClassifyCmpRecognizesORD(t *testing.T) {
	if got := classifyCmp("CmpORD32S"); got != cmpORD {
		t.Fatalf("classifyCmp(CmpORD32S) = %v, want cmpORD", got)
	}
	if got := classifyCmp("CmpORD64U"); got != cmpORD {
		t.Fatalf("classifyCmp(CmpORD64U) = %v, want cmpORD", got)
	}
}
