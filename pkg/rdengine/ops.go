package rdengine

// VEX operator mnemonics are strings like "Add64", "CmpLT32U", "8Uto32":
// a base name, a width, and (for comparisons and conversions) a
// signedness or source-width suffix. Real VEX carries hundreds of these;
// this module resolves the handful of families the transfer rules in
// §4.4.1 need and reports the rest as unsupported so the engine can fall
// back to its UnsupportedIR policy instead of guessing.

import "strings"

// arithOp resolves an arithmetic/logical binary mnemonic (Add, Sub, Mul,
// And, Or, Xor, Shl/Sal, Shr) to its uint64 implementation. Sar is handled
// separately by sarOp, since a correct arithmetic right shift needs the
// operand's declared bit width to sign-extend from, which this
// width-less signature doesn't carry.
func arithOp(op string) (func(a, b uint64) uint64, bool) {
	switch base(op) {
	case "Add":
		return func(a, b uint64) uint64 { return a + b }, true
	case "Sub":
		return func(a, b uint64) uint64 { return a - b }, true
	case "Mul":
		return func(a, b uint64) uint64 { return a * b }, true
	case "And":
		return func(a, b uint64) uint64 { return a & b }, true
	case "Or":
		return func(a, b uint64) uint64 { return a | b }, true
	case "Xor":
		return func(a, b uint64) uint64 { return a ^ b }, true
	case "Shl", "Sal":
		return func(a, b uint64) uint64 { return a << (b & 63) }, true
	case "Shr":
		return func(a, b uint64) uint64 { return a >> (b & 63) }, true
	default:
		return nil, false
	}
}

// isArithShiftRight reports whether op is the Sar mnemonic family.
func isArithShiftRight(op string) bool {
	return base(op) == "Sar"
}

// sarOp builds a true arithmetic right shift at the given bit width: the
// operand is sign-extended from bit (bits-1) before shifting, so the
// vacated high bits fill with the sign rather than with zero.
func sarOp(bits int) func(a, b uint64) uint64 {
	return func(a, b uint64) uint64 {
		shift := b & 63
		signBit := uint64(1) << uint(bits-1)
		if a&signBit == 0 {
			return a >> shift
		}
		extended := a | ^(signBit<<1 - 1)
		shifted := int64(extended) >> shift
		mask := uint64(1)<<uint(bits) - 1
		return uint64(shifted) & mask
	}
}

// unaryArithOp resolves a unary mnemonic (currently only Not).
func unaryArithOp(op string) (func(a uint64) uint64, bool) {
	if base(op) == "Not" {
		return func(a uint64) uint64 { return ^a }, true
	}
	return nil, false
}

// cmpOpKind classifies a Cmp* mnemonic into one of the DataSet
// comparator families.
type cmpOpKind int

const (
	cmpNone cmpOpKind = iota
	cmpEQ
	cmpNE
	cmpLT
	cmpORD
)

func classifyCmp(op string) cmpOpKind {
	if !strings.HasPrefix(op, "Cmp") {
		return cmpNone
	}
	switch base(strings.TrimPrefix(op, "Cmp")) {
	case "EQ":
		return cmpEQ
	case "NE":
		return cmpNE
	case "LT":
		return cmpLT
	case "ORD":
		return cmpORD
	default:
		return cmpNone
	}
}

// isConversion reports whether op is a widen/narrow mnemonic like
// "8Uto32" or "64to16", returning the source width. The destination
// width is the expression's own Bits (result_size), so it isn't parsed
// out here.
func isConversion(op string) (fromBits int, ok bool) {
	idx := strings.Index(op, "to")
	if idx <= 0 || strings.HasPrefix(op, "Cmp") {
		return 0, false
	}
	head := op[:idx]
	head = strings.TrimSuffix(head, "U")
	head = strings.TrimSuffix(head, "S")
	n, ok := parseDigits(head)
	return n, ok
}

// base strips a trailing U/S signedness marker and then the trailing
// width digits from a mnemonic, e.g. "Add64" -> "Add", and "LT32U" (the
// remainder classifyCmp passes in after removing "Cmp") -> "LT".
func base(op string) string {
	op = strings.TrimSuffix(op, "U")
	op = strings.TrimSuffix(op, "S")
	i := len(op)
	for i > 0 && op[i-1] >= '0' && op[i-1] <= '9' {
		i--
	}
	return op[:i]
}

func parseDigits(s string) (int, bool) {
	start := len(s)
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	digits := s[start:]
	if digits == "" {
		return 0, false
	}
	n := 0
	for _, c := range digits {
		n = n*10 + int(c-'0')
	}
	return n, true
}
