package toyprogram

import "encoding/binary"

// Loader is a minimal in-memory rdir.Loader: a flat byte store plus a
// small symbol/PLT-stub table, enough to exercise the Load fallback and
// the call-classification hook without a real binary.
type Loader struct {
	Base    uint64
	Size    uint64
	Memory  map[uint64]byte
	Symbols map[uint64]string
	PLT     map[uint64]string
	RTOC    uint64
	HasRTOC bool
}

// NewLoader returns an empty Loader covering [base, base+size).
func NewLoader(base, size uint64) *Loader {
	return &Loader{
		Base:    base,
		Size:    size,
		Memory:  make(map[uint64]byte),
		Symbols: make(map[uint64]string),
		PLT:     make(map[uint64]string),
	}
}

// WriteUint64LE stores v at addr in little-endian byte order.
func (l *Loader) WriteUint64LE(addr, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	for i, b := range buf {
		l.Memory[addr+uint64(i)] = b
	}
}

func (l *Loader) ContainsAddr(addr uint64) bool {
	return addr >= l.Base && addr < l.Base+l.Size
}

func (l *Loader) FindPLTStubName(addr uint64) (string, bool) {
	name, ok := l.PLT[addr]
	return name, ok
}

func (l *Loader) FindSymbol(addr uint64) (string, bool) {
	name, ok := l.Symbols[addr]
	return name, ok
}

func (l *Loader) ReadBytes(addr uint64, n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		b, ok := l.Memory[addr+uint64(i)]
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

func (l *Loader) PPC64InitialRTOC() (uint64, bool) { return l.RTOC, l.HasRTOC }
