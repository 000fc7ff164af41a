// Package keyedregion implements KeyedRegion, an offset-keyed store of
// sized, possibly overlapping objects with merge and copy semantics. It
// backs the register and memory definition (and use) tables in
// pkg/rdstate.
package keyedregion

import "sort"

// Equatable is the constraint a KeyedRegion's stored object type must
// satisfy so Merge can de-duplicate and self-merge stays idempotent.
type Equatable[T any] interface {
	Equal(T) bool
}

type entry[T Equatable[T]] struct {
	Offset int64
	Size   int64
	Object T
}

// KeyedRegion is an ordered, offset-keyed map supporting overlapping,
// sized entries. Lookups are accelerated by keeping entries sorted by
// start offset and tracking the largest entry seen, which bounds how far
// back a point query needs to scan — logarithmic-ish in practice for the
// 10^3-10^4 entry workloads this analysis expects, without the
// bookkeeping of a full interval tree.
type KeyedRegion[T Equatable[T]] struct {
	entries []entry[T]
	maxSize int64
}

// New returns an empty KeyedRegion.
func New[T Equatable[T]]() *KeyedRegion[T] {
	return &KeyedRegion[T]{}
}

// SetObject installs obj over [offset, offset+size). Prior entries fully
// covered by the new range are replaced; entries only partially
// overlapping are left in place, still reachable at their own offsets —
// the analysis tolerates aliasing of overlapping writes rather than
// chasing precision there.
func (r *KeyedRegion[T]) SetObject(offset int64, obj T, size int64) {
	newEnd := offset + size
	kept := r.entries[:0:0]
	for _, e := range r.entries {
		covered := e.Offset >= offset && e.Offset+e.Size <= newEnd
		if !covered {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	idx := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].Offset >= offset })
	r.entries = append(r.entries, entry[T]{})
	copy(r.entries[idx+1:], r.entries[idx:])
	r.entries[idx] = entry[T]{Offset: offset, Size: size, Object: obj}
	if size > r.maxSize {
		r.maxSize = size
	}
}

// GetObjectsByOffset returns every object whose extent contains offset.
func (r *KeyedRegion[T]) GetObjectsByOffset(offset int64) []T {
	var out []T
	lo := offset - r.maxSize + 1
	start := sort.Search(len(r.entries), func(i int) bool { return r.entries[i].Offset >= lo })
	for i := start; i < len(r.entries); i++ {
		e := r.entries[i]
		if e.Offset > offset {
			break
		}
		if e.Offset <= offset && e.Offset+e.Size > offset {
			out = append(out, e.Object)
		}
	}
	return out
}

// Entries returns every stored object, in offset order. Callers that need
// the occupied range should pair this with the object's own size.
func (r *KeyedRegion[T]) Entries() []T {
	out := make([]T, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Object
	}
	return out
}

// Len reports the number of stored entries.
func (r *KeyedRegion[T]) Len() int { return len(r.entries) }

// Copy returns an independent deep copy: mutating the copy (inserting,
// removing entries) never affects the original. Stored objects
// themselves are expected to be immutable after construction (true of
// Definition, the only type this analysis stores here), so a shallow
// copy of the entry slice is sufficient for that independence.
func (r *KeyedRegion[T]) Copy() *KeyedRegion[T] {
	out := &KeyedRegion[T]{maxSize: r.maxSize}
	out.entries = append(out.entries, r.entries...)
	return out
}

// Merge returns a new KeyedRegion whose content at any offset is the
// union of r's and other's object sets. Structurally-equal entries at
// the same offset/size are not duplicated, so merging a region with
// itself is idempotent.
func (r *KeyedRegion[T]) Merge(other *KeyedRegion[T]) *KeyedRegion[T] {
	out := r.Copy()
	for _, e := range other.entries {
		if out.hasEqual(e) {
			continue
		}
		out.entries = append(out.entries, e)
	}
	sort.Slice(out.entries, func(i, j int) bool { return out.entries[i].Offset < out.entries[j].Offset })
	if other.maxSize > out.maxSize {
		out.maxSize = other.maxSize
	}
	return out
}

func (r *KeyedRegion[T]) hasEqual(e entry[T]) bool {
	for _, existing := range r.entries {
		if existing.Offset == e.Offset && existing.Size == e.Size && existing.Object.Equal(e.Object) {
			return true
		}
	}
	return false
}

// Equal reports whether r and other hold the same set of entries,
// irrespective of internal order.
func (r *KeyedRegion[T]) Equal(other *KeyedRegion[T]) bool {
	if len(r.entries) != len(other.entries) {
		return false
	}
	for _, e := range r.entries {
		if !other.hasEqual(e) {
			return false
		}
	}
	return true
}
