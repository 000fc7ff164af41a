package keyedregion

import "testing"

type obj struct {
	id int
}

func (o *obj) Equal(other *obj) bool {
	if o == other {
		return true
	}
	if o == nil || other == nil {
		return false
	}
	return o.id == other.id
}

func TestSetAndGetByOffset(t *testing.T) {
	r := New[*obj]()
	a := &obj{id: 1}
	r.SetObject(0, a, 4)
	got := r.GetObjectsByOffset(0)
	if len(got) != 1 || got[0] != a {
		t.Fatalf("expected [a], got %v", got)
	}
	got = r.GetObjectsByOffset(3)
	if len(got) != 1 || got[0] != a {
		t.Fatalf("offset 3 should still be covered by [0,4), got %v", got)
	}
	got = r.GetObjectsByOffset(4)
	if len(got) != 0 {
		t.Fatalf("offset 4 is one past the end, expected no coverage, got %v", got)
	}
}

func TestSetObjectReplacesFullyCoveredEntries(t *testing.T) {
	r := New[*obj]()
	r.SetObject(0, &obj{id: 1}, 1)
	r.SetObject(0, &obj{id: 2}, 4)
	got := r.GetObjectsByOffset(0)
	if len(got) != 1 || got[0].id != 2 {
		t.Fatalf("wider write should replace the fully-covered narrower entry, got %v", got)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	r := New[*obj]()
	r.SetObject(0, &obj{id: 1}, 4)
	cp := r.Copy()
	cp.SetObject(8, &obj{id: 2}, 4)
	if r.Len() != 1 {
		t.Fatalf("mutating a copy must not affect the original, original has %d entries", r.Len())
	}
}

func TestMergeIsIdempotentOnSelf(t *testing.T) {
	r := New[*obj]()
	r.SetObject(0, &obj{id: 1}, 4)
	r.SetObject(8, &obj{id: 2}, 4)
	merged := r.Merge(r)
	if !merged.Equal(r) {
		t.Fatal("merging a region with itself must be idempotent")
	}
}

func TestMergeUnionsDisjointEntries(t *testing.T) {
	a := New[*obj]()
	a.SetObject(0, &obj{id: 1}, 4)
	b := New[*obj]()
	b.SetObject(8, &obj{id: 2}, 4)
	merged := a.Merge(b)
	if merged.Len() != 2 {
		t.Fatalf("expected 2 entries after merging disjoint regions, got %d", merged.Len())
	}
}
