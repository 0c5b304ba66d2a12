package taginterner

import "testing"

func TestInternLinkStripping(t *testing.T) {
	in := New()

	a := in.InternSet("", "", "primary", "", "")
	b := in.InternSet("", "", "primary_link", "", "")

	if a != b {
		t.Fatalf("expected primary and primary_link to share a SetRef, got %d and %d", a, b)
	}
	if in.Highway(a) != "primary" {
		t.Fatalf("expected stored value to be stripped, got %q", in.Highway(a))
	}
}

func TestInternAbsentIsZero(t *testing.T) {
	in := New()
	if ref := in.Intern(""); ref != 0 {
		t.Fatalf("expected absent value to be handle 0, got %d", ref)
	}
	if ref := in.InternSet("", "", "", "", ""); ref != 0 {
		t.Fatalf("expected fully-absent set to be handle 0, got %d", ref)
	}
}

func TestInternSetDedup(t *testing.T) {
	in := New()

	r1 := in.InternSet("Main Street", "A1", "trunk", "asphalt", "good")
	r2 := in.InternSet("Main Street", "A1", "trunk", "asphalt", "good")
	r3 := in.InternSet("Main Street", "A1", "trunk", "asphalt", "bad")

	if r1 != r2 {
		t.Fatalf("expected identical 5-tuples to collapse to the same SetRef")
	}
	if r1 == r3 {
		t.Fatalf("expected differing 5-tuples to produce distinct SetRefs")
	}
}

func TestValueDedup(t *testing.T) {
	in := New()

	r1 := in.Intern("residential")
	r2 := in.Intern("residential")
	if r1 != r2 {
		t.Fatalf("expected repeated identical value to dedup")
	}
	if in.NumValues() != 2 {
		t.Fatalf("expected exactly one non-absent value interned, got %d entries", in.NumValues())
	}
}
