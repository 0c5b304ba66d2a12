// Package taginterner deduplicates way tag values and 5-tuples of
// (name, hw_ref, highway, surface, smoothness) into dense integer
// handles, so that every Line in the map graph can carry a single
// 32-bit SetRef instead of five strings.
package taginterner

import "strings"

// ValueRef is a handle into the interner's value array. The zero value
// means "absent".
type ValueRef uint32

// SetRef is a handle into the interner's set array. The zero value
// means "absent" (all five fields absent).
type SetRef uint32

const absent = 0

type tagSet struct {
	name, hwRef, highway, surface, smoothness ValueRef
}

// Interner holds the append-only value and set arrays plus the
// lookup maps used only during ingestion. Call DropIndexes after
// Finalize to release the maps; the arrays remain valid for the
// lifetime of the process.
type Interner struct {
	values   []string
	valueIdx map[string]ValueRef

	sets    []tagSet
	setIdx  map[tagSet]SetRef
}

// New returns an Interner with handle 0 reserved for "absent" in both
// the value and set arrays.
func New() *Interner {
	return &Interner{
		values:   []string{""},
		valueIdx: make(map[string]ValueRef),
		sets:     []tagSet{{}},
		setIdx:   make(map[tagSet]SetRef),
	}
}

// stripLink removes a trailing "_link" suffix, e.g. "primary_link" ->
// "primary", so that link roads share a handle with their parent
// class.
func stripLink(v string) string {
	return strings.TrimSuffix(v, "_link")
}

// Intern returns the ValueRef for an optional tag value. An empty
// value returns the absent handle.
func (in *Interner) Intern(value string) ValueRef {
	if value == "" {
		return absent
	}
	value = stripLink(value)
	if ref, ok := in.valueIdx[value]; ok {
		return ref
	}
	ref := ValueRef(len(in.values))
	in.values = append(in.values, value)
	in.valueIdx[value] = ref
	return ref
}

// InternSet interns all five fields and returns a deduplicated
// SetRef for the resulting 5-tuple.
func (in *Interner) InternSet(name, hwRef, highway, surface, smoothness string) SetRef {
	ts := tagSet{
		name:       in.Intern(name),
		hwRef:      in.Intern(hwRef),
		highway:    in.Intern(highway),
		surface:    in.Intern(surface),
		smoothness: in.Intern(smoothness),
	}
	if ts == (tagSet{}) {
		return absent
	}
	if ref, ok := in.setIdx[ts]; ok {
		return ref
	}
	ref := SetRef(len(in.sets))
	in.sets = append(in.sets, ts)
	in.setIdx[ts] = ref
	return ref
}

// Value returns the interned string for a ValueRef, or "" if absent.
func (in *Interner) Value(ref ValueRef) string {
	if int(ref) >= len(in.values) {
		return ""
	}
	return in.values[ref]
}

// Name returns the interned "name" tag value for a SetRef.
func (in *Interner) Name(ref SetRef) string {
	return in.Value(in.setAt(ref).name)
}

// HwRef returns the interned "ref" tag value for a SetRef.
func (in *Interner) HwRef(ref SetRef) string {
	return in.Value(in.setAt(ref).hwRef)
}

// Highway returns the interned "highway" tag value for a SetRef.
func (in *Interner) Highway(ref SetRef) string {
	return in.Value(in.setAt(ref).highway)
}

// Surface returns the interned "surface" tag value for a SetRef.
func (in *Interner) Surface(ref SetRef) string {
	return in.Value(in.setAt(ref).surface)
}

// Smoothness returns the interned "smoothness" tag value for a SetRef.
func (in *Interner) Smoothness(ref SetRef) string {
	return in.Value(in.setAt(ref).smoothness)
}

func (in *Interner) setAt(ref SetRef) tagSet {
	if int(ref) >= len(in.sets) {
		return tagSet{}
	}
	return in.sets[ref]
}

// DropIndexes releases the ingest-time lookup maps. Safe to call once
// Finalize has run and no further Intern calls will occur; Value/
// Name/HwRef/Highway/Surface/Smoothness remain valid afterwards.
func (in *Interner) DropIndexes() {
	in.valueIdx = nil
	in.setIdx = nil
}

// NumValues returns the number of interned values (including the
// reserved absent slot at index 0).
func (in *Interner) NumValues() int { return len(in.values) }

// NumSets returns the number of interned sets (including the reserved
// absent slot at index 0).
func (in *Interner) NumSets() int { return len(in.sets) }
