package taginterner

import (
	"encoding/binary"
	"fmt"
	"io"
	"unsafe"
)

// WriteTo serializes the interner's value and set arrays. Index 0 (the
// reserved "absent" slot) is included so ValueRef/SetRef handles read
// back identical to what was written.
func (in *Interner) WriteTo(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(in.values))); err != nil {
		return fmt.Errorf("taginterner: write value count: %w", err)
	}
	for _, v := range in.values {
		if err := writeString(w, v); err != nil {
			return fmt.Errorf("taginterner: write value: %w", err)
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(in.sets))); err != nil {
		return fmt.Errorf("taginterner: write set count: %w", err)
	}
	name := make([]uint32, len(in.sets))
	hwRef := make([]uint32, len(in.sets))
	highway := make([]uint32, len(in.sets))
	surface := make([]uint32, len(in.sets))
	smoothness := make([]uint32, len(in.sets))
	for i, s := range in.sets {
		name[i] = uint32(s.name)
		hwRef[i] = uint32(s.hwRef)
		highway[i] = uint32(s.highway)
		surface[i] = uint32(s.surface)
		smoothness[i] = uint32(s.smoothness)
	}
	for _, s := range [][]uint32{name, hwRef, highway, surface, smoothness} {
		if err := writeUint32Slice(w, s); err != nil {
			return fmt.Errorf("taginterner: write set field: %w", err)
		}
	}
	return nil
}

// ReadInterner deserializes an Interner written by WriteTo. The
// returned Interner has no ingest-time index maps (as if DropIndexes
// had already run); Intern/InternSet must not be called on it.
func ReadInterner(r io.Reader) (*Interner, error) {
	var numValues uint32
	if err := binary.Read(r, binary.LittleEndian, &numValues); err != nil {
		return nil, fmt.Errorf("taginterner: read value count: %w", err)
	}
	values := make([]string, numValues)
	for i := range values {
		v, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("taginterner: read value: %w", err)
		}
		values[i] = v
	}

	var numSets uint32
	if err := binary.Read(r, binary.LittleEndian, &numSets); err != nil {
		return nil, fmt.Errorf("taginterner: read set count: %w", err)
	}
	fields := make([][]uint32, 5)
	for i := range fields {
		s, err := readUint32Slice(r, int(numSets))
		if err != nil {
			return nil, fmt.Errorf("taginterner: read set field: %w", err)
		}
		fields[i] = s
	}
	sets := make([]tagSet, numSets)
	for i := range sets {
		sets[i] = tagSet{
			name:       ValueRef(fields[0][i]),
			hwRef:      ValueRef(fields[1][i]),
			highway:    ValueRef(fields[2][i]),
			surface:    ValueRef(fields[3][i]),
			smoothness: ValueRef(fields[4][i]),
		}
	}

	return &Interner{values: values, sets: sets}, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}
