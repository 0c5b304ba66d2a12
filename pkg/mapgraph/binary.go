package mapgraph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
	"unsafe"

	"motoroute/pkg/taginterner"
)

const (
	magicBytes = "MOTOGRPH"
	binVersion = uint32(1)
)

type fileHeader struct {
	Magic     [8]byte
	Version   uint32
	NumPoints uint32
	NumLines  uint32
	NumRules  uint32
}

// WriteBinary serializes a finalized Graph to path, using a temp file
// plus atomic rename so a crash mid-write never leaves a corrupt cache
// at the final path.
func (g *Graph) WriteBinary(path string) error {
	if !g.finalized {
		return fmt.Errorf("mapgraph: WriteBinary called before Finalize")
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("mapgraph: create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	numRules := 0
	for i := range g.points {
		numRules += len(g.points[i].Rules)
	}

	hdr := fileHeader{
		Version:   binVersion,
		NumPoints: uint32(len(g.points)),
		NumLines:  uint32(len(g.lines)),
		NumRules:  uint32(numRules),
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("mapgraph: write header: %w", err)
	}

	pointID := make([]uint64, len(g.points))
	pointLat := make([]float32, len(g.points))
	pointLon := make([]float32, len(g.points))
	linesFirstOut := make([]uint32, len(g.points)+1)
	rulesFirstOut := make([]uint32, len(g.points)+1)
	var flatLines []uint32
	var ruleType []uint8
	var ruleFromFirstOut, ruleToFirstOut []uint32
	var ruleFromLines, ruleToLines []uint32
	ruleFromFirstOut = append(ruleFromFirstOut, 0)
	ruleToFirstOut = append(ruleToFirstOut, 0)

	for i := range g.points {
		p := &g.points[i]
		pointID[i] = p.ID
		pointLat[i] = p.Lat
		pointLon[i] = p.Lon
		for _, lr := range p.Lines {
			flatLines = append(flatLines, uint32(lr))
		}
		linesFirstOut[i+1] = uint32(len(flatLines))

		for _, rule := range p.Rules {
			ruleType = append(ruleType, uint8(rule.Type))
			for _, lr := range rule.From {
				ruleFromLines = append(ruleFromLines, uint32(lr))
			}
			ruleFromFirstOut = append(ruleFromFirstOut, uint32(len(ruleFromLines)))
			for _, lr := range rule.To {
				ruleToLines = append(ruleToLines, uint32(lr))
			}
			ruleToFirstOut = append(ruleToFirstOut, uint32(len(ruleToLines)))
		}
		rulesFirstOut[i+1] = uint32(len(ruleType))
	}

	linP1 := make([]uint32, len(g.lines))
	linP2 := make([]uint32, len(g.lines))
	linDir := make([]uint8, len(g.lines))
	linTags := make([]uint32, len(g.lines))
	for i, l := range g.lines {
		linP1[i] = uint32(l.P1)
		linP2[i] = uint32(l.P2)
		linDir[i] = uint8(l.Direction)
		linTags[i] = uint32(l.Tags)
	}

	writers := []func() error{
		func() error { return writeUint64Slice(cw, pointID) },
		func() error { return writeFloat32Slice(cw, pointLat) },
		func() error { return writeFloat32Slice(cw, pointLon) },
		func() error { return writeUint32Slice(cw, linesFirstOut) },
		func() error { return writeUint32Slice(cw, flatLines) },
		func() error { return writeUint32Slice(cw, linP1) },
		func() error { return writeUint32Slice(cw, linP2) },
		func() error { _, err := cw.Write(linDir); return err },
		func() error { return writeUint32Slice(cw, linTags) },
		func() error { return writeUint32Slice(cw, rulesFirstOut) },
		func() error { _, err := cw.Write(ruleType); return err },
		func() error { return writeUint32Slice(cw, ruleFromFirstOut) },
		func() error { return writeUint32Slice(cw, ruleFromLines) },
		func() error { return writeUint32Slice(cw, ruleToFirstOut) },
		func() error { return writeUint32Slice(cw, ruleToLines) },
	}
	for _, wr := range writers {
		if err := wr(); err != nil {
			return fmt.Errorf("mapgraph: write body: %w", err)
		}
	}

	if err := g.Tags.WriteTo(cw); err != nil {
		return fmt.Errorf("mapgraph: write tag interner: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("mapgraph: write CRC32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("mapgraph: close temp file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// ReadBinary deserializes a Graph from path. The returned Graph is
// already finalized (spatial grid built, ingest maps absent).
func ReadBinary(path string, logger *log.Logger) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("mapgraph: read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("mapgraph: invalid magic bytes %q", hdr.Magic)
	}
	if hdr.Version != binVersion {
		return nil, fmt.Errorf("mapgraph: unsupported version %d", hdr.Version)
	}

	pointID, err := readUint64Slice(cr, int(hdr.NumPoints))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read point ids: %w", err)
	}
	pointLat, err := readFloat32Slice(cr, int(hdr.NumPoints))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read point lat: %w", err)
	}
	pointLon, err := readFloat32Slice(cr, int(hdr.NumPoints))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read point lon: %w", err)
	}
	linesFirstOut, err := readUint32Slice(cr, int(hdr.NumPoints)+1)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read lines first-out: %w", err)
	}
	flatLines, err := readUint32Slice(cr, int(linesFirstOut[hdr.NumPoints]))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read flat lines: %w", err)
	}
	linP1, err := readUint32Slice(cr, int(hdr.NumLines))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read line p1: %w", err)
	}
	linP2, err := readUint32Slice(cr, int(hdr.NumLines))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read line p2: %w", err)
	}
	linDir, err := readUint8Slice(cr, int(hdr.NumLines))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read line direction: %w", err)
	}
	linTags, err := readUint32Slice(cr, int(hdr.NumLines))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read line tags: %w", err)
	}
	rulesFirstOut, err := readUint32Slice(cr, int(hdr.NumPoints)+1)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rules first-out: %w", err)
	}
	numRules := int(rulesFirstOut[hdr.NumPoints])
	ruleType, err := readUint8Slice(cr, numRules)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rule type: %w", err)
	}
	ruleFromFirstOut, err := readUint32Slice(cr, numRules+1)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rule from first-out: %w", err)
	}
	ruleFromLines, err := readUint32Slice(cr, int(ruleFromFirstOut[numRules]))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rule from lines: %w", err)
	}
	ruleToFirstOut, err := readUint32Slice(cr, numRules+1)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rule to first-out: %w", err)
	}
	ruleToLines, err := readUint32Slice(cr, int(ruleToFirstOut[numRules]))
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read rule to lines: %w", err)
	}

	tags, err := taginterner.ReadInterner(cr)
	if err != nil {
		return nil, fmt.Errorf("mapgraph: read tag interner: %w", err)
	}

	var storedCRC uint32
	expected := cr.hash.Sum32()
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("mapgraph: read CRC32: %w", err)
	}
	if storedCRC != expected {
		return nil, fmt.Errorf("mapgraph: CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expected)
	}

	lines := make([]Line, hdr.NumLines)
	for i := range lines {
		lines[i] = Line{
			P1:        PointRef(linP1[i]),
			P2:        PointRef(linP2[i]),
			Direction: Direction(linDir[i]),
			Tags:      taginterner.SetRef(linTags[i]),
		}
	}

	points := make([]Point, hdr.NumPoints)
	ruleIdx := 0
	for i := range points {
		points[i].ID = pointID[i]
		points[i].Lat = pointLat[i]
		points[i].Lon = pointLon[i]

		ls := flatLines[linesFirstOut[i]:linesFirstOut[i+1]]
		points[i].Lines = make([]LineRef, len(ls))
		for j, lr := range ls {
			points[i].Lines[j] = LineRef(lr)
		}

		numPointRules := int(rulesFirstOut[i+1] - rulesFirstOut[i])
		for k := 0; k < numPointRules; k++ {
			from := ruleFromLines[ruleFromFirstOut[ruleIdx]:ruleFromFirstOut[ruleIdx+1]]
			to := ruleToLines[ruleToFirstOut[ruleIdx]:ruleToFirstOut[ruleIdx+1]]
			rule := Rule{Type: RuleType(ruleType[ruleIdx])}
			rule.From = make([]LineRef, len(from))
			for j, lr := range from {
				rule.From[j] = LineRef(lr)
			}
			rule.To = make([]LineRef, len(to))
			for j, lr := range to {
				rule.To[j] = LineRef(lr)
			}
			points[i].Rules = append(points[i].Rules, rule)
			ruleIdx++
		}
	}

	if logger == nil {
		logger = log.Default()
	}
	g := &Graph{points: points, lines: lines, Tags: tags, Logger: logger}
	g.Finalize()
	return g, nil
}

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeUint64Slice(w io.Writer, s []uint64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat32Slice(w io.Writer, s []float32) error {
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
	_, err := io.ReadFull(r, b)
	return s, err
}

func readUint64Slice(r io.Reader, n int) ([]uint64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	_, err := io.ReadFull(r, b)
	return s, err
}

func readFloat32Slice(r io.Reader, n int) ([]float32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	_, err := io.ReadFull(r, b)
	return s, err
}

func readUint8Slice(r io.Reader, n int) ([]uint8, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint8, n)
	_, err := io.ReadFull(r, s)
	return s, err
}

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
