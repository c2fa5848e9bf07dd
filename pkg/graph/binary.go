package graph

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/paulmach/orb"
)

const (
	magicBytes  = "HZROUTER"
	version     = uint32(1)
	maxNodes    = 10_000_000
	maxEdges    = 50_000_000
	maxGeometry = 1_000_000 // points per edge
)

// ErrCorruptSnapshot is returned when a snapshot fails validation.
var ErrCorruptSnapshot = errors.New("corrupt graph snapshot")

const (
	graphDirected = 1 << iota
)

const (
	nodeGrid = 1 << iota
	nodeHasCoord
)

const (
	edgeHasLength = 1 << iota
	edgeHasSpeed
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic    [8]byte
	Version  uint32
	Flags    uint32
	NumNodes uint32
	NumEdges uint32
}

type nodeRecord struct {
	Flags    uint8
	Ref      int64
	Row, Col int32
	Lat, Lon float64
}

type edgeRecord struct {
	From, To      uint32 // node order indices
	Key           uint32
	Flags         uint8
	Length        float64
	SpeedKPH      float64
	HazardPenalty float64
	NumPoints     uint32
}

// WriteBinary snapshots g to path: every node and live edge with all of
// their attributes. The file is written to a temporary path and renamed into
// place, so readers never see a partial snapshot.
func WriteBinary(path string, g *Graph) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	bw := bufio.NewWriter(f)
	crcWriter := crc32Writer{w: bw, hash: crc32.NewIEEE()}
	w := &crcWriter

	edges := g.Edges()
	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(g.NumNodes()),
		NumEdges: uint32(len(edges)),
	}
	if g.Directed() {
		hdr.Flags |= graphDirected
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, n := range g.nodes {
		rec := nodeRecord{Ref: n.ID.Ref, Row: n.ID.Row, Col: n.ID.Col, Lat: n.Lat, Lon: n.Lon}
		if n.ID.Grid {
			rec.Flags |= nodeGrid
		}
		if n.HasCoord {
			rec.Flags |= nodeHasCoord
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write node %s: %w", n.ID, err)
		}
	}

	for _, e := range edges {
		s := &g.edges[e.ID]
		rec := edgeRecord{
			From:          uint32(s.from),
			To:            uint32(s.to),
			Key:           uint32(e.Key),
			Length:        e.Length,
			SpeedKPH:      e.SpeedKPH,
			HazardPenalty: e.HazardPenalty,
			NumPoints:     uint32(len(e.Geometry)),
		}
		if e.HasLength {
			rec.Flags |= edgeHasLength
		}
		if e.HasSpeed {
			rec.Flags |= edgeHasSpeed
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("write edge %d: %w", e.ID, err)
		}
		if len(e.Geometry) > 0 {
			if err := binary.Write(w, binary.LittleEndian, []orb.Point(e.Geometry)); err != nil {
				return fmt.Errorf("write edge %d geometry: %w", e.ID, err)
			}
		}
	}

	// CRC32 trailer.
	if err := binary.Write(bw, binary.LittleEndian, crcWriter.hash.Sum32()); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadBinary loads a snapshot written by WriteBinary. Validation failures
// wrap ErrCorruptSnapshot; a missing file wraps fs.ErrNotExist.
func ReadBinary(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	crcReader := crc32Reader{r: br, hash: crc32.NewIEEE()}
	r := &crcReader

	corrupt := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrCorruptSnapshot, fmt.Sprintf(format, args...))
	}

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, corrupt("read header: %v", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, corrupt("invalid magic bytes %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, corrupt("unsupported version %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, corrupt("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, corrupt("NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	g := New(hdr.Flags&graphDirected != 0)

	for i := range hdr.NumNodes {
		var rec nodeRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, corrupt("read node %d: %v", i, err)
		}
		id := OSMNode(rec.Ref)
		if rec.Flags&nodeGrid != 0 {
			id = NodeID{Row: rec.Row, Col: rec.Col, Grid: true}
		}
		if g.HasNode(id) {
			return nil, corrupt("duplicate node %s", id)
		}
		g.AddNode(Node{ID: id, Lat: rec.Lat, Lon: rec.Lon, HasCoord: rec.Flags&nodeHasCoord != 0})
	}

	for i := range hdr.NumEdges {
		var rec edgeRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, corrupt("read edge %d: %v", i, err)
		}
		if rec.From >= hdr.NumNodes || rec.To >= hdr.NumNodes {
			return nil, corrupt("edge %d references node outside [0,%d)", i, hdr.NumNodes)
		}
		if rec.NumPoints > maxGeometry {
			return nil, corrupt("edge %d geometry has %d points", i, rec.NumPoints)
		}
		attrs := EdgeAttrs{
			Length:        rec.Length,
			HasLength:     rec.Flags&edgeHasLength != 0,
			SpeedKPH:      rec.SpeedKPH,
			HasSpeed:      rec.Flags&edgeHasSpeed != 0,
			HazardPenalty: rec.HazardPenalty,
		}
		if rec.NumPoints > 0 {
			pts := make([]orb.Point, rec.NumPoints)
			if err := binary.Read(r, binary.LittleEndian, pts); err != nil {
				return nil, corrupt("read edge %d geometry: %v", i, err)
			}
			attrs.Geometry = orb.LineString(pts)
		}
		g.addEdgeKeyed(int(rec.From), int(rec.To), int(rec.Key), attrs)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(br, binary.LittleEndian, &storedCRC); err != nil {
		return nil, corrupt("read CRC32: %v", err)
	}
	if storedCRC != expectedCRC {
		return nil, corrupt("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, corrupt("trailing data after CRC32")
	}

	return g, nil
}

// addEdgeKeyed inserts an edge with a known parallel key and keeps the key
// counter ahead of it.
func (g *Graph) addEdgeKeyed(fi, ti, key int, attrs EdgeAttrs) EdgeID {
	pk := pairKey{fi, ti}
	if !g.directed && ti < fi {
		pk = pairKey{ti, fi}
	}
	g.keys[pk] = max(g.keys[pk], key+1)
	return g.addEdge(fi, ti, key, attrs)
}

// CRC32 wrapping writers/readers.

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
