// Package graphio implements the two external collaborators spec §6
// names but treats as outside the engine's algorithmic core: the flat
// binary edge-file format, and persisted vertex arrays.
package graphio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gilchrisn/farmesh/internal/csrstore"
)

// Codec encodes/decodes one fixed-size edge payload to/from bytes, the
// concrete form spec §6's "optionally followed by a fixed-size payload"
// takes on the wire.
type Codec[P any] interface {
	Size() int
	Encode(v P, buf []byte)
	Decode(buf []byte) P
}

// NoPayload is the zero-size payload codec for unweighted, unlabeled
// graphs (spec §3: "Edges carry an optional typed payload ... or
// nothing").
type NoPayload struct{}

func (NoPayload) Size() int             { return 0 }
func (NoPayload) Encode(struct{}, []byte) {}
func (NoPayload) Decode([]byte) struct{} { return struct{}{} }

// WeightCodec encodes a float64 edge weight in 8 bytes, little-endian.
type WeightCodec struct{}

func (WeightCodec) Size() int { return 8 }
func (WeightCodec) Encode(v float64, buf []byte) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}
func (WeightCodec) Decode(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

// edgeUnitSize is 8 bytes for (src, dst) plus the payload's encoded size
// (spec §6 "Each record: VertexId src (4B LE), VertexId dst (4B LE),
// optionally followed by a fixed-size payload").
func edgeUnitSize[P any](codec Codec[P]) int {
	return 8 + codec.Size()
}

// ReadEdges parses a flat binary edge file under the format of spec §6.
// |E| = size / record_size is enforced as a hard precondition: a
// non-multiple file size is a fatal, unrecoverable input error (spec §7).
func ReadEdges[P any](path string, codec Codec[P]) ([]csrstore.Edge[P], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graphio: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("graphio: stat %s: %w", path, err)
	}

	unit := edgeUnitSize[P](codec)
	size := info.Size()
	if size%int64(unit) != 0 {
		return nil, fmt.Errorf("graphio: %s size %d is not a multiple of record size %d", path, size, unit)
	}
	numEdges := size / int64(unit)

	edges := make([]csrstore.Edge[P], 0, numEdges)
	buf := make([]byte, unit)
	for i := int64(0); i < numEdges; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return nil, fmt.Errorf("graphio: read record %d of %s: %w", i, path, err)
		}
		src := binary.LittleEndian.Uint32(buf[0:4])
		dst := binary.LittleEndian.Uint32(buf[4:8])
		var payload P
		if codec.Size() > 0 {
			payload = codec.Decode(buf[8:])
		}
		edges = append(edges, csrstore.Edge[P]{Src: src, Dst: dst, Payload: payload})
	}
	return edges, nil
}

// WriteEdges serializes edges to path in the same flat binary format,
// primarily used by tests to build fixtures.
func WriteEdges[P any](path string, edges []csrstore.Edge[P], codec Codec[P]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graphio: create %s: %w", path, err)
	}
	defer f.Close()

	unit := edgeUnitSize[P](codec)
	buf := make([]byte, unit)
	for _, e := range edges {
		binary.LittleEndian.PutUint32(buf[0:4], e.Src)
		binary.LittleEndian.PutUint32(buf[4:8], e.Dst)
		if codec.Size() > 0 {
			codec.Encode(e.Payload, buf[8:])
		}
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("graphio: write record to %s: %w", path, err)
		}
	}
	return nil
}

// DumpVertexArray persists array[lo:hi] at byte offset elemSize*lo in
// path, pre-allocating the file to elemSize*v bytes if it doesn't exist
// (spec §6 "Persisted arrays": "rank 0 pre-allocates if missing, then
// each compute rank writes its own [part_off[p], part_off[p+1]) slice at
// byte offset sizeof(T)*part_off[p]").
func DumpVertexArray[T any](path string, v int, lo, hi uint32, array []T, codec Codec[T]) error {
	elemSize := codec.Size()
	total := int64(elemSize) * int64(v)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("graphio: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("graphio: stat %s: %w", path, err)
	}
	if info.Size() < total {
		if err := f.Truncate(total); err != nil {
			return fmt.Errorf("graphio: preallocate %s to %d bytes: %w", path, total, err)
		}
	}

	buf := make([]byte, int(hi-lo)*elemSize)
	for i, val := range array {
		codec.Encode(val, buf[i*elemSize:])
	}
	offset := int64(elemSize) * int64(lo)
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("graphio: write %s at offset %d: %w", path, offset, err)
	}
	return nil
}

// RestoreVertexArray reads back array[lo:hi] from path, the inverse of
// DumpVertexArray (spec §8 "Round-trip").
func RestoreVertexArray[T any](path string, lo, hi uint32, codec Codec[T]) ([]T, error) {
	elemSize := codec.Size()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graphio: open %s: %w", path, err)
	}
	defer f.Close()

	n := int(hi - lo)
	buf := make([]byte, n*elemSize)
	offset := int64(elemSize) * int64(lo)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("graphio: read %s at offset %d: %w", path, offset, err)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = codec.Decode(buf[i*elemSize:])
	}
	return out, nil
}
