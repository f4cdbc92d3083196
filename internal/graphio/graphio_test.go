package graphio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/farmesh/internal/csrstore"
)

func TestWriteReadEdgesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edges.bin")

	edges := []csrstore.Edge[float64]{
		{Src: 0, Dst: 1, Payload: 1.0},
		{Src: 0, Dst: 2, Payload: 4.0},
		{Src: 1, Dst: 2, Payload: 2.0},
	}
	require.NoError(t, WriteEdges(path, edges, WeightCodec{}))

	got, err := ReadEdges[float64](path, WeightCodec{})
	require.NoError(t, err)
	require.Equal(t, edges, got)
}

func TestReadEdgesRejectsMisalignedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.bin")
	require.NoError(t, WriteEdges(path, []csrstore.Edge[struct{}]{{Src: 0, Dst: 1}}, NoPayload{}))

	// Overwrite with a file whose size isn't a multiple of the record size.
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	_, err := ReadEdges[struct{}](path, NoPayload{})
	require.Error(t, err)
}

func TestVertexArrayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranks.bin")

	const v = 8
	full := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}
	require.NoError(t, DumpVertexArray(path, v, 0, 4, full[0:4], WeightCodec{}))
	require.NoError(t, DumpVertexArray(path, v, 4, 8, full[4:8], WeightCodec{}))

	got, err := RestoreVertexArray(path, 0, 8, WeightCodec{})
	require.NoError(t, err)
	require.InDeltaSlice(t, full, got, 1e-12)
}
