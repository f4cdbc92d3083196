package partition

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeGlobalBalanced(t *testing.T) {
	degree := make([]uint64, 1024)
	for i := range degree {
		degree[i] = 1
	}
	off, err := ComputeGlobal(degree, 4, 0, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(0), off[0])
	require.Equal(t, uint32(1024), off[4])
	for i := 0; i < len(off)-1; i++ {
		require.LessOrEqual(t, off[i], off[i+1])
	}
}

func TestComputeGlobalPageAligned(t *testing.T) {
	degree := make([]uint64, 1000)
	for i := range degree {
		degree[i] = 1
	}
	off, err := ComputeGlobal(degree, 3, 0, 64)
	require.NoError(t, err)
	for i := 1; i < len(off)-1; i++ {
		require.Zero(t, off[i]%64, "boundary %d = %d not page aligned", i, off[i])
	}
	require.Equal(t, uint32(1000), off[len(off)-1])
}

func TestComputeAllSockets(t *testing.T) {
	degree := make([]uint64, 256)
	for i := range degree {
		degree[i] = 2
	}
	b, err := ComputeAll(degree, 2, 2, Alpha(2), 1)
	require.NoError(t, err)
	require.Len(t, b.PartOff, 3)
	require.Len(t, b.LocalOffs, 2)
	for p := 0; p < 2; p++ {
		require.Equal(t, b.PartOff[p], b.LocalOffs[p][0])
		require.Equal(t, b.PartOff[p+1], b.LocalOffs[p][len(b.LocalOffs[p])-1])
	}
}

func TestVerifyConsistent(t *testing.T) {
	a := []uint32{0, 10, 20}
	b := []uint32{0, 10, 20}
	require.NoError(t, VerifyConsistent([][]uint32{a, b}))

	c := []uint32{0, 11, 20}
	require.Error(t, VerifyConsistent([][]uint32{a, c}))
}

func TestAlpha(t *testing.T) {
	require.Equal(t, uint64(0), Alpha(1))
	require.Equal(t, uint64(24), Alpha(4))
}
