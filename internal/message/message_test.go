package message

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaReserveWriteIsContiguous(t *testing.T) {
	a := NewArena[int](8, 2)

	pos, err := a.Reserve(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pos)
	a.Write(pos, []Unit[int]{{Vertex: 0, Msg: 1}, {Vertex: 1, Msg: 2}, {Vertex: 2, Msg: 3}})

	pos, err = a.Reserve(2)
	require.NoError(t, err)
	require.Equal(t, uint64(3), pos)
	a.Write(pos, []Unit[int]{{Vertex: 3, Msg: 4}, {Vertex: 4, Msg: 5}})

	require.Equal(t, uint64(5), a.Len())
	require.Len(t, a.Units(), 5)
	require.Equal(t, uint32(4), a.Units()[4].Vertex)
}

func TestArenaOverflow(t *testing.T) {
	a := NewArena[int](2, 1)
	_, err := a.Reserve(3)
	require.Error(t, err)
}

func TestArenaDelegatedLayout(t *testing.T) {
	a := NewArena[int](10, 3)

	pos, _ := a.Reserve(2)
	a.Write(pos, []Unit[int]{{Vertex: 0}, {Vertex: 1}})
	a.SetOwnedCount()
	require.Equal(t, uint64(2), a.OwnedCount())

	a.SetDelegatedStart(0)
	pos, _ = a.Reserve(1)
	a.Write(pos, []Unit[int]{{Vertex: 2}})

	a.SetDelegatedStart(1)
	pos, _ = a.Reserve(3)
	a.Write(pos, []Unit[int]{{Vertex: 3}, {Vertex: 4}, {Vertex: 5}})

	a.CloseDelegatedLayout(3)

	lo, hi := a.DelegatedRange(0, 1)
	require.Equal(t, uint64(2), lo)
	require.Equal(t, uint64(3), hi)

	lo, hi = a.DelegatedRange(1, 3)
	require.Equal(t, uint64(3), lo)
	require.Equal(t, uint64(6), hi)
}

func TestArenaReset(t *testing.T) {
	a := NewArena[int](4, 1)
	pos, _ := a.Reserve(2)
	a.Write(pos, []Unit[int]{{Vertex: 0}, {Vertex: 1}})
	a.SetOwnedCount()
	a.SetDelegatedStart(0)

	a.Reset()
	require.Equal(t, uint64(0), a.Len())
	require.Equal(t, uint64(0), a.OwnedCount())
	lo, hi := a.DelegatedRange(0, 1)
	require.Equal(t, uint64(0), lo)
	require.Equal(t, uint64(0), hi)
}

func TestSetForReturnsIndependentBuffers(t *testing.T) {
	set := NewSet[int](2, 2, 4)

	buf00 := set.For(0, 0)
	pos, err := buf00.Send.Reserve(1)
	require.NoError(t, err)
	buf00.Send.Write(pos, []Unit[int]{{Vertex: 7}})

	buf01 := set.For(0, 1)
	require.Equal(t, uint64(0), buf01.Send.Len())

	set.ResetAll()
	require.Equal(t, uint64(0), buf00.Send.Len())
}

func TestScratchFlushIntoArena(t *testing.T) {
	scratch := NewScratch[string](2)
	arena := NewArena[string](8, 1)

	require.False(t, scratch.Append(0, "a"))
	require.True(t, scratch.Append(1, "b")) // hits the limit of 2

	require.NoError(t, Flush(scratch, arena))
	require.Equal(t, 0, scratch.Len())
	require.Equal(t, uint64(2), arena.Len())
	require.Equal(t, "a", arena.Units()[0].Msg)
	require.Equal(t, "b", arena.Units()[1].Msg)

	require.False(t, scratch.Append(2, "c"))
	require.NoError(t, Flush(scratch, arena))
	require.Equal(t, uint64(3), arena.Len())
}

func TestFlushNoOpOnEmptyScratch(t *testing.T) {
	scratch := NewScratch[int](4)
	arena := NewArena[int](4, 1)
	require.NoError(t, Flush(scratch, arena))
	require.Equal(t, uint64(0), arena.Len())
}
