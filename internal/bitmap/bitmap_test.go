package bitmap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetClear(t *testing.T) {
	b := New(130)
	require.False(t, b.Get(0))
	b.Set(0)
	b.Set(63)
	b.Set(64)
	b.Set(129)
	require.True(t, b.Get(0))
	require.True(t, b.Get(63))
	require.True(t, b.Get(64))
	require.True(t, b.Get(129))
	require.False(t, b.Get(1))

	b.Clear(64)
	require.False(t, b.Get(64))
}

func TestPopcountRange(t *testing.T) {
	b := New(200)
	for _, v := range []int{0, 1, 63, 64, 100, 199} {
		b.Set(v)
	}
	require.Equal(t, 6, b.Popcount())
	require.Equal(t, 2, b.PopcountRange(0, 64))
	require.Equal(t, 2, b.PopcountRange(64, 128))
	require.Equal(t, 0, b.PopcountRange(128, 199))
	require.Equal(t, 1, b.PopcountRange(128, 200))
}

func TestScanWord(t *testing.T) {
	b := New(128)
	b.Set(2)
	b.Set(5)
	b.Set(70)

	var got []int
	b.ScanWord(0, func(v int) { got = append(got, v) })
	require.Equal(t, []int{2, 5}, got)

	got = nil
	b.ScanWord(1, func(v int) { got = append(got, v) })
	require.Equal(t, []int{70}, got)
}

func TestWordCount(t *testing.T) {
	require.Equal(t, 1, wordCount(1))
	require.Equal(t, 1, wordCount(64))
	require.Equal(t, 2, wordCount(65))
}
