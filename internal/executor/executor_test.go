package executor

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRunVisitsEveryWordExactlyOnce(t *testing.T) {
	pool := New(4, 2, zerolog.Nop())
	const words = 50
	var seen [words]atomic.Int32

	pool.Run([]SocketRange{
		{Socket: 0, LoWord: 0, HiWord: 25},
		{Socket: 1, LoWord: 25, HiWord: 50},
	}, func(threadIdx, word int) {
		seen[word].Add(1)
	})

	for w := 0; w < words; w++ {
		require.Equal(t, int32(1), seen[w].Load(), "word %d visited %d times", w, seen[w].Load())
	}
}

func TestRunReduceSumsAllWords(t *testing.T) {
	pool := New(8, 2, zerolog.Nop())
	total := RunReduce(pool, []SocketRange{
		{Socket: 0, LoWord: 0, HiWord: 10},
		{Socket: 1, LoWord: 10, HiWord: 20},
	}, 0, func(threadIdx, word int) int {
		return word
	}, func(a, b int) int { return a + b })

	want := 0
	for i := 0; i < 20; i++ {
		want += i
	}
	require.Equal(t, want, total)
}

func TestWorkStealingHandlesUnevenLoad(t *testing.T) {
	// One socket, many threads, a tiny range: some threads get zero
	// words from their own assignment and must steal or exit cleanly.
	pool := New(8, 1, zerolog.Nop())
	var count atomic.Int32
	pool.Run([]SocketRange{{Socket: 0, LoWord: 0, HiWord: 3}}, func(threadIdx, word int) {
		count.Add(1)
	})
	require.Equal(t, int32(3), count.Load())
}
