package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitChunksCount(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "empty", length: 0, want: 0},
		{name: "below one chunk", length: 500, want: 1},
		{name: "exactly one chunk", length: 1000, want: 2},
		{name: "one stride", length: 900, want: 1},
		{name: "two strides", length: 1800, want: 2},
		{name: "partial tail", length: 2000, want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			chunks := SplitChunks(text, DefaultChunkSize, DefaultOverlap)
			require.Len(t, chunks, tt.want)
		})
	}
}

func TestSplitChunksCoversEveryOffset(t *testing.T) {
	const length = 2500
	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	text := sb.String()

	chunks := SplitChunks(text, DefaultChunkSize, DefaultOverlap)
	covered := make([]bool, length)
	offset := 0
	stride := DefaultChunkSize - DefaultOverlap
	for _, chunk := range chunks {
		require.Equal(t, text[offset:offset+len(chunk)], chunk)
		for i := 0; i < len(chunk); i++ {
			covered[offset+i] = true
		}
		offset += stride
	}
	for i, ok := range covered {
		require.True(t, ok, "offset %d not covered", i)
	}
}

func TestSplitChunksOverlap(t *testing.T) {
	text := strings.Repeat("x", 1900)
	chunks := SplitChunks(text, 1000, 100)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 1000)
	require.Len(t, chunks[1], 1000)
	// Chunk boundaries: [0,1000), [900,1900), [1800,1900)
	require.Len(t, chunks[2], 100)
}

func TestSplitChunksHandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("特", 950)
	chunks := SplitChunks(text, 1000, 100)
	require.Len(t, chunks, 2)
	require.Equal(t, 950, len([]rune(chunks[0])))
	require.Equal(t, 50, len([]rune(chunks[1])))
}
