package xrender_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xbar/pkg/debug/xrender"
)

func TestEncodeDecodeHeader(t *testing.T) {
	enc, err := xrender.EncodeHeader(map[string]any{"id": "abc", "n": 3})
	require.NoError(t, err)
	assert.Equal(t, "eyJpZCI6ImFiYyIsIm4iOjN9", enc)

	var got map[string]any
	require.NoError(t, xrender.DecodeHeader(enc, &got))
	assert.Equal(t, "abc", got["id"])

	_, err = xrender.EncodeHeader(make(chan int))
	assert.ErrorIs(t, err, xrender.ErrEncode)
	assert.ErrorIs(t, xrender.DecodeHeader("%%%", &got), xrender.ErrEncode)
}

func TestChunkHeader(t *testing.T) {
	chunks, err := xrender.ChunkHeader(xrender.HeaderPrefix, "abcdefghij", 4)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"X-Debugbar-Data", "abcd"},
		{"X-Debugbar-Data-1", "efgh"},
		{"X-Debugbar-Data-2", "ij"},
	}, chunks)

	chunks, err = xrender.ChunkHeader(xrender.HeaderPrefix, "abc", 4096)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"X-Debugbar-Data", "abc"}}, chunks)

	chunks, err = xrender.ChunkHeader(xrender.HeaderPrefix, "", 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = xrender.ChunkHeader(xrender.HeaderPrefix, "abc", 0)
	assert.ErrorIs(t, err, xrender.ErrInvalidChunkSize)
}

func TestChunkHeader_Reassemble(t *testing.T) {
	value := strings.Repeat("QUJD", 2500)
	chunks, err := xrender.ChunkHeader(xrender.HeaderPrefix, value, 4096)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	var b strings.Builder
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c[1]), 4096)
		b.WriteString(c[1])
	}
	assert.Equal(t, value, b.String())
}
