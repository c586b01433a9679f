package sse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect() (*Decoder, *[]string) {
	var tokens []string
	d := NewDecoder(func(s string) { tokens = append(tokens, s) })
	return d, &tokens
}

func TestDecoderTwoChunks(t *testing.T) {
	d, tokens := collect()

	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n\n"))
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\ndata: [DONE]\n\n"))

	assert.Equal(t, []string{"He", "llo"}, *tokens)
	assert.Equal(t, "Hello", strings.Join(*tokens, ""))
	assert.True(t, d.Done())
}

func TestDecoderBuffersPartialLines(t *testing.T) {
	d, tokens := collect()
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"你好\"}}]}\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"，世界\"}}]}\n\ndata: [DONE]\n\n"

	// 逐字节喂入，任何一行都不能在读完之前被解析
	for i := 0; i < len(stream); i++ {
		d.Write([]byte{stream[i]})
	}

	assert.Equal(t, []string{"你好", "，世界"}, *tokens)
	assert.Equal(t, 0, d.Skipped())
	assert.True(t, d.Done())
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	d, tokens := collect()

	d.Write([]byte("data: {not json}\n"))
	d.Write([]byte(": keep-alive comment\n"))
	d.Write([]byte("event: ping\n"))
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n"))

	assert.Equal(t, []string{"ok"}, *tokens)
	assert.Equal(t, 1, d.Skipped())
	assert.False(t, d.Done())
}

func TestDecoderIgnoresDataAfterDone(t *testing.T) {
	d, tokens := collect()

	in := []byte("data: [DONE]\ndata: {\"choices\":[{\"delta\":{\"content\":\"late\"}}]}\n")
	n, err := d.Write(in)
	require.NoError(t, err)
	assert.Equal(t, len(in), n)
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"later\"}}]}\n"))

	assert.Empty(t, *tokens)
	assert.True(t, d.Done())
}

func TestDecoderHandlesCRLF(t *testing.T) {
	d, tokens := collect()
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\r\n\r\ndata: [DONE]\r\n"))

	assert.Equal(t, []string{"a"}, *tokens)
	assert.True(t, d.Done())
}

func TestDecoderEmptyDeltaYieldsNothing(t *testing.T) {
	d, tokens := collect()
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n"))
	d.Write([]byte("data: {\"choices\":[]}\n"))

	assert.Empty(t, *tokens)
	assert.Equal(t, 0, d.Tokens())
}

func TestDecoderFlushParsesTrailingLine(t *testing.T) {
	d, tokens := collect()
	d.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"tail\"}}]}"))
	assert.Empty(t, *tokens)

	d.Flush()
	assert.Equal(t, []string{"tail"}, *tokens)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line  string
		token string
		done  bool
		ok    bool
	}{
		{`data: {"choices":[{"delta":{"content":"x"}}]}`, "x", false, true},
		{`data:{"choices":[{"delta":{"content":"y"}}]}`, "y", false, true},
		{"data: [DONE]", "", true, true},
		{"data:[DONE]", "", true, true},
		{"", "", false, true},
		{"data: ", "", false, true},
		{"data: nope", "", false, false},
	}
	for _, tt := range tests {
		token, done, ok := ParseLine(tt.line)
		assert.Equal(t, tt.token, token, tt.line)
		assert.Equal(t, tt.done, done, tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
	}
}
