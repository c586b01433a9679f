// Package sse 解析 OpenAI 风格的 "data:" 行流。
package sse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Zacy-Sokach/SiteChat/internal/api"
)

const dataPrefix = "data:"

// Decoder 按网络块增量解析事件流。
// 跨块的半行会被缓存，直到读到换行符才解析。
// Decoder 实现 io.Writer，可以直接作为 io.Copy 的目标。
type Decoder struct {
	onToken func(string)
	buf     []byte
	done    bool
	skipped int
	tokens  int
}

// NewDecoder 创建解码器，onToken 按接收顺序收到每个非空文本片段
func NewDecoder(onToken func(string)) *Decoder {
	return &Decoder{onToken: onToken}
}

// Write 追加一个网络块并解析其中所有完整的行。
// 读到 [DONE] 之后的数据全部丢弃。
func (d *Decoder) Write(p []byte) (int, error) {
	if d.done {
		return len(p), nil
	}
	d.buf = append(d.buf, p...)

	for !d.done {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		d.handleLine(line)
	}
	if d.done {
		d.buf = nil
	}
	return len(p), nil
}

// Flush 在响应体结束后解析最后一个没有换行符的行
func (d *Decoder) Flush() {
	if d.done || len(d.buf) == 0 {
		d.buf = nil
		return
	}
	line := string(d.buf)
	d.buf = nil
	d.handleLine(line)
}

// Done 是否已经读到结束标记
func (d *Decoder) Done() bool { return d.done }

// Skipped 被跳过的无法解析的事件行数
func (d *Decoder) Skipped() int { return d.skipped }

// Tokens 已发出的文本片段数
func (d *Decoder) Tokens() int { return d.tokens }

func (d *Decoder) handleLine(line string) {
	token, done, ok := ParseLine(line)
	if done {
		d.done = true
		return
	}
	if !ok {
		d.skipped++
		return
	}
	if token == "" {
		return
	}
	d.tokens++
	if d.onToken != nil {
		d.onToken(token)
	}
}

// ParseLine 解析单行事件。
// 空行、注释行以及非 data 字段返回 ok=true 且 token 为空；
// JSON 无法解析的 data 行返回 ok=false。
func ParseLine(line string) (token string, done bool, ok bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false, true
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == api.DoneSentinel {
		return "", true, true
	}
	if data == "" {
		return "", false, true
	}

	var chunk api.StreamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, false
	}
	return chunk.Token(), false, true
}
