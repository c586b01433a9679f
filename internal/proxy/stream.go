package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Zacy-Sokach/SiteChat/internal/api"
)

// StreamResponse 把远端响应体逐块写回客户端，每次读取后立即刷新。
// 状态码和响应头需由调用方先写好。
func StreamResponse(w http.ResponseWriter, r io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)

	var total int64
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			written, writeErr := w.Write(buf[:n])
			total += int64(written)
			if writeErr != nil {
				return total, fmt.Errorf("写入响应失败: %w", writeErr)
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("读取流数据失败: %w", err)
		}
	}
}

// simulatedChunkRunes 模拟流时每个事件携带的字符数
const simulatedChunkRunes = 4

// SimulateStream 将一段完整文本模拟为 SSE 流式响应，按字符切分避免截断多字节字符
func SimulateStream(w http.ResponseWriter, content, model string, delay time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("响应写入器不支持刷新")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	chunk := func(delta *api.Delta, finish string) api.StreamChunk {
		return api.StreamChunk{
			ID:      "chatcmpl-simulated",
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []api.Choice{{Delta: delta, FinishReason: finish}},
		}
	}

	if err := sendSSEChunk(w, chunk(&api.Delta{Role: api.RoleAssistant}, "")); err != nil {
		return err
	}
	flusher.Flush()

	runes := []rune(content)
	for i := 0; i < len(runes); i += simulatedChunkRunes {
		end := min(i+simulatedChunkRunes, len(runes))
		if delay > 0 {
			time.Sleep(delay)
		}
		if err := sendSSEChunk(w, chunk(&api.Delta{Content: string(runes[i:end])}, "")); err != nil {
			return err
		}
		flusher.Flush()
	}

	if err := sendSSEChunk(w, chunk(&api.Delta{}, "stop")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: " + api.DoneSentinel + "\n\n")); err != nil {
		return fmt.Errorf("写入结束标记失败: %w", err)
	}
	flusher.Flush()
	return nil
}

// sendSSEChunk 发送SSE格式的数据块
func sendSSEChunk(w io.Writer, data api.StreamChunk) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化数据块失败: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", jsonData); err != nil {
		return fmt.Errorf("写入数据块失败: %w", err)
	}
	return nil
}
