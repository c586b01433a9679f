package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Zacy-Sokach/SiteChat/internal/api"
)

var (
	// ErrConfigMissing 配置接口返回错误状态或缺少 endpoint/model
	ErrConfigMissing = errors.New("AI模型配置缺失")
	// ErrConfigUnreachable 多次重试后仍无法连接配置接口
	ErrConfigUnreachable = errors.New("无法获取模型配置")
	// ErrConfigNotReady 发送时配置尚未加载完成或加载失败
	ErrConfigNotReady = errors.New("模型配置不可用")
	// ErrChatRequestFailed 代理返回非 2xx、响应体缺失或连接中断
	ErrChatRequestFailed = errors.New("对话请求失败")
	// ErrGateway 代理无法连接远端补全服务
	ErrGateway = errors.New("AI 服务网关错误")
	// ErrNoContent 流正常结束但没有任何文本
	ErrNoContent = errors.New("AI 未返回任何内容")
	// ErrSendInProgress 上一条回复尚未结束
	ErrSendInProgress = errors.New("上一条消息仍在回复中")
)

// StatusError 表示服务端返回的非成功状态
type StatusError struct {
	Kind       error
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v (状态码: %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%v (状态码: %d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// maxErrorBody 读取错误响应体的上限
const maxErrorBody = 4 << 10

// newStatusError 读取响应体中的错误信息，优先使用 {"error": "..."} 结构
func newStatusError(kind error, resp *http.Response) *StatusError {
	se := &StatusError{Kind: kind, StatusCode: resp.StatusCode}
	if resp.Body == nil {
		return se
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body api.ErrorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		se.Message = body.Error
		return se
	}
	se.Message = strings.TrimSpace(string(data))
	return se
}

// Describe 把错误转换成展示在对话中的提示文本
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrNoContent):
		return "（AI 没有返回任何内容，请换个问法再试）"
	case errors.Is(err, ErrSendInProgress):
		return "请等待当前回复结束后再发送。"
	case errors.Is(err, ErrConfigNotReady) && errors.Is(err, ErrConfigMissing):
		return "⚠️ AI模型配置缺失，请检查 config/ai-model.yaml。\n" + err.Error()
	case errors.Is(err, ErrConfigNotReady):
		return "⚠️ AI 配置尚未就绪，请稍后再试。"
	case errors.Is(err, ErrConfigMissing), errors.Is(err, ErrConfigUnreachable):
		return "⚠️ " + err.Error()
	case errors.Is(err, ErrGateway):
		return "⚠️ AI 服务暂时无法连接，请稍后再试。\n" + err.Error()
	default:
		return "⚠️ " + err.Error()
	}
}
