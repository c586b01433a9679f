package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/Zacy-Sokach/SiteChat/internal/api"
	"github.com/Zacy-Sokach/SiteChat/internal/config"
	"github.com/Zacy-Sokach/SiteChat/internal/markdown"
	"github.com/Zacy-Sokach/SiteChat/internal/sse"
	"github.com/Zacy-Sokach/SiteChat/internal/utils"
)

type Role string

const (
	RoleUser      Role = api.RoleUser
	RoleAssistant Role = api.RoleAssistant
)

// ChatMessage 对话中的一条消息。
// 只有正在生成的回复会被修改，且只会在末尾追加。
type ChatMessage struct {
	Role       Role
	RawText    string
	IsMarkdown bool
	// IsError 错误或提示气泡，不会作为上下文再发给模型
	IsError bool
}

// View 对话面板。所有回调都在发送消息的 goroutine 上按顺序调用。
type View interface {
	AppendMessage(index int, msg ChatMessage, html string)
	UpdateMessage(index int, msg ChatMessage, html string)
	SetInputEnabled(enabled bool)
}

// Option Session 可选项
type Option func(*Session)

// WithHTTPClient 替换发送对话请求的客户端
func WithHTTPClient(c utils.Doer) Option {
	return func(s *Session) { s.client = c }
}

// WithRenderer 替换 Markdown 渲染函数
func WithRenderer(fn func(string) string) Option {
	return func(s *Session) { s.render = fn }
}

// Session 一个对话面板对应的会话
type Session struct {
	chatURL string
	loader  *Loader
	client  utils.Doer
	view    View
	render  func(string) string

	mu       sync.Mutex
	messages []ChatMessage
	sending  bool
}

// NewSession 创建会话，请求统一发往 baseURL 上的本地代理
func NewSession(baseURL string, loader *Loader, view View, opts ...Option) *Session {
	s := &Session{
		chatURL: strings.TrimRight(baseURL, "/") + "/api/chat",
		loader:  loader,
		// 流式响应不设整体超时
		client: &http.Client{},
		view:   view,
		render: markdown.Render,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Messages 返回当前对话的副本
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Busy 是否有回复正在进行
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// WatchConfig 等待配置加载结束，失败时在对话中显示原因
func (s *Session) WatchConfig(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-s.loader.Done():
	}
	if err := s.loader.GetError(); err != nil {
		s.appendNotice(err)
	}
}

// Submit 在后台发送消息，不等待结果
func (s *Session) Submit(ctx context.Context, userText string) {
	go s.SendMessage(ctx, userText)
}

// SendMessage 发送一条用户消息并把流式回复逐段渲染到 View。
// 发送期间输入被禁用，同一会话不会有两个回复交错。
func (s *Session) SendMessage(ctx context.Context, userText string) error {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return ErrSendInProgress
	}
	s.sending = true
	s.mu.Unlock()

	s.view.SetInputEnabled(false)
	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
		s.view.SetInputEnabled(true)
	}()

	s.appendMessage(ChatMessage{Role: RoleUser, RawText: userText})

	// 每次发送只读取一次加载状态
	state, cfg, loadErr := s.loader.State()
	if state != StateLoaded {
		err := ErrConfigNotReady
		if loadErr != nil {
			err = fmt.Errorf("%w: %w", ErrConfigNotReady, loadErr)
		}
		s.appendNotice(err)
		return err
	}

	if err := s.stream(ctx, cfg); err != nil {
		s.appendNotice(err)
		return err
	}
	return nil
}

func (s *Session) stream(ctx context.Context, cfg *config.ModelConfig) error {
	body, err := json.Marshal(s.buildRequest(cfg))
	if err != nil {
		return fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.chatURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChatRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrChatRequestFailed, err)
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrChatRequestFailed
		if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusGatewayTimeout {
			kind = ErrGateway
		}
		return newStatusError(kind, resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return fmt.Errorf("%w: 响应体为空", ErrChatRequestFailed)
	}

	// 收到第一个片段时才创建回复气泡
	reply := -1
	dec := sse.NewDecoder(func(token string) {
		if reply < 0 {
			reply = s.appendMessage(ChatMessage{Role: RoleAssistant, IsMarkdown: true})
		}
		s.extend(reply, token)
	})

	buf := make([]byte, 4096)
	for !dec.Done() {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
		}
		if errors.Is(rerr, io.EOF) {
			dec.Flush()
			break
		}
		if rerr != nil {
			return fmt.Errorf("%w: 读取流失败: %w", ErrChatRequestFailed, rerr)
		}
	}

	if dec.Tokens() == 0 {
		return ErrNoContent
	}
	return nil
}

// buildRequest 组装系统提示、历史对话和生成参数
func (s *Session) buildRequest(cfg *config.ModelConfig) api.ChatRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]api.Message, 0, len(s.messages)+1)
	if cfg.SystemPrompt != "" {
		msgs = append(msgs, api.TextMessage(api.RoleSystem, cfg.SystemPrompt))
	}
	for _, m := range s.messages {
		if m.IsError || m.RawText == "" {
			continue
		}
		msgs = append(msgs, api.TextMessage(string(m.Role), m.RawText))
	}

	return api.ChatRequest{
		Model:       cfg.Model,
		Messages:    msgs,
		Stream:      true,
		MaxTokens:   cfg.MaxToken,
		Temperature: cfg.Temperature,
	}
}

func (s *Session) appendMessage(msg ChatMessage) int {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	idx := len(s.messages) - 1
	s.mu.Unlock()

	s.view.AppendMessage(idx, msg, s.toHTML(msg))
	return idx
}

func (s *Session) appendNotice(err error) {
	s.appendMessage(ChatMessage{Role: RoleAssistant, RawText: Describe(err), IsError: true})
}

// extend 把片段追加到回复末尾并立即重新渲染
func (s *Session) extend(idx int, token string) {
	s.mu.Lock()
	s.messages[idx].RawText += token
	msg := s.messages[idx]
	s.mu.Unlock()

	s.view.UpdateMessage(idx, msg, s.toHTML(msg))
}

func (s *Session) toHTML(msg ChatMessage) string {
	if msg.IsMarkdown {
		return s.render(msg.RawText)
	}
	return markdown.EscapeHTML(msg.RawText)
}
