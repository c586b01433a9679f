package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"

	"github.com/Zacy-Sokach/SiteChat/internal/api"
	"github.com/Zacy-Sokach/SiteChat/internal/config"
)

// configMissingMessage 配置缺失时返回给浏览器的提示，不包含任何细节
const configMissingMessage = "AI模型配置缺失，请检查 config/ai-model.yaml。"

// maxChatBody 对话请求体上限
const maxChatBody = 1 << 20

// hopHeaders 不应跨代理转发的请求头
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Handler 处理 /api/config 与 /api/chat
type Handler struct {
	configPath string
	client     *http.Client
	demo       bool
	demoDelay  time.Duration
	debug      bool
}

// NewHandler 创建新的处理器
func NewHandler(opts Options) *Handler {
	client := opts.Client
	if client == nil {
		// 流式响应可能持续很久，只限制建立连接和等待响应头的时间
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &Handler{
		configPath: opts.ConfigPath,
		client:     client,
		demo:       opts.Demo,
		demoDelay:  opts.DemoDelay,
		debug:      opts.Debug,
	}
}

// HandleConfig 返回去除密钥后的模型配置
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "方法不允许", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := config.Load(h.configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		ancli.Errf("[%s] 读取模型配置失败: %v\n", requestID(r), err)
		h.writeError(w, configMissingMessage, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, cfg.Public())
}

// HandleChat 把对话请求加上密钥后转发到远端补全接口，并把流式响应原样回传
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		h.writeError(w, "方法不允许", http.StatusMethodNotAllowed)
		return
	}

	id := requestID(r)
	if h.demo {
		h.serveDemo(w, r)
		return
	}

	// 每次请求都重新读取，修改配置无需重启
	cfg, err := config.Load(h.configPath)
	if err == nil {
		err = cfg.ValidateForwarding()
	}
	if err != nil {
		ancli.Errf("[%s] 服务端配置不可用: %v\n", id, err)
		h.writeError(w, "服务器配置错误", http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, cfg.Endpoint, http.MaxBytesReader(w, r.Body, maxChatBody))
	if err != nil {
		ancli.Errf("[%s] 创建请求失败: %v\n", id, err)
		h.writeError(w, "服务器配置错误", http.StatusInternalServerError)
		return
	}
	req.ContentLength = r.ContentLength

	// 先复制客户端请求头，再覆盖服务端字段，客户端无法替换密钥
	copyHeaders(req.Header, r.Header, "Host", "Cookie", "Content-Length")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	if h.debug {
		ancli.Noticef("[%s] 转发请求到: %s\n", id, cfg.Endpoint)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		msg := redact(err.Error(), cfg.APIKey)
		ancli.Errf("[%s] 请求远端失败: %s\n", id, msg)
		h.writeJSON(w, api.ErrorResponse{
			Error: "无法连接 AI 服务: " + msg,
			Type:  "gateway_error",
		}, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	body := io.Reader(resp.Body)
	if resp.StatusCode >= 400 {
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		ancli.Warnf("[%s] 远端返回 %s: %s\n", id, resp.Status, redact(string(head), cfg.APIKey))
		body = io.MultiReader(bytes.NewReader(head), resp.Body)
	}

	copyHeaders(w.Header(), resp.Header, "Content-Length")
	setCORSHeaders(w)
	w.WriteHeader(resp.StatusCode)

	n, err := StreamResponse(w, body)
	if err != nil {
		ancli.Warnf("[%s] 流式转发中断: %v\n", id, err)
		return
	}
	if h.debug {
		ancli.Noticef("[%s] 转发完成，共 %d 字节\n", id, n)
	}
}

// serveDemo 不访问远端，直接把示例回复模拟成流式响应
func (h *Handler) serveDemo(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		h.writeError(w, fmt.Sprintf("无效的JSON请求体: %v", err), http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = "demo"
	}
	if err := SimulateStream(w, DemoReply(lastUserText(req.Messages)), model, h.demoDelay); err != nil {
		ancli.Warnf("[%s] 模拟流失败: %v\n", requestID(r), err)
	}
}

// lastUserText 取最后一条用户消息
func lastUserText(msgs []api.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == api.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// writeJSON 写入JSON响应
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode ...int) {
	w.Header().Set("Content-Type", "application/json")
	code := http.StatusOK
	if len(statusCode) > 0 {
		code = statusCode[0]
	}
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

// writeError 写入错误响应
func (h *Handler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, api.ErrorResponse{Error: message}, statusCode)
}

func setCORSHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
}

// copyHeaders 复制除逐跳头和 skip 以外的所有头
func copyHeaders(dst, src http.Header, skip ...string) {
	for k, vv := range src {
		ck := http.CanonicalHeaderKey(k)
		if hopHeaders[ck] || contains(skip, ck) {
			continue
		}
		for _, v := range vv {
			dst.Add(ck, v)
		}
	}
}

func contains(list []string, key string) bool {
	for _, s := range list {
		if http.CanonicalHeaderKey(s) == key {
			return true
		}
	}
	return false
}

// redact 把文本中的密钥替换掉
func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
