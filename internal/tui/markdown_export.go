package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zacy-Sokach/SiteChat/internal/client"
	"github.com/Zacy-Sokach/SiteChat/internal/markdown"
)

// Entry 界面上的一条消息及其 HTML 渲染结果
type Entry struct {
	Message client.ChatMessage
	HTML    string
}

const transcriptHead = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{font-family:system-ui,sans-serif;max-width:760px;margin:2em auto;padding:0 1em;color:#222}
.msg{margin:1em 0;padding:.6em 1em;border-radius:8px}
.user{background:#e8f1ff;white-space:pre-wrap}
.ai{background:#f5f5f5}
.notice{background:#fff4e5;white-space:pre-wrap}
.role{font-size:.8em;color:#888;margin-bottom:.3em}
pre{background:#272822;color:#f8f8f2;padding:.8em;overflow-x:auto;border-radius:6px}
</style>
</head>
<body>
<h1>%s</h1>
`

// RenderTranscript 把对话拼成独立的 HTML 页面。
// 各条消息使用会话渲染时得到的 HTML，缺失时重新转义原文。
func RenderTranscript(title string, entries []Entry) string {
	var sb strings.Builder
	escTitle := markdown.EscapeHTML(title)
	fmt.Fprintf(&sb, transcriptHead, escTitle, escTitle)

	for _, e := range entries {
		class, role := "ai", "AI"
		switch {
		case e.Message.Role == client.RoleUser:
			class, role = "user", "你"
		case e.Message.IsError:
			class, role = "notice", "提示"
		}
		body := e.HTML
		if body == "" {
			body = markdown.EscapeHTML(e.Message.RawText)
		}
		fmt.Fprintf(&sb, "<div class=\"msg %s\"><div class=\"role\">%s</div>%s</div>\n", class, role, body)
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// ExportTranscript 写入 HTML 文件。path 为空时写到当前目录下带时间戳的文件。
func ExportTranscript(path, title string, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("没有可导出的对话")
	}
	if path == "" {
		path = fmt.Sprintf("sitechat-%s.html", time.Now().Format("20060102-150405"))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("创建目录失败: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(RenderTranscript(title, entries)), 0o644); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
