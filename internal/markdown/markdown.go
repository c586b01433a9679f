// Package markdown 把 AI 回复的原始文本渲染成可以直接插入页面的 HTML 片段。
//
// 渲染分两步：blackfriday 先把文本切成块级/行内节点树，再由 chatRenderer
// 遍历节点输出 HTML，最后经 bluemonday 清洗。流式输出时每收到一个片段就会
// 对整段文本重新渲染一次，因此 Render 必须是纯函数。
package markdown

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

const (
	containerOpen  = `<div class="ai-chat-markdown">`
	containerClose = `</div>`
)

// Extensions 解析扩展，终端渲染共用。
// 单个换行输出 <br>，列表和标题前不要求空行。
// 不开启 NoIntraEmphasis：中文前后没有空格，*斜体* 紧贴汉字时也要生效。
const Extensions = blackfriday.FencedCode |
	blackfriday.Autolink |
	blackfriday.Strikethrough |
	blackfriday.SpaceHeadings |
	blackfriday.HardLineBreak |
	blackfriday.NoEmptyLineBeforeBlock

// 模型输出里的原始 HTML 一律丢弃
const htmlFlags = blackfriday.SkipHTML | blackfriday.Safelink

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
	p.AllowAttrs("target").Matching(regexp.MustCompile(`^_blank$`)).OnElements("a")
	return p
}

// chatRenderer 在 blackfriday 默认 HTML 输出的基础上让所有链接在新窗口打开
type chatRenderer struct {
	*blackfriday.HTMLRenderer
}

func newRenderer() *chatRenderer {
	return &chatRenderer{
		HTMLRenderer: blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{
			Flags: htmlFlags,
		}),
	}
}

func (r *chatRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	if IsTrailingBreak(node) {
		return blackfriday.GoToNext
	}
	if node.Type != blackfriday.Link {
		return r.HTMLRenderer.RenderNode(w, node, entering)
	}
	if !entering {
		io.WriteString(w, "</a>")
		return blackfriday.GoToNext
	}
	io.WriteString(w, `<a href="`)
	io.WriteString(w, html.EscapeString(string(node.LinkData.Destination)))
	io.WriteString(w, `" target="_blank">`)
	return blackfriday.GoToNext
}

// IsTrailingBreak 报告 node 是否为块末尾多余的换行。
// 列表项文本自带结尾换行，开启 HardLineBreak 后会被解析成 <br>。
func IsTrailingBreak(node *blackfriday.Node) bool {
	if node.Type != blackfriday.Hardbreak {
		return false
	}
	for n := node.Next; n != nil; n = n.Next {
		if n.Type != blackfriday.Text || len(bytes.TrimSpace(n.Literal)) > 0 {
			return false
		}
	}
	return true
}

// Render 把 Markdown 文本渲染为清洗过的 HTML 片段。
// 对同一文档不断增长的前缀反复调用是安全的；未闭合的代码块等
// 不完整语法会暂时按普通文本显示，下一次渲染时自然纠正。
func Render(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return containerOpen + containerClose
	}

	parser := blackfriday.New(blackfriday.WithExtensions(Extensions))
	root := parser.Parse([]byte(text))

	r := newRenderer()
	var buf bytes.Buffer
	root.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		return r.RenderNode(&buf, node, entering)
	})

	return containerOpen + policy.Sanitize(buf.String()) + containerClose
}

// EscapeHTML 转义 < > & " 四个字符
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)
