package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/russross/blackfriday/v2"

	"github.com/Zacy-Sokach/SiteChat/internal/markdown"
)

// TerminalRenderer 把 Markdown 渲染为终端文本。
// 与网页端使用同一套解析规则，原始 HTML 同样被丢弃。
type TerminalRenderer struct {
	heading lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	strong  lipgloss.Style
	emph    lipgloss.Style
	del     lipgloss.Style
	quote   lipgloss.Style
}

// NewTerminalRenderer 创建终端 Markdown 渲染器
func NewTerminalRenderer() *TerminalRenderer {
	return &TerminalRenderer{
		heading: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
		code:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		link:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		strong:  lipgloss.NewStyle().Bold(true),
		emph:    lipgloss.NewStyle().Italic(true),
		del:     lipgloss.NewStyle().Strikethrough(true),
		quote:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Render 渲染 Markdown 文本
func (r *TerminalRenderer) Render(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	doc := blackfriday.New(blackfriday.WithExtensions(markdown.Extensions)).Parse([]byte(text))

	var sb strings.Builder
	r.blocks(&sb, doc)
	return strings.TrimRight(sb.String(), "\n")
}

func (r *TerminalRenderer) blocks(sb *strings.Builder, parent *blackfriday.Node) {
	for n := parent.FirstChild; n != nil; n = n.Next {
		switch n.Type {
		case blackfriday.Paragraph:
			sb.WriteString(r.inline(n))
			if isTightItem(n) {
				sb.WriteString("\n")
			} else {
				sb.WriteString("\n\n")
			}
		case blackfriday.Heading:
			prefix := strings.Repeat("#", n.Level) + " "
			sb.WriteString(r.heading.Render(prefix + r.inline(n)))
			sb.WriteString("\n\n")
		case blackfriday.CodeBlock:
			code := strings.TrimRight(string(n.Literal), "\n")
			for _, line := range strings.Split(code, "\n") {
				sb.WriteString("  ")
				sb.WriteString(r.code.Render(line))
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		case blackfriday.List:
			r.list(sb, n)
		case blackfriday.BlockQuote:
			var inner strings.Builder
			r.blocks(&inner, n)
			for _, line := range strings.Split(strings.TrimRight(inner.String(), "\n"), "\n") {
				sb.WriteString(r.quote.Render("│ ") + line + "\n")
			}
			sb.WriteString("\n")
		case blackfriday.HorizontalRule:
			sb.WriteString(r.quote.Render(strings.Repeat("─", 24)))
			sb.WriteString("\n\n")
		case blackfriday.HTMLBlock:
			// 丢弃
		default:
			r.blocks(sb, n)
		}
	}
}

func (r *TerminalRenderer) list(sb *strings.Builder, list *blackfriday.Node) {
	ordered := list.ListFlags&blackfriday.ListTypeOrdered != 0
	i := 1
	for item := list.FirstChild; item != nil; item = item.Next {
		marker := "• "
		if ordered {
			marker = fmt.Sprintf("%d. ", i)
		}
		var inner strings.Builder
		r.blocks(&inner, item)
		lines := strings.Split(strings.TrimRight(inner.String(), "\n"), "\n")
		pad := strings.Repeat(" ", lipgloss.Width(marker))
		for j, line := range lines {
			if j == 0 {
				sb.WriteString(marker + line + "\n")
			} else if line != "" {
				sb.WriteString(pad + line + "\n")
			} else {
				sb.WriteString("\n")
			}
		}
		i++
	}
	if list.Parent == nil || list.Parent.Type != blackfriday.Item {
		sb.WriteString("\n")
	}
}

func (r *TerminalRenderer) inline(parent *blackfriday.Node) string {
	var sb strings.Builder
	for n := parent.FirstChild; n != nil; n = n.Next {
		switch n.Type {
		case blackfriday.Text:
			sb.Write(n.Literal)
		case blackfriday.Strong:
			sb.WriteString(r.strong.Render(r.inline(n)))
		case blackfriday.Emph:
			sb.WriteString(r.emph.Render(r.inline(n)))
		case blackfriday.Del:
			sb.WriteString(r.del.Render(r.inline(n)))
		case blackfriday.Code:
			sb.WriteString(r.code.Render(string(n.Literal)))
		case blackfriday.Link:
			label := r.inline(n)
			dest := string(n.LinkData.Destination)
			if label == "" || label == dest {
				sb.WriteString(r.link.Render(dest))
			} else {
				sb.WriteString(r.link.Render(label) + " (" + dest + ")")
			}
		case blackfriday.Image:
			sb.WriteString("[图片: " + r.inline(n) + "]")
		case blackfriday.Hardbreak, blackfriday.Softbreak:
			if !markdown.IsTrailingBreak(n) {
				sb.WriteString("\n")
			}
		case blackfriday.HTMLSpan:
			// 丢弃
		default:
			sb.WriteString(r.inline(n))
		}
	}
	return sb.String()
}

// isTightItem 紧凑列表项中的段落之间不空行
func isTightItem(p *blackfriday.Node) bool {
	item := p.Parent
	if item == nil || item.Type != blackfriday.Item || item.Parent == nil {
		return false
	}
	return item.Parent.Tight
}
