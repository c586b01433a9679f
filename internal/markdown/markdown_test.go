package markdown

import (
	"html"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const showcase = "# Markdown 示例\n" +
	"**粗体**、*斜体*、`代码`、[链接](https://www.example.com)\n\n" +
	"- 列表项一\n" +
	"- 列表项二\n\n" +
	"```js\n" +
	"console.log('代码块');\n" +
	"```\n"

var codeRe = regexp.MustCompile(`(?s)<code[^>]*>(.*?)</code>`)

func codeBodies(out string) []string {
	var bodies []string
	for _, m := range codeRe.FindAllStringSubmatch(out, -1) {
		bodies = append(bodies, m[1])
	}
	return bodies
}

func TestRenderShowcase(t *testing.T) {
	out := Render(showcase)

	assert.True(t, strings.HasPrefix(out, `<div class="ai-chat-markdown">`))
	assert.True(t, strings.HasSuffix(out, `</div>`))
	assert.Contains(t, out, "<h1>Markdown 示例</h1>")
	assert.Contains(t, out, "<strong>粗体</strong>")
	assert.Contains(t, out, "<em>斜体</em>")
	assert.Contains(t, out, "<code>代码</code>")
	assert.Contains(t, out, `href="https://www.example.com"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "<li>列表项一</li>")
	assert.Contains(t, out, "<li>列表项二</li>")
	assert.Contains(t, out, `<pre><code class="language-js">`)

	bodies := codeBodies(out)
	require.NotEmpty(t, bodies)
	block := bodies[len(bodies)-1]
	assert.NotContains(t, block, "'")
	assert.Contains(t, html.UnescapeString(block), "console.log('代码块');")
}

func TestRenderEscapesCodeContainers(t *testing.T) {
	input := "```\n<script>alert(\"x & y\")</script>\n```\n\n行内 `<img src=x onerror=\"go()\">` 结束"
	out := Render(input)

	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<img")

	bodies := codeBodies(out)
	require.Len(t, bodies, 2)
	for _, body := range bodies {
		assert.NotContains(t, body, "<")
		assert.NotContains(t, body, ">")
		assert.NotContains(t, body, `"`)
		assert.NotRegexp(t, `&[^a-z#]`, body)
	}
	assert.Equal(t, "<script>alert(\"x & y\")</script>\n", html.UnescapeString(bodies[0]))
	assert.Equal(t, `<img src=x onerror="go()">`, html.UnescapeString(bodies[1]))
}

func TestRenderDropsRawHTML(t *testing.T) {
	out := Render("hello <script>alert(1)</script> <b onclick=\"x()\">bold</b>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "onclick")
}

func TestRenderRejectsScriptLinks(t *testing.T) {
	out := Render("[点我](javascript:alert)")
	assert.NotContains(t, out, `href="javascript`)
}

func TestRenderScriptLinkWithParens(t *testing.T) {
	// 链接地址在第一个 ) 处结束，剩下的 ) 作为普通文本保留
	out := Render("[y](javascript:alert(1))")
	assert.NotContains(t, out, "javascript")
	assert.Contains(t, out, `<a target="_blank">y</a>)`)
}

func TestRenderEmphasisNextToCJK(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"中文*斜体*中文", "<p>中文<em>斜体</em>中文</p>"},
		{"、*斜体*、", "<p>、<em>斜体</em>、</p>"},
		{"中文**粗体**中文", "<p>中文<strong>粗体</strong>中文</p>"},
		{"a *b* c", "<p>a <em>b</em> c</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out := Render(tt.input)
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "*")
		})
	}
}

func TestRenderHeadings(t *testing.T) {
	out := Render("# 一\n## 二\n### 三")
	assert.Contains(t, out, "<h1>一</h1>")
	assert.Contains(t, out, "<h2>二</h2>")
	assert.Contains(t, out, "<h3>三</h3>")
}

func TestRenderLists(t *testing.T) {
	out := Render("步骤：\n1. 打开网站\n2. 点击按钮\n\n另外：\n\n* 甲\n* 乙")
	assert.Contains(t, out, "<ol>")
	assert.Contains(t, out, "<li>打开网站</li>")
	assert.Contains(t, out, "点击按钮")
	assert.Equal(t, 1, strings.Count(out, "<ol>"))
	assert.Equal(t, 1, strings.Count(out, "<ul>"))
}

func TestRenderListItemsHaveNoTrailingBreak(t *testing.T) {
	out := Render("- x\n- y")
	assert.Contains(t, out, "<li>x</li>")
	assert.Contains(t, out, "<li>y</li>")
	assert.NotContains(t, out, "<br")

	out = Render("1. 第一行\n   续行\n2. 第二项\n")
	assert.Contains(t, out, "第一行<br")
	assert.Contains(t, out, "<li>第二项</li>")
	assert.Equal(t, 1, strings.Count(out, "<br"))
}

func TestRenderLineBreaks(t *testing.T) {
	out := Render("第一行\n第二行\n\n第二段")
	assert.Contains(t, out, "<br")
	assert.Equal(t, 2, strings.Count(out, "<p>"))
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, `<div class="ai-chat-markdown"></div>`, Render(""))
	assert.Equal(t, `<div class="ai-chat-markdown"></div>`, Render("  \n"))
}

func TestRenderIsDeterministic(t *testing.T) {
	assert.Equal(t, Render(showcase), Render(showcase))
}

func TestRenderUnterminatedFenceDoesNotPanic(t *testing.T) {
	prefix := "```go\nfmt.Println(\"<hi>\")"
	out := Render(prefix)
	assert.NotContains(t, out, "<hi>")

	full := Render(prefix + "\n```\n")
	assert.Contains(t, full, "<pre>")
}

// 已闭合（后面跟空行）的块级元素在文本继续增长时不会消失
func TestRenderPrefixMonotonic(t *testing.T) {
	doc := showcase + "\n## 小结\n\n1. 第一\n2. 第二\n\n结束语 **完**\n"
	closers := []string{"</h1>", "</h2>", "</pre>", "</ul>", "</ol>", "</p>"}

	var boundaries []int
	for i := 0; i+1 < len(doc); i++ {
		if doc[i] == '\n' && doc[i+1] == '\n' {
			boundaries = append(boundaries, i+2)
		}
	}
	boundaries = append(boundaries, len(doc))
	require.Greater(t, len(boundaries), 3)

	prev := map[string]int{}
	for _, end := range boundaries {
		out := Render(doc[:end])
		for _, c := range closers {
			n := strings.Count(out, c)
			assert.GreaterOrEqual(t, n, prev[c], "prefix %q lost %s", doc[:end], c)
			prev[c] = n
		}
	}
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;a href=&quot;x&quot;&gt;&amp;", EscapeHTML(`<a href="x">&`))
}
