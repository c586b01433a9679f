package proxy

import "strings"

// MarkdownShowcase 演示模式下用户提到 markdown 时返回的示例
const MarkdownShowcase = "# Markdown 示例\n" +
	"**粗体**、*斜体*、`代码`、[链接](https://www.example.com)\n" +
	"\n" +
	"- 列表项一\n" +
	"- 列表项二\n" +
	"\n" +
	"```js\n" +
	"console.log('代码块');\n" +
	"```\n"

// DemoReply 演示模式的固定回复
func DemoReply(userText string) string {
	if strings.Contains(strings.ToLower(userText), "markdown") {
		return MarkdownShowcase
	}
	return "你好！我是AI助手，有什么可以帮您？\n\n你刚才说：\n> " + userText
}
