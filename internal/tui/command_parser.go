package tui

import (
	"regexp"
	"strings"
)

// CommandType 命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeHelp
	CommandTypeExport
	CommandTypeStatus
	CommandTypeQuit
)

// Command 解析后的命令
type Command struct {
	Type    CommandType
	Raw     string
	Content string
}

// CommandParser 命令解析器，只识别以 / 开头的输入，避免误触
type CommandParser struct {
	patterns map[CommandType][]*regexp.Regexp
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	return &CommandParser{
		patterns: map[CommandType][]*regexp.Regexp{
			CommandTypeHelp: {
				regexp.MustCompile(`^/help$`),
				regexp.MustCompile(`^/帮助$`),
			},
			// /export [路径]
			CommandTypeExport: {
				regexp.MustCompile(`^/export(?:\s+(.+))?$`),
				regexp.MustCompile(`^/导出(?:\s+(.+))?$`),
			},
			CommandTypeStatus: {
				regexp.MustCompile(`^/status$`),
				regexp.MustCompile(`^/config$`),
			},
			CommandTypeQuit: {
				regexp.MustCompile(`^/(?:quit|exit)$`),
			},
		},
	}
}

// Parse 解析输入，不是命令时返回 nil
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	for _, typ := range []CommandType{CommandTypeHelp, CommandTypeExport, CommandTypeStatus, CommandTypeQuit} {
		for _, re := range p.patterns[typ] {
			if m := re.FindStringSubmatch(input); m != nil {
				cmd := &Command{Type: typ, Raw: input}
				if len(m) > 1 {
					cmd.Content = strings.TrimSpace(m[1])
				}
				return cmd
			}
		}
	}
	return &Command{Type: CommandTypeUnknown, Raw: input}
}

// HelpText 命令帮助
func HelpText() string {
	return strings.Join([]string{
		"可用命令:",
		"  /help            显示帮助",
		"  /export [路径]   导出对话为 HTML",
		"  /status          查看模型配置状态",
		"  /quit            退出",
		"快捷键: Enter 发送 • Ctrl+S 导出 • Ctrl+C 退出",
	}, "\n")
}
