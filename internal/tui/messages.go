package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zacy-Sokach/SiteChat/internal/client"
)

// Message types for tea.Model

// MessageAppendedMsg 会话新增了一条消息
type MessageAppendedMsg struct {
	Index   int
	Message client.ChatMessage
	HTML    string
}

// MessageUpdatedMsg 正在生成的回复有了新片段
type MessageUpdatedMsg struct {
	Index   int
	Message client.ChatMessage
	HTML    string
}

// InputEnabledMsg 输入框启用状态变化
type InputEnabledMsg struct {
	Enabled bool
}

// ConfigLoadedMsg 配置加载进入终态
type ConfigLoadedMsg struct {
	State client.LoadState
	Model string
	Err   error
}

// SendDoneMsg 一次发送结束
type SendDoneMsg struct {
	Err error
}

type ExportSuccessMsg struct {
	FilePath string
}

type ExportErrorMsg struct {
	Error error
}

// Sender 能把消息投递到 Bubble Tea 事件循环，*tea.Program 即满足
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramView 把会话回调转换为 Bubble Tea 消息，
// 使界面状态只在事件循环中修改
type ProgramView struct {
	sender Sender
}

// NewProgramView 创建视图适配器。sender 可以为 nil，稍后通过 Attach 设置。
func NewProgramView(sender Sender) *ProgramView {
	return &ProgramView{sender: sender}
}

// Attach 设置消息接收方，需在程序运行前调用
func (v *ProgramView) Attach(sender Sender) {
	v.sender = sender
}

func (v *ProgramView) AppendMessage(index int, msg client.ChatMessage, html string) {
	v.sender.Send(MessageAppendedMsg{Index: index, Message: msg, HTML: html})
}

func (v *ProgramView) UpdateMessage(index int, msg client.ChatMessage, html string) {
	v.sender.Send(MessageUpdatedMsg{Index: index, Message: msg, HTML: html})
}

func (v *ProgramView) SetInputEnabled(enabled bool) {
	v.sender.Send(InputEnabledMsg{Enabled: enabled})
}
