package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zacy-Sokach/SiteChat/internal/client"
	"github.com/Zacy-Sokach/SiteChat/internal/config"
	"github.com/Zacy-Sokach/SiteChat/internal/utils"
)

// Version 是当前的 SiteChat 版本，由 main 包设置
var Version string

var (
	userLabel   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Render("你: ")
	aiLabel     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("AI: ")
	noticeLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Render("提示: ")
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	busyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

// Chat 模型与会话之间的接口，便于测试替换
type Chat interface {
	SendMessage(ctx context.Context, text string) error
	Messages() []client.ChatMessage
	WatchConfig(ctx context.Context)
}

// ConfigLoader 配置加载器，*client.Loader 即满足
type ConfigLoader interface {
	Load(ctx context.Context) (*config.ModelConfig, error)
	State() (client.LoadState, *config.ModelConfig, error)
}

type Model struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	ready    bool

	entries  []Entry
	rendered []string

	inputEnabled bool
	configState  client.LoadState
	configErr    error
	modelName    string
	status       string
	exportPath   string
	historyErr   error

	ctx           context.Context
	chat          Chat
	loader        ConfigLoader
	renderer      *TerminalRenderer
	commandParser *CommandParser
}

// InitialModel 创建聊天界面。exportPath 为空时导出到当前目录。
func InitialModel(ctx context.Context, chat Chat, loader ConfigLoader, exportPath string) Model {
	ta := textarea.New()
	ta.Placeholder = "输入你的问题..."
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	vp := viewport.New(80, 20)
	vp.SetContent(welcomeText())

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	return Model{
		textarea:      ta,
		viewport:      vp,
		spinner:       sp,
		inputEnabled:  true,
		configState:   client.StateLoading,
		exportPath:    exportPath,
		ctx:           ctx,
		chat:          chat,
		loader:        loader,
		renderer:      NewTerminalRenderer(),
		commandParser: NewCommandParser(),
	}
}

func welcomeText() string {
	return "欢迎使用 SiteChat 网站助手\n输入 /help 查看可用命令\n\n"
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.loadConfig())
}

// loadConfig 等待配置加载完成。失败原因由会话写入对话。
func (m Model) loadConfig() tea.Cmd {
	loader, chat, ctx := m.loader, m.chat, m.ctx
	return func() tea.Msg {
		if loader == nil {
			return ConfigLoadedMsg{State: client.StateFailed, Err: client.ErrConfigNotReady}
		}
		loader.Load(ctx)
		chat.WatchConfig(ctx)
		state, cfg, err := loader.State()
		msg := ConfigLoadedMsg{State: state, Err: err}
		if cfg != nil {
			msg.Model = cfg.Model
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.saveHistory()
			return m, tea.Quit
		case tea.KeyCtrlS:
			return m, m.export("")
		case tea.KeyEnter:
			if !m.inputEnabled {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			if c := m.commandParser.Parse(input); c != nil {
				cmd = m.handleCommand(c)
				return m, cmd
			}
			m.status = ""
			m.setInputEnabled(false)
			return m, m.send(input)
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 7
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.textarea.SetWidth(msg.Width)
		m.refreshViewport()

	case ConfigLoadedMsg:
		m.configState = msg.State
		m.configErr = msg.Err
		m.modelName = msg.Model
		return m, nil

	case MessageAppendedMsg:
		m.setEntry(msg.Index, Entry{Message: msg.Message, HTML: msg.HTML})
		m.refreshViewport()
		return m, nil

	case MessageUpdatedMsg:
		m.setEntry(msg.Index, Entry{Message: msg.Message, HTML: msg.HTML})
		m.refreshViewport()
		return m, nil

	case InputEnabledMsg:
		m.setInputEnabled(msg.Enabled)
		return m, nil

	case SendDoneMsg:
		// 失败原因已作为提示写入对话
		m.setInputEnabled(true)
		return m, nil

	case ExportSuccessMsg:
		m.status = "已导出对话到 " + msg.FilePath
		return m, nil

	case ExportErrorMsg:
		m.status = "导出失败: " + msg.Error.Error()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.inputEnabled {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "初始化中..."
	}

	return fmt.Sprintf(
		"%s\n\n%s\n\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.textarea.View(),
		m.helpView(),
	)
}

// Entries 返回当前界面上的消息
func (m Model) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// InputEnabled 输入框是否可用
func (m Model) InputEnabled() bool { return m.inputEnabled }

// Status 状态栏文本
func (m Model) Status() string { return m.status }

// HistoryError 退出时保存历史失败的原因，界面关闭后由调用方报告
func (m Model) HistoryError() error { return m.historyErr }

func (m Model) headerView() string {
	title := "SiteChat"
	if Version != "" {
		title += " " + Version
	}
	var state string
	switch m.configState {
	case client.StateLoading:
		state = busyStyle.Render("配置加载中...")
	case client.StateLoaded:
		state = "模型: " + m.modelName
	case client.StateFailed:
		state = noticeStyle.Render("配置不可用")
	}
	return headerStyle.Render(title) + dimStyle.Render(" • ") + state
}

func (m Model) helpView() string {
	help := "Enter: 发送消息 • Ctrl+S: 导出对话 • /help: 帮助 • Ctrl+C: 退出"
	if !m.inputEnabled {
		help = m.spinner.View() + busyStyle.Render(" AI正在回复中...")
	}
	if m.status != "" {
		help = m.status + "\n" + help
	}
	return dimStyle.Render(help)
}

func (m *Model) setInputEnabled(enabled bool) {
	m.inputEnabled = enabled
	if enabled {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
}

// setEntry 按会话下标写入消息，只重新渲染变化的一条
func (m *Model) setEntry(index int, e Entry) {
	if index < 0 {
		return
	}
	for len(m.entries) <= index {
		m.entries = append(m.entries, Entry{})
		m.rendered = append(m.rendered, "")
	}
	m.entries[index] = e
	m.rendered[index] = m.formatEntry(e)
}

func (m *Model) formatEntry(e Entry) string {
	msg := e.Message
	switch {
	case msg.Role == client.RoleUser:
		return userLabel + msg.RawText
	case msg.IsError:
		return noticeLabel + noticeStyle.Render(msg.RawText)
	case msg.IsMarkdown:
		return aiLabel + m.renderer.Render(msg.RawText)
	default:
		return aiLabel + msg.RawText
	}
}

func (m *Model) refreshViewport() {
	if len(m.rendered) == 0 {
		m.viewport.SetContent(welcomeText())
		return
	}
	m.viewport.SetContent(strings.Join(m.rendered, "\n\n") + "\n")
	m.viewport.GotoBottom()
}

func (m Model) send(input string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		return SendDoneMsg{Err: chat.SendMessage(ctx, input)}
	}
}

func (m Model) export(path string) tea.Cmd {
	if path == "" {
		path = m.exportPath
	}
	entries := m.Entries()
	title := "SiteChat 对话记录"
	if m.modelName != "" {
		title += " · " + m.modelName
	}
	return func() tea.Msg {
		out, err := ExportTranscript(path, title, entries)
		if err != nil {
			return ExportErrorMsg{Error: err}
		}
		return ExportSuccessMsg{FilePath: out}
	}
}

func (m *Model) handleCommand(c *Command) tea.Cmd {
	switch c.Type {
	case CommandTypeHelp:
		m.status = HelpText()
	case CommandTypeExport:
		return m.export(c.Content)
	case CommandTypeStatus:
		m.status = m.configStatus()
	case CommandTypeQuit:
		m.saveHistory()
		return tea.Quit
	default:
		m.status = fmt.Sprintf("未知命令: %s，输入 /help 查看帮助", c.Raw)
	}
	return nil
}

func (m Model) configStatus() string {
	switch m.configState {
	case client.StateLoaded:
		return fmt.Sprintf("配置已加载，模型: %s", m.modelName)
	case client.StateFailed:
		return "配置加载失败: " + client.Describe(m.configErr)
	default:
		return "配置加载中..."
	}
}

// saveHistory 退出时保存对话，提示消息不写入历史
func (m *Model) saveHistory() {
	if m.chat == nil {
		return
	}
	var history []utils.Message
	for _, msg := range m.chat.Messages() {
		if msg.IsError || msg.RawText == "" {
			continue
		}
		history = append(history, utils.Message{Role: string(msg.Role), Content: msg.RawText})
	}
	if err := utils.SaveHistory(m.modelName, history); err != nil {
		m.historyErr = err
		m.status = "保存历史失败: " + err.Error()
	}
}
