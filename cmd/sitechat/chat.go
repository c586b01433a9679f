package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zacy-Sokach/SiteChat/internal/client"
	"github.com/Zacy-Sokach/SiteChat/internal/tui"
)

func newChatCmd() *cobra.Command {
	var (
		server string
		export string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "在终端中打开对话面板",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), server, export)
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "http://localhost:8080", "开发服务器地址")
	cmd.Flags().StringVar(&export, "export", "", "Ctrl+S 导出对话的文件路径 (默认当前目录)")
	return cmd
}

func runChat(parent context.Context, server, export string) error {
	if !isTerminal() {
		return errors.New("chat 需要在交互式终端中运行")
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	tui.Version = Version

	loader := client.NewLoader(server, nil)
	view := tui.NewProgramView(nil)
	session := client.NewSession(server, loader, view)

	model := tui.InitialModel(ctx, session, loader, export)
	p := tea.NewProgram(model, tea.WithAltScreen())
	view.Attach(p)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("程序运行错误: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.HistoryError() != nil {
		ancli.Warnf("%v\n", m.HistoryError())
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}
