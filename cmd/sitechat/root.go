package main

import (
	"context"
	"fmt"
	"os"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/spf13/cobra"

	"github.com/Zacy-Sokach/SiteChat/internal/update"
)

var debugMode bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitechat",
		Short: "SiteChat - 静态网站的 AI 对话助手",
		Long: `SiteChat 为静态网站提供 AI 对话能力。

serve 启动本地开发服务器：提供站点静态文件、/api/config 和带密钥转发的 /api/chat。
chat  在终端中打开对话面板，连接到正在运行的开发服务器。

示例:
  # 在站点目录下启动服务器
  sitechat serve --port 8080

  # 不访问远端接口，使用示例回复
  sitechat serve --demo

  # 打开终端对话面板
  sitechat chat --server http://localhost:8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if misc.Truthy(os.Getenv("DEBUG")) {
				debugMode = true
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "输出调试日志")

	root.AddCommand(newServeCmd(), newChatCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "SiteChat %s\n", Version)
			if !check {
				return nil
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := update.NewChecker("", nil).CheckForUpdate(ctx, Version)
			if err != nil {
				return fmt.Errorf("检查更新失败: %w", err)
			}
			switch {
			case res.UpdateAvailable:
				ancli.PrintOK(fmt.Sprintf("发现新版本 %s: %s\n", res.Latest, res.ReleaseURL))
			case !res.CurrentIsSemver:
				ancli.PrintWarn(fmt.Sprintf("开发版本，最新发布版本为 %s\n", res.Latest))
			default:
				ancli.PrintOK("已是最新版本\n")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "检查是否有新版本")
	return cmd
}
