package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/shutdown"
	"github.com/spf13/cobra"

	"github.com/Zacy-Sokach/SiteChat/internal/config"
	"github.com/Zacy-Sokach/SiteChat/internal/proxy"
)

type serveFlags struct {
	port      int
	root      string
	config    string
	demo      bool
	demoDelay time.Duration
}

func newServeCmd() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动本地开发服务器",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), f)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 8080, "监听端口")
	cmd.Flags().StringVar(&f.root, "root", ".", "站点根目录")
	cmd.Flags().StringVar(&f.config, "config", "", "模型配置文件 (默认 <root>/"+config.DefaultPath+"，也可通过 "+config.EnvConfigPath+" 设置)")
	cmd.Flags().BoolVar(&f.demo, "demo", false, "演示模式，不访问远端接口")
	cmd.Flags().DurationVar(&f.demoDelay, "demo-delay", 30*time.Millisecond, "演示模式下每个片段的间隔")
	return cmd
}

func runServe(parent context.Context, f serveFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	root, err := filepath.Abs(f.root)
	if err != nil {
		return fmt.Errorf("解析站点目录失败: %w", err)
	}
	configPath, err := config.ResolvePath(root, f.config)
	if err != nil {
		return err
	}

	// 启动时检查一次，仅提示；每个请求仍会重新读取
	if cfg, err := config.Load(configPath); err != nil {
		ancli.PrintWarn(fmt.Sprintf("模型配置不可用: %v\n", err))
	} else if err := cfg.ValidateForwarding(); err != nil && !f.demo {
		ancli.PrintWarn(fmt.Sprintf("模型配置不完整: %v\n", err))
	} else if debugMode {
		ancli.Noticef("模型: %s, 接口: %s\n", cfg.Model, cfg.Endpoint)
	}

	srv, err := proxy.NewServer(proxy.Options{
		Addr:       fmt.Sprintf(":%d", f.port),
		Root:       root,
		ConfigPath: configPath,
		Demo:       f.demo,
		DemoDelay:  f.demoDelay,
		Debug:      debugMode,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	go func() { shutdown.Monitor(cancel) }()

	return srv.Start(ctx)
}
