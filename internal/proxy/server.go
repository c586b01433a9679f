package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

// Options 开发服务器选项
type Options struct {
	// Addr 监听地址，例如 ":8080"
	Addr string
	// Root 静态站点根目录
	Root string
	// ConfigPath 模型配置文件的绝对路径
	ConfigPath string
	// Demo 不访问远端，返回示例回复
	Demo bool
	// DemoDelay 演示模式下每个事件之间的间隔
	DemoDelay time.Duration
	Debug     bool
	// Client 访问远端补全接口的客户端，为空时使用默认值
	Client *http.Client
}

// Server 本地开发服务器
type Server struct {
	opts    Options
	handler http.Handler
}

// NewServer 创建新的开发服务器
func NewServer(opts Options) (*Server, error) {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.ConfigPath == "" {
		return nil, errors.New("未指定模型配置文件路径")
	}
	static, err := NewStaticHandler(opts.Root, opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("解析站点目录失败: %w", err)
	}

	rt := &router{
		handler: NewHandler(opts),
		static:  static,
	}
	return &Server{
		opts:    opts,
		handler: withRequestLog(rt, opts.Debug),
	}, nil
}

// Handler 返回完整的 HTTP 处理链
func (s *Server) Handler() http.Handler { return s.handler }

// Start 启动服务器，ctx 结束时优雅关闭
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定监听器上提供服务
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	ancli.PrintOK(fmt.Sprintf("Local server running at http://%s/\n", displayAddr(ln.Addr())))
	ancli.PrintOK(fmt.Sprintf("site root: %s, model config: %s\n", s.opts.Root, s.opts.ConfigPath))
	if s.opts.Demo {
		ancli.PrintWarn("demo mode enabled, /api/chat will not contact the remote API\n")
	}

	errc := make(chan error, 1)
	go func() { errc <- server.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭服务器失败: %w", err)
	}
	ancli.PrintOK("server stopped\n")
	return nil
}

func displayAddr(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP.IsUnspecified() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return addr.String()
}
