package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Zacy-Sokach/SiteChat/internal/config"
	"github.com/Zacy-Sokach/SiteChat/internal/utils"
)

// LoadState 配置加载状态
type LoadState int

const (
	StateLoading LoadState = iota
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Loader 从 /api/config 读取公共模型配置。
// 第一次解析完成后结果被缓存，之后不会再次请求。
type Loader struct {
	url    string
	client utils.Doer

	once sync.Once
	done chan struct{}

	mu    sync.RWMutex
	state LoadState
	cfg   *config.ModelConfig
	err   error
}

// NewLoader 创建配置加载器，client 为 nil 时使用带连接重试的默认客户端
func NewLoader(baseURL string, client utils.Doer) *Loader {
	if client == nil {
		client = utils.NewRetryableHTTPClient(
			&http.Client{Timeout: 10 * time.Second},
			utils.ConfigPollRetryConfig(),
		)
	}
	return &Loader{
		url:    strings.TrimRight(baseURL, "/") + "/api/config",
		client: client,
		done:   make(chan struct{}),
	}
}

// Start 在后台开始加载，立即返回
func (l *Loader) Start(ctx context.Context) {
	go l.Load(ctx)
}

// Load 加载配置并等待结果。多次调用只会发起一次加载。
func (l *Loader) Load(ctx context.Context) (*config.ModelConfig, error) {
	l.once.Do(func() {
		cfg, err := l.fetch(ctx)

		l.mu.Lock()
		if err != nil {
			l.state = StateFailed
			l.err = err
		} else {
			l.state = StateLoaded
			l.cfg = cfg
		}
		l.mu.Unlock()
		close(l.done)
	})
	return l.GetConfig(), l.GetError()
}

// Done 在进入终态时关闭
func (l *Loader) Done() <-chan struct{} { return l.done }

// State 返回当前状态的一致快照
func (l *Loader) State() (LoadState, *config.ModelConfig, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.cfg, l.err
}

// GetConfig 已加载时返回配置，否则返回 nil。返回值只读。
func (l *Loader) GetConfig() *config.ModelConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// IsLoaded 是否已成功加载
func (l *Loader) IsLoaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateLoaded
}

// GetError 加载失败时返回错误
func (l *Loader) GetError() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

func (l *Loader) fetch(ctx context.Context) (*config.ModelConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newStatusError(ErrConfigMissing, resp)
	}

	var cfg config.ModelConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: 解析配置失败: %w", ErrConfigMissing, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigMissing, err)
	}
	return &cfg, nil
}
