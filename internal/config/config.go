package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath 站点根目录下的模型配置文件
const DefaultPath = "config/ai-model.yaml"

// EnvConfigPath 覆盖模型配置文件路径的环境变量
const EnvConfigPath = "SITECHAT_CONFIG"

var (
	// ErrMissingCredential 配置中缺少 api_key
	ErrMissingCredential = errors.New("api_key 未配置")
	// ErrMissingEndpoint 配置中缺少 endpoint
	ErrMissingEndpoint = errors.New("endpoint 未配置")
	// ErrMissingModel 配置中缺少 model
	ErrMissingModel = errors.New("model 未配置")
)

// ModelConfig 客户端可见的模型配置，不包含任何密钥
type ModelConfig struct {
	Endpoint     string   `json:"endpoint"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	MaxToken     *int     `json:"max_token"`
	Temperature  *float64 `json:"temperature"`
}

// ServerSecretConfig 仅服务端持有的完整配置
type ServerSecretConfig struct {
	ModelConfig
	APIKey string
}

// fileConfig 配置文件的原始结构，max-token 为历史遗留写法
type fileConfig struct {
	APIKey       string   `yaml:"api_key"`
	Endpoint     string   `yaml:"endpoint"`
	Model        string   `yaml:"model"`
	SystemPrompt string   `yaml:"system_prompt"`
	MaxToken     *int     `yaml:"max_token"`
	MaxTokenAlt  *int     `yaml:"max-token"`
	Temperature  *float64 `yaml:"temperature"`
}

// Load 读取并解析模型配置文件。每次调用都重新读取磁盘，不做缓存。
func Load(path string) (*ServerSecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 格式的模型配置
func Parse(data []byte) (*ServerSecretConfig, error) {
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	maxToken := raw.MaxToken
	if maxToken == nil {
		maxToken = raw.MaxTokenAlt
	}
	if maxToken != nil && *maxToken <= 0 {
		maxToken = nil
	}

	return &ServerSecretConfig{
		ModelConfig: ModelConfig{
			Endpoint:     raw.Endpoint,
			Model:        raw.Model,
			SystemPrompt: raw.SystemPrompt,
			MaxToken:     maxToken,
			Temperature:  raw.Temperature,
		},
		APIKey: raw.APIKey,
	}, nil
}

// Public 返回去除密钥后的配置副本
func (c *ServerSecretConfig) Public() ModelConfig {
	pub := c.ModelConfig
	if c.MaxToken != nil {
		v := *c.MaxToken
		pub.MaxToken = &v
	}
	if c.Temperature != nil {
		v := *c.Temperature
		pub.Temperature = &v
	}
	return pub
}

// ValidateForwarding 检查代理转发所需的字段
func (c *ServerSecretConfig) ValidateForwarding() error {
	if c.APIKey == "" {
		return ErrMissingCredential
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	return nil
}

// Validate 检查客户端必需的字段
func (c *ModelConfig) Validate() error {
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// ResolvePath 按 flag > 环境变量 > 默认值 的顺序确定配置文件路径。
// 相对路径以站点根目录为基准。
func ResolvePath(root, flagValue string) (string, error) {
	path := flagValue
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("解析配置路径失败: %w", err)
	}
	return abs, nil
}
