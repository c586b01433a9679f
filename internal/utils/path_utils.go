package utils

import (
	"os"
	"path/filepath"
)

const appDirName = "sitechat"

// GetConfigDir 获取跨平台的用户配置目录
// Windows: %APPDATA%/sitechat
// Linux/macOS: ~/.config/sitechat
func GetConfigDir() (string, error) {
	if configHome := os.Getenv("SITECHAT_CONFIG_HOME"); configHome != "" {
		return configHome, nil
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, appDirName), nil
	}

	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}
