package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// maxHistoryEntries 历史文件最多保留的会话数
const maxHistoryEntries = 100

type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Model     string    `json:"model,omitempty"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveHistory 把一次会话追加到历史文件
func SaveHistory(model string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	historyPath, err := getHistoryPath()
	if err != nil {
		return fmt.Errorf("获取历史文件路径失败: %w", err)
	}

	history, err := readHistory(historyPath)
	if err != nil {
		// 损坏的历史文件直接覆盖
		history = nil
	}

	history = append(history, HistoryEntry{
		Timestamp: time.Now(),
		Model:     model,
		Messages:  messages,
	})
	if len(history) > maxHistoryEntries {
		history = history[len(history)-maxHistoryEntries:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化历史失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(historyPath), 0755); err != nil {
		return fmt.Errorf("创建历史目录失败: %w", err)
	}

	if err := os.WriteFile(historyPath, data, 0644); err != nil {
		return fmt.Errorf("写入历史文件失败: %w", err)
	}

	return nil
}

func LoadHistory() ([]HistoryEntry, error) {
	historyPath, err := getHistoryPath()
	if err != nil {
		return nil, fmt.Errorf("获取历史文件路径失败: %w", err)
	}
	return readHistory(historyPath)
}

func readHistory(path string) ([]HistoryEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取历史文件失败: %w", err)
	}

	var history []HistoryEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("解析历史文件失败: %w", err)
	}
	return history, nil
}

func getHistoryPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "history.json"), nil
}
