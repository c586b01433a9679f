package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	semver "github.com/Masterminds/semver/v3"

	"github.com/Zacy-Sokach/SiteChat/internal/utils"
)

const (
	RepoOwner = "Zacy-Sokach"
	RepoName  = "SiteChat"
	Repo      = RepoOwner + "/" + RepoName

	DefaultAPIBase = "https://api.github.com"
)

type ReleaseInfo struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// Result 一次检查的结果
type Result struct {
	Current         string
	Latest          string
	ReleaseURL      string
	UpdateAvailable bool
	// CurrentIsSemver 为 false 时（如 dev 构建）不提示更新
	CurrentIsSemver bool
}

type Checker struct {
	apiBase string
	client  utils.Doer
}

// NewChecker 创建版本检查器。apiBase 为空时使用 GitHub API，client 为空时使用带重试的默认客户端。
func NewChecker(apiBase string, client utils.Doer) *Checker {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if client == nil {
		client = utils.NewRetryableHTTPClient(&http.Client{Timeout: 10 * time.Second}, utils.DefaultRetryConfig())
	}
	return &Checker{apiBase: strings.TrimRight(apiBase, "/"), client: client}
}

func (c *Checker) GetLatestRelease(ctx context.Context) (*ReleaseInfo, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "SiteChat")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取最新版本失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("GitHub API 返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("解析版本信息失败: %w", err)
	}
	if release.TagName == "" {
		return nil, errors.New("版本信息缺少 tag_name")
	}
	if release.Draft || release.Prerelease {
		return nil, errors.New("最新版本为草稿或预发布")
	}
	return &release, nil
}

func (c *Checker) CheckForUpdate(ctx context.Context, currentVersion string) (*Result, error) {
	release, err := c.GetLatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	current := parseVersion(currentVersion)
	latest := parseVersion(release.TagName)

	res := &Result{
		Current:         strings.TrimSpace(currentVersion),
		Latest:          release.TagName,
		ReleaseURL:      release.HTMLURL,
		CurrentIsSemver: current != nil,
	}
	if current != nil && latest != nil {
		res.UpdateAvailable = latest.GreaterThan(current)
	}
	return res, nil
}

func parseVersion(raw string) *semver.Version {
	v := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "v"), "V")
	if v == "" {
		return nil
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return nil
	}
	return parsed
}
