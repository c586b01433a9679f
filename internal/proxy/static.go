package proxy

import (
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
)

// mimeTypes 站点常用扩展名，优先于系统表
var mimeTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".yaml": "text/yaml",
	".yml":  "text/yaml",
	".md":   "text/markdown",
}

// ContentType 按扩展名确定内容类型
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// StaticHandler 以站点根目录提供静态文件，拒绝访问密钥配置文件
type StaticHandler struct {
	root   string
	secret string
}

// NewStaticHandler root 与 secretPath 都会被转换为绝对路径
func NewStaticHandler(root, secretPath string) (*StaticHandler, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absSecret, err := filepath.Abs(secretPath)
	if err != nil {
		return nil, err
	}
	return &StaticHandler{root: absRoot, secret: absSecret}, nil
}

func (s *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	full, ok := s.resolve(r.URL.Path)
	if !ok {
		ancli.Warnf("[%s] 拒绝访问: %s\n", requestID(r), r.URL.Path)
		http.Error(w, "403 Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
	}
	if err != nil || !info.Mode().IsRegular() {
		notFound(w)
		return
	}

	f, err := os.Open(full)
	if err != nil {
		notFound(w)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", ContentType(full))
	http.ServeContent(w, r, "", info.ModTime(), f)
}

// resolve 把请求路径映射到根目录下的文件。
// 越出根目录或指向密钥文件时返回 false。
func (s *StaticHandler) resolve(urlPath string) (string, bool) {
	// net/http 已做过一次百分号解码，这里处理多重编码
	p := urlPath
	for i := 0; i < 3 && strings.Contains(p, "%"); i++ {
		decoded, err := url.PathUnescape(p)
		if err != nil {
			break
		}
		p = decoded
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.ContainsRune(p, 0) || escapesRoot(p) {
		return "", false
	}

	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+p)))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	if s.isSecret(full) {
		return "", false
	}
	return full, true
}

// escapesRoot 逐段计算深度，出现 ".." 越过根目录即视为越界
func escapesRoot(p string) bool {
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// isSecret 不区分大小写比较，兼容大小写不敏感的文件系统
func (s *StaticHandler) isSecret(full string) bool {
	if strings.EqualFold(full, s.secret) {
		return true
	}
	// 通过符号链接指向密钥文件
	if real, err := filepath.EvalSymlinks(full); err == nil {
		if realSecret, err := filepath.EvalSymlinks(s.secret); err == nil {
			return strings.EqualFold(real, realSecret)
		}
	}
	return false
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("404 Not Found"))
}
