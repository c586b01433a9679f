package proxy

import "net/http"

// router 按路径精确分发。不使用 ServeMux，避免其对非规范路径的重定向
// 让 /config//ai-model.yaml 之类的请求绕过静态文件的访问检查。
type router struct {
	handler *Handler
	static  http.Handler
}

func (rt *router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/config":
		rt.handler.HandleConfig(w, r)
	case "/api/chat":
		rt.handler.HandleChat(w, r)
	default:
		rt.static.ServeHTTP(w, r)
	}
}
