package proxy

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/google/uuid"
)

// RequestIDHeader 回传给客户端的请求 ID 头
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// requestID 返回中间件分配的请求 ID
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(ctxKey{}).(string); ok {
		return id
	}
	return "-"
}

// statusRecorder 记录状态码，同时保留 Flush 能力以支持流式响应
type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.status = http.StatusOK
		s.wrote = true
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// withRequestLog 分配请求 ID、恢复 panic 并记录访问日志
func withRequestLog(next http.Handler, debugLog bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ancli.Errf("[%s] 处理请求时发生 panic: %v\n%s\n", id, p, debug.Stack())
				if !rec.wrote {
					http.Error(rec, "500 Internal Server Error", http.StatusInternalServerError)
				}
			}
			elapsed := time.Since(start)
			switch {
			case rec.status >= 500:
				ancli.Errf("[%s] %s %s %d %v\n", id, r.Method, r.URL.Path, rec.status, elapsed)
			case rec.status >= 400:
				ancli.Warnf("[%s] %s %s %d %v\n", id, r.Method, r.URL.Path, rec.status, elapsed)
			case debugLog:
				ancli.Noticef("[%s] %s %s %d %v\n", id, r.Method, r.URL.Path, rec.status, elapsed)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}
