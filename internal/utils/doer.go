package utils

import "net/http"

// Doer 接口，*http.Client 与 RetryableHTTPClient 都满足
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}
