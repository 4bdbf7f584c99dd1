package network

import (
	"net/http"
	"time"
)

// DefaultHTTPClient creates an HTTP client tuned for file uploads.
// It deliberately carries no retry logic: a failed upload request aborts
// the whole transfer instead of being replayed.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		// No timeout - large uploads are bounded via context
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     10 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}
