package httpclient

import (
	"net/http"
	"time"
)

// New returns a client with a hard request deadline. Payment provider
// verification calls go through this client and must never hang a handler.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
