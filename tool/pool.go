package tool

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 20
	defaultHTTPTimeout  = 10 * time.Second
)

var (
	sharedClient atomic.Pointer[http.Client]
	clientMu     sync.Mutex
)

// SharedHTTPClient returns the process-wide HTTP client used by tool
// adapters. The client is created lazily on first use and reused afterwards
// so all adapters share one connection pool. The unlocked fast path reads an
// atomic pointer; creation is serialized under the mutex.
func SharedHTTPClient() *http.Client {
	if c := sharedClient.Load(); c != nil {
		return c
	}

	clientMu.Lock()
	defer clientMu.Unlock()

	if c := sharedClient.Load(); c != nil {
		return c
	}

	c := &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConnsPerHost,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	sharedClient.Store(c)

	return c
}

// ResetSharedHTTPClient discards the shared client. Test helper.
func ResetSharedHTTPClient() {
	clientMu.Lock()
	defer clientMu.Unlock()
	sharedClient.Store(nil)
}
