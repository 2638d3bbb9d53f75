package server

import (
	"net"
	"net/http"
	"time"

	"github.com/raw-relay/raw-relay/internal/config"
)

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewOriginClient 返回共享 http.Client，用于所有源站请求。重定向不被跟随，
// 交由缓存引擎按失败处理。
func NewOriginClient(cfg *config.Config) *http.Client {
	timeout := 10 * time.Second
	if cfg != nil && cfg.Global.OriginTimeout.DurationValue() > 0 {
		timeout = cfg.Global.OriginTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
