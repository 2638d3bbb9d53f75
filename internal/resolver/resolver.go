package resolver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Provenance 描述一次 Resolve 结果的产生方式。
type Provenance string

const (
	// ProvenanceHit 表示直接命中了未过期的缓存，未发生网络请求。
	ProvenanceHit Provenance = "hit"
	// ProvenanceMiss 表示正文来自一次完整的源站抓取。
	ProvenanceMiss Provenance = "miss"
	// ProvenanceRevalidated 表示源站确认缓存未变化，条目的有效期被前移。
	ProvenanceRevalidated Provenance = "revalidated"
)

// Result 是 Resolve 的返回值，正文与 Content-Type 始终来自同一次抓取。
type Result struct {
	Content     []byte
	ContentType string
	Provenance  Provenance
}

// Options 控制引擎的抓取行为。TTL 与 UserAgent 为进程级常量，不随调用变化。
type Options struct {
	Client    *http.Client
	Logger    *logrus.Logger
	TTL       time.Duration
	UserAgent string
}

// Engine 持有 identifier → entry 的映射与统一的源站抓取路径。
// 非强制的并发抓取通过 singleflight 合并为一次源站请求；强制刷新
// 始终独立发起请求，保证绕过所有中间缓存。
type Engine struct {
	client    *http.Client
	logger    *logrus.Logger
	ttl       time.Duration
	userAgent string
	now       func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry

	flight singleflight.Group
}

// NewEngine 构造缓存引擎，默认使用 time.Now 作为时钟。
func NewEngine(opts Options) *Engine {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Engine{
		client:    client,
		logger:    logger,
		ttl:       ttl,
		userAgent: userAgent,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

// Resolve 按顺序评估三个互斥的策略分支：未过期直接命中、带校验器的条件
// revalidate、无条件抓取。identifier 必须是完整的源站 URL，同一个 URL 字符串
// 共享一个条目；forceFresh 绕过时间缓存并在请求 URL 上追加一次性参数。
func (e *Engine) Resolve(ctx context.Context, identifier string, forceFresh bool) (*Result, error) {
	if identifier == "" {
		return nil, errors.New("identifier required")
	}

	if forceFresh {
		return e.refresh(ctx, identifier, true)
	}

	if result, ok := e.lookupFresh(identifier); ok {
		return result, nil
	}

	value, err, _ := e.flight.Do(identifier, func() (interface{}, error) {
		// 等待合并期间条目可能已被并发写入，先复查再回源。
		if result, ok := e.lookupFresh(identifier); ok {
			return result, nil
		}
		return e.refresh(ctx, identifier, false)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Result), nil
}

// lookupFresh 实现未过期条目的快速路径。
func (e *Engine) lookupFresh(identifier string) (*Result, bool) {
	stored, ok := e.peek(identifier)
	if !ok || !e.now().Before(stored.expiresAt) {
		return nil, false
	}
	return &Result{
		Content:     stored.content,
		ContentType: stored.contentType,
		Provenance:  ProvenanceHit,
	}, true
}

// refresh 执行条件或无条件的源站抓取。失败时不触碰既有条目，过期条目
// 在下一次非强制调用中仍然可见。
func (e *Engine) refresh(ctx context.Context, identifier string, forced bool) (*Result, error) {
	stored, exists := e.peek(identifier)

	if !forced && exists && stored.etag != "" {
		fetched, err := e.fetch(ctx, identifier, stored.etag, false)
		if err != nil {
			return nil, err
		}
		if fetched.notModified {
			e.touchEntry(identifier, e.now().Add(e.ttl))
			e.logger.WithFields(logrus.Fields{
				"action":     "origin_revalidate",
				"identifier": identifier,
			}).Debug("origin confirmed entry unchanged")
			return &Result{
				Content:     stored.content,
				ContentType: stored.contentType,
				Provenance:  ProvenanceRevalidated,
			}, nil
		}
		return e.replace(identifier, fetched), nil
	}

	fetched, err := e.fetch(ctx, identifier, "", forced)
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(logrus.Fields{
		"action":     "origin_fetch",
		"identifier": identifier,
		"forced":     forced,
	}).Debug("origin fetch complete")
	return e.replace(identifier, fetched), nil
}

// replace 将一次成功抓取的结果整体写入条目。
func (e *Engine) replace(identifier string, fetched *fetchResult) *Result {
	e.storeEntry(identifier, entry{
		content:     fetched.body,
		contentType: fetched.contentType,
		etag:        fetched.etag,
		expiresAt:   e.now().Add(e.ttl),
	})
	return &Result{
		Content:     fetched.body,
		ContentType: fetched.contentType,
		Provenance:  ProvenanceMiss,
	}
}
