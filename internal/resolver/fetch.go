package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const (
	defaultUserAgent = "raw-relay"
	acceptHeader     = "text/plain, */*;q=0.5"
)

// fetchResult 承载一次源站交互的产物。notModified 仅在条件请求返回 304 时为真。
type fetchResult struct {
	body        []byte
	contentType string
	etag        string
	notModified bool
}

// fetch 发起一次源站请求。etag 非空时附带 If-None-Match 与 no-cache 指令，
// 要求中间缓存透传条件判断；bust 为真时在请求 URL 上追加当前时间戳参数，
// 防止 CDN 用自己的旧副本短路强制刷新。该参数从不进入缓存键。
func (e *Engine) fetch(ctx context.Context, identifier string, etag string, bust bool) (*fetchResult, error) {
	target := identifier
	if bust {
		decorated, err := decorateURL(identifier, e.now().UnixMilli())
		if err != nil {
			return nil, fmt.Errorf("decorate url: %w", err)
		}
		target = decorated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build origin request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", acceptHeader)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &UnreachableError{URL: identifier, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &fetchResult{notModified: true}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &RejectedError{URL: identifier, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnreachableError{URL: identifier, Err: err}
	}

	return &fetchResult{
		body:        body,
		contentType: resp.Header.Get("Content-Type"),
		etag:        resp.Header.Get("Etag"),
	}, nil
}

// decorateURL 追加一次性的 `_` 查询参数，保持其它查询参数原样。
func decorateURL(identifier string, unixMillis int64) (string, error) {
	parsed, err := url.Parse(identifier)
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("_", strconv.FormatInt(unixMillis, 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
