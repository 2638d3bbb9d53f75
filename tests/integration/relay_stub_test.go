package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/raw-relay/raw-relay/internal/config"
	"github.com/raw-relay/raw-relay/internal/relay"
	"github.com/raw-relay/raw-relay/internal/resolver"
	"github.com/raw-relay/raw-relay/internal/server"
	"github.com/raw-relay/raw-relay/internal/server/routes"
)

const integrationToken = "integration-token"

// originStub 模拟托管脚本的 raw 源站，记录请求并支持按 ETag 返回 304。
type originStub struct {
	server *httptest.Server

	mu       sync.Mutex
	body     string
	etag     string
	status   int
	requests []recordedRequest
}

type recordedRequest struct {
	Path        string
	RawQuery    string
	IfNoneMatch string
}

func newOriginStub(t *testing.T) *originStub {
	t.Helper()
	stub := &originStub{body: "#!/bin/sh\necho bootstrap\n", etag: `"rev-1"`}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *originStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		Path:        r.URL.Path,
		RawQuery:    r.URL.RawQuery,
		IfNoneMatch: r.Header.Get("If-None-Match"),
	})
	body, etag, status := s.body, s.etag, s.status
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/x-shellscript")
	w.Header().Set("Etag", etag)
	_, _ = w.Write([]byte(body))
}

func (s *originStub) setBody(body, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body, s.etag = body, etag
	s.status = 0
}

func (s *originStub) setStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *originStub) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *originStub) lastRequest() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return recordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

// newRelayApp 按 main.go 的装配顺序组装一个完整的测试应用。
func newRelayApp(t *testing.T, upstreamURL string, ttl time.Duration) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		Global: config.GlobalConfig{
			ListenPort:    8080,
			AuthToken:     integrationToken,
			RawBaseURL:    upstreamURL,
			CacheTTL:      config.Duration(ttl),
			OriginTimeout: config.Duration(10 * time.Second),
			Extensions:    []string{".sh", ".yml", ".txt"},
		},
		Resources: []config.ResourceConfig{
			{Name: "bootstrap", Path: "/bootstrap.sh"},
		},
	}

	registry, err := server.NewRouteRegistry(cfg)
	if err != nil {
		t.Fatalf("registry error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	engine := resolver.NewEngine(resolver.Options{
		Client: server.NewOriginClient(cfg),
		Logger: logger,
		TTL:    cfg.Global.CacheTTL.DurationValue(),
	})
	handler := relay.NewHandler(engine, logger)

	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Relay:      handler,
		AuthToken:  cfg.Global.AuthToken,
		ListenPort: cfg.Global.ListenPort,
	})
	if err != nil {
		t.Fatalf("app error: %v", err)
	}
	routes.RegisterDiagnosticsRoutes(app, registry, engine)
	return app
}

func doAuthedRequest(t *testing.T, app *fiber.App, target string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", "http://relay.local"+target, nil)
	req.Header.Set("Authorization", "Bearer "+integrationToken)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test error: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error: %v", err)
	}
	return string(body)
}
