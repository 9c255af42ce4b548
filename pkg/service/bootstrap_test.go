package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// records returns the log records with the given message.
func (b *syncBuffer) records(t *testing.T, msg string) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]interface{}
	sc := bufio.NewScanner(strings.NewReader(b.buf.String()))
	for sc.Scan() {
		var rec map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad log line %q: %v", sc.Text(), err)
		}
		if rec["message"] == msg {
			out = append(out, rec)
		}
	}
	return out
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Service.Name = "orders"
	cfg.Server.BasePath = "/api/v2"
	cfg.Metrics.Enabled = true
	cfg.Auth.JWTSecret = "bootstrap-secret-0123456789"
	return &cfg
}

// TestBootstrapHTTPHandler runs a request through the full middleware chain
func TestBootstrapHTTPHandler(t *testing.T) {
	logs := &syncBuffer{}
	cfg := testConfig()

	boot, err := NewBootstrap(context.Background(), cfg, WithLogWriter(logs))
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}
	defer boot.Cleanup(context.Background())

	if correlation.Default() != boot.Store {
		t.Error("bootstrap store is not the default store")
	}
	if boot.JWT == nil || boot.Collectors == nil {
		t.Fatal("auth or metrics not initialized")
	}

	router := httprouter.New()
	router.GET("/User/:id", boot.Binder.HTTPRouterHandle("/User/:id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		boot.Logger.InfoCtx(r.Context(), "user fetched", []string{"users"}, nil)
		w.WriteHeader(http.StatusOK)
	}))
	handler := boot.HTTPHandler(http.StripPrefix("/api/v2", router))

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "cust-7"}).SignedString([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v2/User/5ddc3ed8643713eb372b993a?custId=guess", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", "req-boot-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	for _, msg := range []string{"user fetched", "request completed"} {
		records := logs.records(t, msg)
		if len(records) != 1 {
			t.Fatalf("%q records = %d, want 1", msg, len(records))
		}
		r := records[0]
		if r["requestId"] != "req-boot-1" || r["customerId"] != "cust-7" {
			t.Errorf("%q correlation = %v / %v", msg, r["requestId"], r["customerId"])
		}
		request, _ := r["request"].(map[string]interface{})
		if request["normalizedUrl"] != "/api/v2/User/:id" {
			t.Errorf("%q normalizedUrl = %v", msg, request["normalizedUrl"])
		}
	}

	unauth := httptest.NewRecorder()
	handler.ServeHTTP(unauth, httptest.NewRequest(http.MethodGet, "/api/v2/User/1", nil))
	if unauth.Code != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", unauth.Code)
	}

	scrape := httptest.NewRecorder()
	handler.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, cfg.Metrics.Path, nil))
	body, _ := io.ReadAll(scrape.Body)
	for _, want := range []string{
		`cqlog_correlation_binds_total{source="header"} 1`,
		`cqlog_http_requests_total{method="GET",route="/api/v2/User/:id",status_code="200"} 1`,
		"cqlog_correlation_scopes_active 0",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q", want)
		}
	}

	for _, path := range []string{"/health/live", "/health/ready"} {
		probe := httptest.NewRecorder()
		handler.ServeHTTP(probe, httptest.NewRequest(http.MethodGet, path, nil))
		if probe.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, probe.Code)
		}
	}
	// the authorized request and the 401 only
	if n := len(logs.records(t, "request completed")); n != 2 {
		t.Errorf("probes and scrapes were access logged: %d records", n)
	}
}

// TestBootstrapRecovery verifies panics are logged in the request scope
func TestBootstrapRecovery(t *testing.T) {
	logs := &syncBuffer{}
	boot, err := NewBootstrap(context.Background(), testConfig(), WithLogWriter(logs), WithoutAuth(), WithoutMetrics())
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}

	handler := boot.HTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	}))

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-Request-ID", "req-panic")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	records := logs.records(t, "panic recovered")
	if len(records) != 1 || records[0]["requestId"] != "req-panic" {
		t.Errorf("panic records = %v", records)
	}
}

// TestBootstrapGRPC runs a call through the interceptor chain
func TestBootstrapGRPC(t *testing.T) {
	logs := &syncBuffer{}
	boot, err := NewBootstrap(context.Background(), testConfig(), WithLogWriter(logs), WithoutAuth())
	if err != nil {
		t.Fatalf("NewBootstrap() error = %v", err)
	}

	svc := NewGRPCService("grpc", "127.0.0.1:0", func(s *grpc.Server) {
		grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	}, WithServerOptions(boot.GRPCServerOptions()...), WithGRPCLogger(boot.Logger))

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer svc.Stop(ctx)

	conn, err := grpc.NewClient(svc.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer conn.Close()

	callCtx, cancel := context.WithTimeout(metadata.AppendToOutgoingContext(ctx, "x-request-id", "grpc-req-9", "x-user-id", "cust-9"), 5*time.Second)
	defer cancel()
	if _, err := grpc_health_v1.NewHealthClient(conn).Check(callCtx, &grpc_health_v1.HealthCheckRequest{}); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	records := logs.records(t, "grpc call completed")
	if len(records) != 1 {
		t.Fatalf("completion records = %d, want 1", len(records))
	}
	r := records[0]
	request, _ := r["request"].(map[string]interface{})
	if r["requestId"] != "grpc-req-9" || r["customerId"] != "cust-9" || request["method"] != "POST" ||
		request["normalizedUrl"] != "/grpc.health.v1.Health/Check" || request["remoteAddress"] != "127.0.0.1" {
		t.Errorf("record = %v", r)
	}
}

// TestBootstrapInvalidConfig verifies component errors are reported
func TestBootstrapInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Correlation.IDFormat = "ulid"
	if _, err := NewBootstrap(context.Background(), cfg, WithLogWriter(io.Discard)); err == nil {
		t.Error("NewBootstrap() with unknown id format succeeded")
	}

	cfg = testConfig()
	cfg.Auth.JWTSecret = ""
	cfg.Auth.JWTPublicKeyPath = "/nonexistent/key.pem"
	if _, err := NewBootstrap(context.Background(), cfg, WithLogWriter(io.Discard), WithoutMetrics()); err == nil {
		t.Error("NewBootstrap() with missing key file succeeded")
	}
}
