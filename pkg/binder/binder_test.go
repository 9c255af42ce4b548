package binder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Combine-Capital/cqlog/pkg/config"
	"github.com/Combine-Capital/cqlog/pkg/correlation"
	"github.com/Combine-Capital/cqlog/pkg/errors"
	"github.com/julienschmidt/httprouter"
)

// capture returns a handler recording the scope values it runs in
func capture(got *map[correlation.Key]string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = correlation.Values(r.Context())
	})
}

type recordingObserver struct {
	mu        sync.Mutex
	generated []bool
}

func (o *recordingObserver) ObserveBind(_ context.Context, generated bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generated = append(o.generated, generated)
}

// TestHTTPMiddlewareSeedsScope verifies every key is filled from the request
func TestHTTPMiddlewareSeedsScope(t *testing.T) {
	var got map[correlation.Key]string
	handler := New(Options{}).HTTPMiddleware()(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/1?x=1", nil)
	req.Header.Set("x-request-id", "req-id-689432")
	req.Header.Set("x-user-id", "123")
	req.RemoteAddr = "127.0.0.1:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	want := map[correlation.Key]string{
		correlation.RequestID:     "req-id-689432",
		correlation.RequestURL:    "/api/v1/users/1?x=1",
		correlation.CustomerID:    "123",
		correlation.RequestMethod: "GET",
		correlation.NormalizedURL: "",
		correlation.RemoteAddress: "127.0.0.1",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%v = %q, want %q", k, got[k], v)
		}
	}
}

// TestRequestIDFallback verifies missing request ids are generated and unique
func TestRequestIDFallback(t *testing.T) {
	observer := &recordingObserver{}
	var got map[correlation.Key]string
	handler := New(Options{Observer: observer}).HTTPMiddleware()(capture(&got))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	first := got[correlation.RequestID]
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	second := got[correlation.RequestID]

	if first == "" || second == "" {
		t.Fatalf("generated ids = %q, %q, want non-empty", first, second)
	}
	if first == second {
		t.Errorf("generated ids are equal: %q", first)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(observer.generated) != 3 || !observer.generated[0] || !observer.generated[1] || observer.generated[2] {
		t.Errorf("observer saw %v, want [true true false]", observer.generated)
	}
}

// TestCustomerIDPrecedence verifies the customer id source order
func TestCustomerIDPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		header      string
		contentType string
		body        string
		want        string
	}{
		{"header beats query", "/?custId=B", "A", "", "", "A"},
		{"custId beats userId", "/?userId=C&custId=B", "", "", "", "B"},
		{"only userId", "/?userId=C", "", "", "", "C"},
		{"userId beats customerId", "/?customerId=D&userId=C", "", "", "", "C"},
		{"customerId beats customer_id", "/?customer_id=E&customerId=D", "", "", "", "D"},
		{"only customer_id", "/?customer_id=E", "", "", "", "E"},
		{"query beats body", "/?customer_id=E", "", "application/json", `{"customer_id":"F"}`, "E"},
		{"body customer_id beats user_id", "/", "", "application/json", `{"user_id":"G","customer_id":"F"}`, "F"},
		{"body user_id beats userId", "/", "", "application/json", `{"userId":"H","user_id":"G"}`, "G"},
		{"body userId beats customerId", "/", "", "application/json", `{"customerId":"I","userId":"H"}`, "H"},
		{"body numeric id", "/", "", "application/json", `{"customerId":42}`, "42"},
		{"form body", "/", "", "application/x-www-form-urlencoded", "user_id=J", "J"},
		{"empty values fall through", "/?custId=&userId=K", "", "", "", "K"},
		{"blank header falls through", "/?custId=B", "   ", "", "", "B"},
		{"blank query falls through", "/?custId=%20%20&userId=C", "", "", "", "C"},
		{"blank body field falls through", "/", "", "application/json", `{"customer_id":" ","user_id":"G"}`, "G"},
		{"values are trimmed", "/?custId=%20B%20", "", "", "", "B"},
		{"nothing found", "/", "", "text/plain", "customer_id=Z", ""},
		{"malformed json", "/", "", "application/json", `{"customer_id":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[correlation.Key]string
			handler := New(Options{MaxBodyBytes: 1024}).HTTPMiddleware()(capture(&got))

			var body io.Reader
			method := http.MethodGet
			if tt.body != "" {
				body = strings.NewReader(tt.body)
				method = http.MethodPost
			}
			req := httptest.NewRequest(method, tt.target, body)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got[correlation.CustomerID] != tt.want {
				t.Errorf("CustomerID = %q, want %q", got[correlation.CustomerID], tt.want)
			}
		})
	}
}

// TestZeroOptionsReadBody verifies a zero Options binder still reads body fields
func TestZeroOptionsReadBody(t *testing.T) {
	var got map[correlation.Key]string
	handler := New(Options{}).HTTPMiddleware()(capture(&got))

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customer_id":"D"}`))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got[correlation.CustomerID] != "D" {
		t.Errorf("CustomerID = %q, want %q", got[correlation.CustomerID], "D")
	}
}

// TestBlankRequestIDGenerated verifies a whitespace request id header counts as missing
func TestBlankRequestIDGenerated(t *testing.T) {
	observer := &recordingObserver{}
	var got map[correlation.Key]string
	handler := New(Options{Observer: observer, IDGenerator: func() string { return "generated-1" }}).HTTPMiddleware()(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "   ")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got[correlation.RequestID] != "generated-1" {
		t.Errorf("RequestID = %q, want generated-1", got[correlation.RequestID])
	}
	if len(observer.generated) != 1 || !observer.generated[0] {
		t.Errorf("observer saw %v, want [true]", observer.generated)
	}
}

// TestBodyRestored verifies downstream handlers still read the full body
func TestBodyRestored(t *testing.T) {
	tests := []struct {
		name    string
		maxBody int64
		body    string
		wantID  string
	}{
		{"within limit", 1024, `{"customer_id":"c-1","note":"hello"}`, "c-1"},
		{"over limit", 8, `{"customer_id":"c-1","note":"hello"}`, ""},
		{"zero options use default limit", 0, `{"customer_id":"c-1"}`, "c-1"},
		{"inspection disabled", -1, `{"customer_id":"c-1"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenBody, seenID string
			handler := New(Options{MaxBodyBytes: tt.maxBody}).HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				seenBody = string(b)
				seenID = correlation.Get(r.Context(), correlation.CustomerID)
			}))

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if seenBody != tt.body {
				t.Errorf("downstream body = %q, want %q", seenBody, tt.body)
			}
			if seenID != tt.wantID {
				t.Errorf("CustomerID = %q, want %q", seenID, tt.wantID)
			}
		})
	}
}

// TestNormalizedURLHTTPRouter verifies the route template under a base path
func TestNormalizedURLHTTPRouter(t *testing.T) {
	b := New(Options{BasePath: "/api/v2"})

	var got map[correlation.Key]string
	router := httprouter.New()
	router.GET("/User/:id", b.HTTPRouterHandle("/User/:id", func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		got = correlation.Values(r.Context())
		if ps.ByName("id") != "5ddc3ed8643713eb372b993a" {
			t.Errorf("param id = %q", ps.ByName("id"))
		}
		if httprouter.ParamsFromContext(r.Context()).ByName("id") == "" {
			t.Error("params missing from context")
		}
	}))
	router.NotFound = capture(&got)

	handler := b.HTTPMiddleware()(http.StripPrefix("/api/v2", router))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v2/User/5ddc3ed8643713eb372b993a", nil))
	if got[correlation.NormalizedURL] != "/api/v2/User/:id" {
		t.Errorf("NormalizedURL = %q, want %q", got[correlation.NormalizedURL], "/api/v2/User/:id")
	}
	if got[correlation.RequestURL] != "/api/v2/User/5ddc3ed8643713eb372b993a" {
		t.Errorf("RequestURL = %q, want original URL", got[correlation.RequestURL])
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v2/nowhere", nil))
	if got[correlation.NormalizedURL] != "" {
		t.Errorf("unmatched NormalizedURL = %q, want empty", got[correlation.NormalizedURL])
	}
}

// TestNormalizedURLServeMux verifies ServeMux patterns via RouteMiddleware
func TestNormalizedURLServeMux(t *testing.T) {
	b := New(Options{BasePath: "/api/v2"})

	var got map[correlation.Key]string
	mux := http.NewServeMux()
	mux.Handle("GET /User/{id}", b.RouteMiddleware("")(capture(&got)))

	handler := b.HTTPMiddleware()(http.StripPrefix("/api/v2", mux))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v2/User/7", nil))

	if got[correlation.NormalizedURL] != "/api/v2/User/{id}" {
		t.Errorf("NormalizedURL = %q, want %q", got[correlation.NormalizedURL], "/api/v2/User/{id}")
	}
}

// TestRouteMiddlewareBindsUnboundRequests verifies standalone use
func TestRouteMiddlewareBindsUnboundRequests(t *testing.T) {
	var got map[correlation.Key]string
	handler := New(Options{}).RouteMiddleware("/orders/:id")(capture(&got))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/orders/9", nil))

	if got[correlation.RequestID] == "" {
		t.Error("RequestID empty, request was not bound")
	}
	if got[correlation.NormalizedURL] != "/orders/:id" {
		t.Errorf("NormalizedURL = %q, want %q", got[correlation.NormalizedURL], "/orders/:id")
	}
	if got[correlation.RequestMethod] != http.MethodDelete {
		t.Errorf("RequestMethod = %q, want DELETE", got[correlation.RequestMethod])
	}
}

// TestUpdateCustomerID verifies a later stage can override the customer id
func TestUpdateCustomerID(t *testing.T) {
	var got string
	handler := New(Options{}).HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		UpdateCustomerID(r.Context(), "42")
		got = correlation.Get(r.Context(), correlation.CustomerID)
	}))

	req := httptest.NewRequest(http.MethodGet, "/?custId=7", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "42" {
		t.Errorf("CustomerID = %q, want %q", got, "42")
	}

	// outside a scope it is a no-op
	UpdateCustomerID(context.Background(), "42")
	if v := correlation.Get(context.Background(), correlation.CustomerID); v != "" {
		t.Errorf("unbound CustomerID = %q, want empty", v)
	}
}

// TestBinderUpdateCustomerIDPrivateStore verifies the method form uses the binder's store
func TestBinderUpdateCustomerIDPrivateStore(t *testing.T) {
	store := correlation.MustNewStore(correlation.Options{})
	b := New(Options{Store: store})

	_ = b.Bind(context.Background(), b.NewHTTPRequest(httptest.NewRequest(http.MethodGet, "/", nil)), func(ctx context.Context) error {
		b.UpdateCustomerID(ctx, "99")
		if got := store.Get(ctx, correlation.CustomerID); got != "99" {
			t.Errorf("CustomerID = %q, want %q", got, "99")
		}
		if correlation.Bound(ctx) {
			t.Error("private store scope visible through default store")
		}
		return nil
	})
}

// TestConcurrentRequestsIsolated interleaves two requests at a blocking point
func TestConcurrentRequestsIsolated(t *testing.T) {
	gates := map[string]chan struct{}{
		"A": make(chan struct{}),
		"B": make(chan struct{}),
	}

	handler := New(Options{}).HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		me := r.Header.Get("X-Request-ID")
		other := "A"
		if me == "A" {
			other = "B"
		}

		if got := correlation.Get(r.Context(), correlation.RequestID); got != me {
			t.Errorf("before wait %s saw %q", me, got)
		}
		if me == "A" {
			<-gates["A"] // suspended until B has run
		} else {
			close(gates[other])
		}
		time.Sleep(time.Millisecond)
		if got := correlation.Get(r.Context(), correlation.RequestID); got != me {
			t.Errorf("after wait %s saw %q", me, got)
		}
	}))

	var wg sync.WaitGroup
	for _, id := range []string{"A", "B"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", id)
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}(id)
	}
	wg.Wait()
}

// TestEchoRequestID verifies the id is written on the response
func TestEchoRequestID(t *testing.T) {
	handler := New(Options{EchoRequestID: true, RequestIDHeader: "X-Correlation-ID"}).HTTPMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "abc")
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Correlation-ID"); got != "abc" {
		t.Errorf("response X-Correlation-ID = %q, want %q", got, "abc")
	}
}

// TestClientIP verifies proxy header handling
func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"remote addr", false, nil, "10.0.0.1:4000", "10.0.0.1"},
		{"ipv6 remote addr", false, nil, "[::1]:4000", "::1"},
		{"untrusted xff ignored", false, map[string]string{"X-Forwarded-For": "1.2.3.4"}, "10.0.0.1:4000", "10.0.0.1"},
		{"trusted xff first hop", true, map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.9"}, "10.0.0.1:4000", "1.2.3.4"},
		{"trusted x-real-ip", true, map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.1:4000", "5.6.7.8"},
		{"no port", false, nil, "pipe", "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Options{TrustProxy: tt.trustProxy})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := b.NewHTTPRequest(req).ClientIP(); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestServeMuxResolver verifies pattern cleanup
func TestServeMuxResolver(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
		ok      bool
	}{
		{"", "", false},
		{"/User/{id}", "/User/{id}", true},
		{"GET /User/{id}", "/User/{id}", true},
		{"GET example.com/User/{id}", "/User/{id}", true},
		{"/", "", false},
		{"GET /", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Pattern = tt.pattern
		got, ok := ServeMuxResolver(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ServeMuxResolver(%q) = %q, %v, want %q, %v", tt.pattern, got, ok, tt.want, tt.ok)
		}
	}
}

// TestNewIDGenerator verifies configured generators
func TestNewIDGenerator(t *testing.T) {
	gen, err := NewIDGenerator("hex")
	if err != nil {
		t.Fatalf("NewIDGenerator(hex) error = %v", err)
	}
	if id := gen(); len(id) != 32 {
		t.Errorf("hex id %q has length %d, want 32", id, len(id))
	}

	gen, err = NewIDGenerator("uuid")
	if err != nil {
		t.Fatalf("NewIDGenerator(uuid) error = %v", err)
	}
	if id := gen(); len(id) != 36 {
		t.Errorf("uuid id %q has length %d, want 36", id, len(id))
	}

	if _, err := NewIDGenerator("ulid"); !errors.IsInvalidInput(err) {
		t.Errorf("NewIDGenerator(ulid) error = %v, want InvalidInputError", err)
	}
}

// TestOptionsFromConfig verifies config mapping
func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.BasePath = "/api/v2"
	cfg.Correlation.IDFormat = "hex"
	cfg.Correlation.TrustProxy = true

	opts, err := OptionsFromConfig(cfg.Correlation, cfg.Server)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.BasePath != "/api/v2" || !opts.TrustProxy || opts.MaxBodyBytes != 1<<20 {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
	if len(opts.IDGenerator()) != 32 {
		t.Error("IDGenerator is not the hex generator")
	}
}
