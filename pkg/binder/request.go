package binder

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Request is the inbound request as seen by the binder. Every accessor returns
// "" when the value is absent.
type Request interface {
	// Header returns the first value of the named header, case-insensitively.
	Header(name string) string
	// OriginalURL returns the URL as received, before any prefix stripping.
	OriginalURL() string
	// URL returns the URL as seen by the current handler.
	URL() string
	Method() string
	ClientIP() string
	// Route returns the mount path and the matched route pattern. ok is false
	// until the router matched the request.
	Route() (basePath, pattern string, ok bool)
	Query(name string) string
	BodyField(name string) string
}

// HTTPRequest adapts *http.Request to Request.
type HTTPRequest struct {
	r          *http.Request
	basePath   string
	resolver   RouteResolver
	trustProxy bool
	maxBody    int64

	query      url.Values
	body       map[string]string
	bodyParsed bool
}

// NewHTTPRequest wraps r using the binder's options.
func (b *Binder) NewHTTPRequest(r *http.Request) *HTTPRequest {
	return &HTTPRequest{
		r:          r,
		basePath:   b.opts.BasePath,
		resolver:   b.opts.Resolver,
		trustProxy: b.opts.TrustProxy,
		maxBody:    b.opts.MaxBodyBytes,
	}
}

func (h *HTTPRequest) Header(name string) string {
	return h.r.Header.Get(name)
}

func (h *HTTPRequest) OriginalURL() string {
	return h.r.RequestURI
}

func (h *HTTPRequest) URL() string {
	if h.r.URL == nil {
		return ""
	}
	return h.r.URL.RequestURI()
}

func (h *HTTPRequest) Method() string {
	return h.r.Method
}

// ClientIP returns the first X-Forwarded-For hop or X-Real-IP when proxies are
// trusted, otherwise the host part of RemoteAddr.
func (h *HTTPRequest) ClientIP() string {
	if h.trustProxy {
		if xff := h.r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(h.r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(h.r.RemoteAddr)
	if err != nil {
		return h.r.RemoteAddr
	}
	return host
}

func (h *HTTPRequest) Route() (string, string, bool) {
	if h.resolver == nil {
		return "", "", false
	}
	pattern, ok := h.resolver(h.r)
	if !ok {
		return "", "", false
	}
	return h.basePath, pattern, true
}

func (h *HTTPRequest) Query(name string) string {
	if h.query == nil {
		if h.r.URL == nil {
			return ""
		}
		h.query = h.r.URL.Query()
	}
	return h.query.Get(name)
}

// BodyField returns a top-level field of a JSON object or url-encoded form
// body. The body is read at most once and handed on to later handlers intact.
func (h *HTTPRequest) BodyField(name string) string {
	if !h.bodyParsed {
		h.bodyParsed = true
		h.body = h.readBody()
	}
	return h.body[name]
}

func (h *HTTPRequest) readBody() map[string]string {
	if h.maxBody <= 0 || h.r.Body == nil || h.r.Body == http.NoBody || h.r.ContentLength == 0 {
		return nil
	}

	mediaType, _, err := mime.ParseMediaType(h.r.Header.Get("Content-Type"))
	if err != nil {
		return nil
	}
	if mediaType != "application/json" && mediaType != "application/x-www-form-urlencoded" {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(h.r.Body, h.maxBody+1))
	h.r.Body = readCloser{io.MultiReader(bytes.NewReader(buf), h.r.Body), h.r.Body}
	if err != nil || int64(len(buf)) > h.maxBody {
		return nil
	}

	if mediaType == "application/x-www-form-urlencoded" {
		form, err := url.ParseQuery(string(buf))
		if err != nil {
			return nil
		}
		fields := make(map[string]string, len(form))
		for k := range form {
			fields[k] = form.Get(k)
		}
		return fields
	}
	return jsonFields(buf)
}

// jsonFields flattens the scalar top-level fields of a JSON object to strings.
func jsonFields(buf []byte) map[string]string {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil
	}

	fields := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		}
	}
	return fields
}

// readCloser replays the consumed prefix of a body and closes the original.
type readCloser struct {
	io.Reader
	io.Closer
}
