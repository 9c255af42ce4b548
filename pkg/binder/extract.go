package binder

import "strings"

// Customer id sources after the user id header, in precedence order.
var (
	customerIDQueryParams = []string{"custId", "userId", "customerId", "customer_id"}
	customerIDBodyFields  = []string{"customer_id", "user_id", "userId", "customerId"}
)

// resolveRequestID returns the request id header, or a generated id when the
// header is missing or blank.
func resolveRequestID(req Request, header string, gen IDGenerator) (id string, generated bool) {
	if id := strings.TrimSpace(req.Header(header)); id != "" {
		return id, false
	}
	return gen(), true
}

func resolveRequestURL(req Request) string {
	if u := req.OriginalURL(); u != "" {
		return u
	}
	return req.URL()
}

// resolveCustomerID returns the first non-blank of: the user id header, the
// query parameters, then the body fields. Values are trimmed.
func resolveCustomerID(req Request, userIDHeader string) string {
	if v := strings.TrimSpace(req.Header(userIDHeader)); v != "" {
		return v
	}
	for _, name := range customerIDQueryParams {
		if v := strings.TrimSpace(req.Query(name)); v != "" {
			return v
		}
	}
	for _, name := range customerIDBodyFields {
		if v := strings.TrimSpace(req.BodyField(name)); v != "" {
			return v
		}
	}
	return ""
}

func resolveNormalizedURL(req Request) string {
	basePath, pattern, ok := req.Route()
	if !ok {
		return ""
	}
	return basePath + pattern
}
