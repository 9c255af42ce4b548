package correlation

// Key identifies one correlation value. The set is closed: callers may update
// values but never add keys.
type Key int

const (
	// RequestID is the inbound x-request-id or a generated identifier.
	RequestID Key = iota
	// RequestURL is the full original request URL.
	RequestURL
	// NormalizedURL is the matched route template, e.g. /api/v2/User/:id.
	NormalizedURL
	// CustomerID is the customer or user the request acts for.
	CustomerID
	// RequestMethod is the HTTP method.
	RequestMethod
	// RemoteAddress is the client IP.
	RemoteAddress

	numKeys
)

var keyNames = [numKeys]string{
	RequestID:     "REQUEST_IDENTIFIER",
	RequestURL:    "REQUEST_URL",
	NormalizedURL: "NORMALIZED_URL",
	CustomerID:    "CUSTOMER_ID",
	RequestMethod: "REQUEST_METHOD",
	RemoteAddress: "REMOTE_ADDRESS",
}

// String returns the canonical key name, e.g. "CUSTOMER_ID".
func (k Key) String() string {
	if !k.valid() {
		return "UNKNOWN"
	}
	return keyNames[k]
}

func (k Key) valid() bool {
	return k >= 0 && k < numKeys
}

// Keys returns every key in declaration order.
func Keys() []Key {
	keys := make([]Key, 0, numKeys)
	for k := Key(0); k < numKeys; k++ {
		keys = append(keys, k)
	}
	return keys
}

// ParseKey maps a canonical key name back to its Key.
func ParseKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return Key(k), true
		}
	}
	return 0, false
}
