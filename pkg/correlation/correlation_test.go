package correlation

import (
	"context"
	"testing"
	"time"
)

// TestKeys verifies the closed key set and name round trip
func TestKeys(t *testing.T) {
	want := []string{
		"REQUEST_IDENTIFIER", "REQUEST_URL", "NORMALIZED_URL",
		"CUSTOMER_ID", "REQUEST_METHOD", "REMOTE_ADDRESS",
	}

	keys := Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %d keys, want %d", len(keys), len(want))
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("Keys()[%d] = %v, want %v", i, k, want[i])
		}
		parsed, ok := ParseKey(want[i])
		if !ok || parsed != k {
			t.Errorf("ParseKey(%q) = %v, %v", want[i], parsed, ok)
		}
	}

	if _, ok := ParseKey("SESSION_NAME"); ok {
		t.Error("ParseKey() accepted a name outside the key set")
	}
	if Key(99).String() != "UNKNOWN" {
		t.Errorf("Key(99).String() = %v, want UNKNOWN", Key(99))
	}
}

// TestDefaultStore verifies the package-level helpers use the default store
func TestDefaultStore(t *testing.T) {
	err := RunInNewScope(context.Background(), func(ctx context.Context) error {
		Set(ctx, RequestID, "req-default")

		if !Bound(ctx) {
			t.Error("Bound() = false inside default scope")
		}
		if got := Get(ctx, RequestID); got != "req-default" {
			t.Errorf("Get(RequestID) = %q, want %q", got, "req-default")
		}
		if got := GetValueByName(ctx, "REQUEST_IDENTIFIER"); got != "req-default" {
			t.Errorf("GetValueByName() = %q, want %q", got, "req-default")
		}
		if got := GetValueByName(ctx, "NOPE"); got != "" {
			t.Errorf("GetValueByName(unknown) = %q, want empty", got)
		}
		if got := Values(ctx)[RequestID]; got != "req-default" {
			t.Errorf("Values()[RequestID] = %q, want %q", got, "req-default")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInNewScope() error = %v", err)
	}

	if got := Get(context.Background(), RequestID); got != "" {
		t.Errorf("Get() outside scope = %q, want empty", got)
	}
}

// TestDetach verifies a detached context keeps the scope but drops cancellation
func TestDetach(t *testing.T) {
	_ = RunInNewScope(context.Background(), func(ctx context.Context) error {
		Set(ctx, CustomerID, "c-9")

		reqCtx, cancel := context.WithCancel(ctx)
		detached := Detach(reqCtx)
		cancel()

		if detached.Err() != nil {
			t.Errorf("detached Err() = %v, want nil", detached.Err())
		}
		if got := Get(detached, CustomerID); got != "c-9" {
			t.Errorf("detached Get(CustomerID) = %q, want %q", got, "c-9")
		}
		return nil
	})
}

// TestGoDefault verifies the package-level Go helper
func TestGoDefault(t *testing.T) {
	got := make(chan string, 1)

	_ = RunInNewScope(context.Background(), func(ctx context.Context) error {
		Set(ctx, RequestMethod, "GET")
		Go(ctx, func(ctx context.Context) {
			got <- Get(ctx, RequestMethod)
		})
		return nil
	})

	select {
	case v := <-got:
		if v != "GET" {
			t.Errorf("continuation Get(RequestMethod) = %q, want GET", v)
		}
	case <-time.After(time.Second):
		t.Fatal("continuation did not run")
	}
}

// TestSetDefaultNilPanics verifies SetDefault rejects nil
func TestSetDefaultNilPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("SetDefault(nil) should panic")
		}
	}()
	SetDefault(nil)
}
