package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ActiveCounter reports how many correlation scopes are registered.
// *correlation.Store implements it.
type ActiveCounter interface {
	Active() int
}

// ScopeLimitChecker fails when more than limit scopes are active. A steadily
// growing count means requests are stuck or continuations never return.
func ScopeLimitChecker(store ActiveCounter, limit int) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		if n := store.Active(); limit > 0 && n > limit {
			return fmt.Errorf("%d active correlation scopes exceed limit %d", n, limit)
		}
		return nil
	})
}

// LogDirChecker fails when the log directory is missing or not writable.
func LogDirChecker(dir string) Checker {
	return CheckerFunc(func(ctx context.Context) error {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("log directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("log directory %s is not a directory", dir)
		}

		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return fmt.Errorf("log directory not writable: %w", err)
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(filepath.Clean(name))
	})
}
