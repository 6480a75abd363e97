// Package envscope installs process environment variables for the duration of a call.
package envscope

import (
	"fmt"
	"os"
	"sync"
)

// The environment is process-global, so only one scope may be open at a time.
var mu sync.Mutex

type saved struct {
	value string
	set   bool
}

// With sets vars, runs fn and then restores every variable to its prior state, also
// when fn returns an error or panics.
func With(vars map[string]string, fn func() error) (err error) {
	mu.Lock()
	defer mu.Unlock()

	snapshot := make(map[string]saved, len(vars))
	for k := range vars {
		v, ok := os.LookupEnv(k)
		snapshot[k] = saved{value: v, set: ok}
	}
	defer func() {
		if rErr := restore(snapshot); rErr != nil && err == nil {
			err = rErr
		}
	}()

	for k, v := range vars {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return fn()
}

func restore(snapshot map[string]saved) error {
	var firstErr error
	for k, s := range snapshot {
		var err error
		if s.set {
			err = os.Setenv(k, s.value)
		} else {
			err = os.Unsetenv(k)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to restore %s: %w", k, err)
		}
	}
	return firstErr
}
