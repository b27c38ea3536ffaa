// Package env reads NCMSIGN_* settings, falling back to the legacy NCM_*
// names with a one-time deprecation warning.
package env

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// Prefix is the current variable prefix.
	Prefix = "NCMSIGN_"
	// LegacyPrefix is accepted for older deployments.
	LegacyPrefix = "NCM_"
)

var (
	warnLogger func(format string, args ...any) = log.Printf
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Lookup returns NCMSIGN_<name>. When only the legacy NCM_<name> is set it is
// returned instead and a deprecation warning is logged once per key.
func Lookup(name string) (string, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	newKey, oldKey := Prefix+name, LegacyPrefix+name
	if v, ok := os.LookupEnv(newKey); ok {
		return v, true
	}
	if v, ok := os.LookupEnv(oldKey); ok {
		logDeprecated(oldKey, newKey)
		return v, true
	}
	return "", false
}

// Bool looks up name and parses it with strconv.ParseBool.
func Bool(name string) (value, ok bool, err error) {
	raw, ok := Lookup(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return false, false, nil
	}
	value, err = strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, true, fmt.Errorf("%s%s: %w", Prefix, name, err)
	}
	return value, true, nil
}

// Duration looks up name and parses it with time.ParseDuration.
func Duration(name string) (time.Duration, bool, error) {
	raw, ok := Lookup(name)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, false, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, true, fmt.Errorf("%s%s: %w", Prefix, name, err)
	}
	return d, true, nil
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the once guards so tests can observe
// warnings again.
func ResetWarningsForTesting() {
	warnedKeys.Range(func(k, _ any) bool {
		warnedKeys.Delete(k)
		return true
	})
}

// SetWarnLoggerForTesting swaps the warning logger. Defer the returned
// restore func.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
