// Package hook defines the keyboard-event producer interface the recorder
// consumes. The OS-level global hook lives in the embedding application; this
// package supplies the contract, key normalization, repeat suppression, and
// the reserved-key bindings that map raw keystrokes onto session controls.
package hook

import (
	"context"
	"strings"
	"time"
)

// Kind distinguishes press and release events.
type Kind string

const (
	KindPress   Kind = "press"
	KindRelease Kind = "release"
)

// KeyEvent is one raw (timestamp, key, press|release) triple reported by a hook.
type KeyEvent struct {
	Time time.Time
	Key  string
	Kind Kind
}

// Source emits raw key events until the context is done or the stream ends.
type Source interface {
	Stream(ctx context.Context, emit func(KeyEvent) error) error
}

// SourceFunc adapts a function literal to the Source interface.
type SourceFunc func(ctx context.Context, emit func(KeyEvent) error) error

// Stream calls the underlying function.
func (f SourceFunc) Stream(ctx context.Context, emit func(KeyEvent) error) error {
	return f(ctx, emit)
}

// NormalizeKey canonicalizes hook-reported key names: lowercased, with
// platform prefixes such as "Key." stripped, so "Key.Space" and "space" agree.
func NormalizeKey(raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimPrefix(key, "Key.")
	key = strings.TrimPrefix(key, "key.")
	return strings.ToLower(key)
}
