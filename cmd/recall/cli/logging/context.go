package logging

import (
	"context"
)

// Context keys for logging values. Private types avoid key collisions.
type contextKey int

const (
	sessionIDKey contextKey = iota
	hookKey
	componentKey
)

// WithSession adds a session ID to the context.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithHook adds the hook event name to the context
// (e.g. "user-prompt-submit", "post-tool-use", "stop").
func WithHook(ctx context.Context, hook string) context.Context {
	return context.WithValue(ctx, hookKey, hook)
}

// WithComponent adds a component name to the context
// (e.g. "index", "memory", "rlm").
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// SessionIDFromContext extracts the session ID, or "" if not set.
func SessionIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(sessionIDKey).(string); ok {
		return s
	}
	return ""
}

// HookFromContext extracts the hook event name, or "" if not set.
func HookFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(hookKey).(string); ok {
		return s
	}
	return ""
}

// ComponentFromContext extracts the component name, or "" if not set.
func ComponentFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(componentKey).(string); ok {
		return s
	}
	return ""
}
