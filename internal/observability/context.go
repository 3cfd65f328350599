package observability

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type contextKey string

const (
	sessionIDKey   contextKey = "session_id"
	gameContextKey contextKey = "game_context"
)

// WithSessionID tags ctx so every span started under it carries the id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func GetSessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// WithGameContext merges turn details (actor, location, ...) into any
// already on ctx.
func WithGameContext(ctx context.Context, gameCtx map[string]any) context.Context {
	existing := GameContext(ctx)
	merged := make(map[string]any, len(existing)+len(gameCtx))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range gameCtx {
		merged[k] = v
	}
	return context.WithValue(ctx, gameContextKey, merged)
}

// GameContext returns the turn details on ctx, or nil.
func GameContext(ctx context.Context) map[string]any {
	if gameCtx, ok := ctx.Value(gameContextKey).(map[string]any); ok {
		return gameCtx
	}
	return nil
}

// TurnAttributes renders the session id and game context on ctx as span
// attributes under the game. prefix, in key order. Values of unsupported
// types are skipped.
func TurnAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if sid := GetSessionIDFromContext(ctx); sid != "" {
		attrs = append(attrs,
			attribute.String("langfuse.session.id", sid),
			attribute.String("session.id", sid),
		)
	}

	gameCtx := GameContext(ctx)
	keys := make([]string, 0, len(gameCtx))
	for k := range gameCtx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch val := gameCtx[k].(type) {
		case string:
			attrs = append(attrs, attribute.String("game."+k, val))
		case int:
			attrs = append(attrs, attribute.Int("game."+k, val))
		case bool:
			attrs = append(attrs, attribute.Bool("game."+k, val))
		case float64:
			attrs = append(attrs, attribute.Float64("game."+k, val))
		case []string:
			attrs = append(attrs, attribute.StringSlice("game."+k, val))
		}
	}
	return attrs
}

// turnStamper copies the turn attributes onto every span as it starts, so
// director and composer spans are attributable to an actor and location.
type turnStamper struct{}

func (turnStamper) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if attrs := TurnAttributes(ctx); len(attrs) > 0 {
		s.SetAttributes(attrs...)
	}
}

func (turnStamper) OnEnd(sdktrace.ReadOnlySpan)      {}
func (turnStamper) Shutdown(context.Context) error   { return nil }
func (turnStamper) ForceFlush(context.Context) error { return nil }
