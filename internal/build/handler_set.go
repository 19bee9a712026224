package build

import (
	"context"
	"log/slog"

	"github.com/btcsuite/btclog"
	btclogv2 "github.com/btcsuite/btclog/v2"
)

// HandlerSet fans a log record out to several btclog handlers. The site uses
// it to write the same stream to the console and to the rotating log file.
type HandlerSet struct {
	level btclog.Level
	set   []btclogv2.Handler
}

// NewHandlerSet builds a HandlerSet over the given handlers and sets all of
// them to the Info level.
func NewHandlerSet(handlers ...btclogv2.Handler) *HandlerSet {
	h := &HandlerSet{set: handlers}
	h.SetLevel(btclog.LevelInfo)

	return h
}

// Enabled reports whether every underlying handler accepts the level.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.set {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle passes the record to each handler in order, stopping at the first
// failure.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.set {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs returns a plain slog handler set carrying the attributes.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.reduce(func(handler slog.Handler) slog.Handler {
		return handler.WithAttrs(attrs)
	})
}

// WithGroup returns a plain slog handler set scoped to the group.
//
// NOTE: this is part of the slog.Handler interface.
func (h *HandlerSet) WithGroup(name string) slog.Handler {
	return h.reduce(func(handler slog.Handler) slog.Handler {
		return handler.WithGroup(name)
	})
}

// SubSystem returns a HandlerSet whose handlers are all tagged with the
// sub-system name. The current level is carried over.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SubSystem(tag string) btclogv2.Handler {
	return h.derive(func(handler btclogv2.Handler) btclogv2.Handler {
		return handler.SubSystem(tag)
	})
}

// WithPrefix returns a HandlerSet that prefixes every message.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) WithPrefix(prefix string) btclogv2.Handler {
	return h.derive(func(handler btclogv2.Handler) btclogv2.Handler {
		return handler.WithPrefix(prefix)
	})
}

// SetLevel changes the level of every underlying handler.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) SetLevel(level btclog.Level) {
	for _, handler := range h.set {
		handler.SetLevel(level)
	}
	h.level = level
}

// Level returns the level last passed to SetLevel.
//
// NOTE: this is part of the btclog.Handler interface.
func (h *HandlerSet) Level() btclog.Level {
	return h.level
}

func (h *HandlerSet) derive(
	f func(btclogv2.Handler) btclogv2.Handler) *HandlerSet {

	derived := &HandlerSet{
		level: h.level,
		set:   make([]btclogv2.Handler, len(h.set)),
	}
	for i, handler := range h.set {
		derived.set[i] = f(handler)
	}

	return derived
}

func (h *HandlerSet) reduce(f func(slog.Handler) slog.Handler) slog.Handler {
	reduced := make(slogSet, len(h.set))
	for i, handler := range h.set {
		reduced[i] = f(handler)
	}

	return reduced
}

var _ btclogv2.Handler = (*HandlerSet)(nil)

// slogSet is the plain slog form of a HandlerSet, produced once a caller
// attaches attributes or groups.
type slogSet []slog.Handler

// Enabled is part of the slog.Handler interface.
func (s slogSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range s {
		if !handler.Enabled(ctx, level) {
			return false
		}
	}

	return true
}

// Handle is part of the slog.Handler interface.
func (s slogSet) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range s {
		if err := handler.Handle(ctx, record); err != nil {
			return err
		}
	}

	return nil
}

// WithAttrs is part of the slog.Handler interface.
func (s slogSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(slogSet, len(s))
	for i, handler := range s {
		out[i] = handler.WithAttrs(attrs)
	}

	return out
}

// WithGroup is part of the slog.Handler interface.
func (s slogSet) WithGroup(name string) slog.Handler {
	out := make(slogSet, len(s))
	for i, handler := range s {
		out[i] = handler.WithGroup(name)
	}

	return out
}

var _ slog.Handler = (slogSet)(nil)
