package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/helix/pkg/domain"
)

// LoggingHooks logs every lifecycle event at Info (failures at Warn).
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			if e.Err != nil {
				logger.Warn("state_change", "from", e.From, "to", e.To, "err", e.Err)
				return
			}
			logger.Info("state_change", "from", e.From, "to", e.To)
		},
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			logger.Info("tool_call", "tool", e.ToolName, "call_id", e.CallID)
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			logger.Info("tool_return",
				"tool", e.ToolName,
				"call_id", e.CallID,
				"is_error", e.IsError,
				"kind", e.Kind,
				"duration", e.Duration,
			)
		},
		OnRefresh: func(_ context.Context, e *domain.RefreshEvent) {
			if e.Err != nil {
				logger.Warn("refresh", "collection", e.Collection, "err", e.Err)
				return
			}
			logger.Info("refresh", "collection", e.Collection, "rows", e.Rows, "duration", e.Duration)
		},
	}
}

// ComposeHooks fans every event out to each hook set in order. Nil callbacks are skipped.
func ComposeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(ctx context.Context, e *domain.StateEvent) {
			for _, h := range sets {
				if h.OnStateChange != nil {
					h.OnStateChange(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range sets {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			for _, h := range sets {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
		OnRefresh: func(ctx context.Context, e *domain.RefreshEvent) {
			for _, h := range sets {
				if h.OnRefresh != nil {
					h.OnRefresh(ctx, e)
				}
			}
		},
	}
}
