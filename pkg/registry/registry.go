package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/schema"
)

// ToolFunction defines the signature for a tool implementation.
// It receives a context and the validated, normalized arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

// Refresher reloads a cached collection. Satisfied by *reconciler.Reconciler.
type Refresher interface {
	Refresh(ctx context.Context, c domain.Collection) error
}

// Definition declares one tool: its contract, its executor and what it invalidates.
type Definition struct {
	Name        string
	Description string
	Schema      schema.Schema
	Fn          ToolFunction
	// Refreshes names the collection reloaded after a successful call, or "" for read-only tools.
	Refreshes domain.Collection
	// RequiresID makes dispatch check the "id" argument before any other validation.
	RequiresID bool
}

// Tool returns the declaration sent to the runtime.
func (d Definition) Tool() domain.Tool {
	return domain.Tool{Name: d.Name, Description: d.Description, Parameters: d.Schema.JSONSchema()}
}

// Registry is the tool catalogue. It is immutable in practice once the session starts:
// tools are registered at build time and only read afterwards.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	tools     map[string]Definition
	refresher Refresher
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
}

// Option configures a Registry.
type Option func(*Registry)

// WithRefresher sets the reconciler invoked after successful mutating calls.
func WithRefresher(r Refresher) Option {
	return func(reg *Registry) { reg.refresher = r }
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(reg *Registry) {
		if l != nil {
			reg.logger = l
		}
	}
}

// WithHooks sets lifecycle hooks fired around each dispatch.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(reg *Registry) { reg.hooks = h }
}

// NewRegistry creates a new empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:  make(map[string]Definition),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
// Names must be unique; a refreshed collection must be one of the known collections.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return errors.New("tool name is empty")
	}
	if def.Fn == nil {
		return fmt.Errorf("tool %s: nil executor", def.Name)
	}
	if def.Refreshes != "" && !def.Refreshes.Valid() {
		return fmt.Errorf("tool %s: %w: %s", def.Name, domain.ErrUnknownCollection, def.Refreshes)
	}
	if def.RequiresID {
		if _, ok := def.Schema.Field(domain.KeyID); !ok {
			return fmt.Errorf("tool %s: requires id but declares no id field", def.Name)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.tools[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Names lists tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Tools lists the runtime declarations in registration order.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Tool())
	}
	return out
}

// Execute looks up a tool by name, validates args and runs it.
// It does not trigger a refresh; use Dispatch for the full tool-call path.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	def, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrToolNotFound, name)
	}

	normalized, err := Validate(def, args)
	if err != nil {
		return nil, err
	}
	return def.Fn(ctx, normalized)
}

// Dispatch runs one tool call end to end and always produces a result for the runtime.
// On success of a tool that refreshes a collection, the refresher runs exactly once;
// a refresh failure is logged and does not change the result.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	start := time.Now()
	log := r.logger.With("tool", call.Name, "call_id", call.ID)

	args, err := decodeArgs(call)
	if r.hooks.OnToolCall != nil {
		r.hooks.OnToolCall(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventToolCall},
			CallID:    call.ID,
			ToolName:  call.Name,
			Input:     args,
		})
	}

	var res domain.ToolResult
	def, found := r.Lookup(call.Name)
	switch {
	case !found:
		res = domain.Failure(call, domain.NewError(domain.KindToolNotFound, call.Name, domain.ErrToolNotFound))
	case err != nil:
		res = domain.Failure(call, err)
	default:
		out, execErr := r.execute(ctx, def, args)
		if execErr != nil {
			res = domain.Failure(call, execErr)
		} else {
			res = domain.Success(call, out)
			r.refresh(ctx, log, def)
		}
	}

	elapsed := time.Since(start)
	if res.IsError {
		log.Warn("tool call failed", "kind", res.Kind, "error", res.Error, "duration", elapsed)
	} else {
		log.Debug("tool call succeeded", "duration", elapsed)
	}

	if r.hooks.OnToolReturn != nil {
		r.hooks.OnToolReturn(ctx, &domain.ToolEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventToolReturn},
			CallID:    call.ID,
			ToolName:  call.Name,
			Input:     args,
			Output:    res.Result,
			IsError:   res.IsError,
			Kind:      res.Kind,
			Duration:  elapsed,
		})
	}
	return res
}

func (r *Registry) execute(ctx context.Context, def Definition, args map[string]any) (any, error) {
	normalized, err := Validate(def, args)
	if err != nil {
		return nil, err
	}
	return def.Fn(ctx, normalized)
}

func (r *Registry) refresh(ctx context.Context, log *slog.Logger, def Definition) {
	if def.Refreshes == "" || r.refresher == nil {
		return
	}
	if err := r.refresher.Refresh(ctx, def.Refreshes); err != nil {
		log.Warn("refresh after tool call failed", "collection", def.Refreshes, "error", err)
	}
}

// Validate applies the id check and the schema of def to args.
// A missing, non-integer or non-positive id is reported as invalid_id before the schema runs.
func Validate(def Definition, args map[string]any) (map[string]any, error) {
	if def.RequiresID {
		if _, ok := ParseID(args[domain.KeyID]); !ok {
			return nil, &domain.Error{
				Kind:   domain.KindInvalidID,
				Op:     def.Name,
				Fields: []string{domain.KeyID},
				Err:    fmt.Errorf("id must be a positive integer, got %v", args[domain.KeyID]),
			}
		}
	}

	normalized, err := def.Schema.Validate(args)
	if err != nil {
		return nil, &domain.Error{
			Kind:   domain.KindValidation,
			Op:     def.Name,
			Fields: schema.Fields(err),
			Err:    err,
		}
	}
	return normalized, nil
}

// ParseID returns v as a positive integer id.
func ParseID(v any) (int64, bool) {
	id, ok := schema.AsInt(v)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeArgs(call domain.ToolCall) (map[string]any, error) {
	if call.Args != nil || call.RawArgs == "" {
		return call.Args, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(call.RawArgs), &args); err != nil {
		return nil, domain.NewError(domain.KindValidation, call.Name, fmt.Errorf("arguments are not a JSON object: %w", err))
	}
	return args, nil
}
