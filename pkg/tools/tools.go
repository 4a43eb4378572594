// Package tools declares the HELIX tool catalogue: calendar, tensions and baseline fields.
//
// Calendar and tension tools use the declarative schema builder; baseline field tools
// are described by raw JSON Schema documents. Both reduce to schema.Schema, so the
// registry validates every call the same way.
package tools

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/registry"
)

// Backend is the part of the backend client the tools call.
type Backend interface {
	FreeSlots(ctx context.Context, req domain.FreeSlotsRequest) (domain.FreeSlots, error)
	CalendarDay(ctx context.Context, date string) (domain.CalendarDay, error)
	CreateEvent(ctx context.Context, req domain.CreateEventRequest) (domain.CreatedEvent, error)

	CreateTension(ctx context.Context, req domain.CreateTensionRequest) (domain.Tension, error)
	ActiveTensions(ctx context.Context, limit int) ([]domain.Tension, error)
	UpdateTension(ctx context.Context, id int64, req domain.UpdateTensionRequest) (domain.Tension, error)

	BaselineFields(ctx context.Context, limit int, includeInactive bool) ([]domain.BaselineField, error)
	CreateBaselineField(ctx context.Context, req domain.CreateBaselineFieldRequest) (domain.BaselineField, error)
	UpdateBaselineField(ctx context.Context, id int64, req domain.UpdateBaselineFieldRequest) (domain.BaselineField, error)
	DeleteBaselineField(ctx context.Context, id int64) (domain.DeleteResult, error)
}

// Definitions returns the ten tool definitions bound to b, in catalogue order.
func Definitions(b Backend) []registry.Definition {
	defs := calendarTools(b)
	defs = append(defs, tensionTools(b)...)
	defs = append(defs, baselineTools(b)...)
	return defs
}

// Build creates the session catalogue: every tool bound to b, refreshing through ref.
// It is called once per connect so the tools close over the current collaborators.
func Build(b Backend, ref registry.Refresher, opts ...registry.Option) (*registry.Registry, error) {
	opts = append([]registry.Option{registry.WithRefresher(ref)}, opts...)
	reg := registry.NewRegistry(opts...)
	for _, def := range Definitions(b) {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("build catalogue: %w", err)
		}
	}
	return reg, nil
}

// decode copies normalized arguments into a typed request.
func decode(op string, args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return domain.NewError(domain.KindExecutor, op, err)
	}
	if err := dec.Decode(args); err != nil {
		return domain.NewError(domain.KindValidation, op, err)
	}
	return nil
}

// id reads the validated id argument.
func id(args map[string]any) int64 {
	n, _ := registry.ParseID(args[domain.KeyID])
	return n
}

func intArg(args map[string]any, key string) int {
	n, _ := args[key].(int64)
	return int(n)
}
