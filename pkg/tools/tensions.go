package tools

import (
	"context"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/registry"
	"github.com/aretw0/helix/pkg/schema"
)

func tensionTools(b Backend) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "tensions_create",
			Description: "Record a new tension: something on the user's mind that wants attention.",
			Schema: schema.Declare(
				schema.Key("title", schema.String()).Required().Length(1, 500).Describe("Short title of the tension."),
				schema.Key("note", schema.String()).MaxLen(5000).Describe("Optional free-text note."),
				schema.Key("charge", schema.Int()).Range(0, 5).Default(3).Describe("Emotional charge from 0 (none) to 5 (urgent)."),
				schema.Key("vector", schema.String()).OneOf(domain.TensionVectors...).Default("unknown").Describe("Kind of move the tension calls for."),
				schema.Key("status", schema.String()).OneOf(domain.TensionStatuses...).Default("held").Describe("Lifecycle status."),
			),
			Refreshes: domain.CollectionTensions,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.CreateTensionRequest
				if err := decode("tensions_create", args, &req); err != nil {
					return nil, err
				}
				return b.CreateTension(ctx, req)
			},
		},
		{
			Name:        "tensions_list_active",
			Description: "List active tensions (held or forming), highest charge first.",
			Schema: schema.Declare(
				schema.Key("limit", schema.Int()).Range(1, 200).Default(50).Describe("Maximum number of tensions to return."),
			),
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				return b.ActiveTensions(ctx, intArg(args, domain.KeyLimit))
			},
		},
		{
			Name:        "tensions_update",
			Description: "Change the charge, vector or status of an existing tension by id.",
			Schema: schema.Declare(
				schema.Key("id", schema.Int()).Required().Min(1).Describe("Tension id."),
				schema.Key("charge", schema.Int()).Range(0, 5),
				schema.Key("vector", schema.String()).OneOf(domain.TensionVectors...),
				schema.Key("status", schema.String()).OneOf(domain.TensionStatuses...),
			).RequireAny("charge", "vector", "status"),
			RequiresID: true,
			Refreshes:  domain.CollectionTensions,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.UpdateTensionRequest
				if err := decode("tensions_update", args, &req); err != nil {
					return nil, err
				}
				return b.UpdateTension(ctx, id(args), req)
			},
		},
	}
}
