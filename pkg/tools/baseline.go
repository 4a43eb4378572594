package tools

import (
	"context"
	"fmt"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/registry"
	"github.com/aretw0/helix/pkg/schema"
)

const baselineListSchema = `{
  "type": "object",
  "properties": {
    "limit": {"type": "integer", "minimum": 1, "maximum": 500, "default": 200,
      "description": "Maximum number of fields to return."},
    "include_inactive": {"type": "boolean", "default": false,
      "description": "Also return deactivated fields."}
  },
  "additionalProperties": false
}`

const baselineCreateSchema = `{
  "type": "object",
  "properties": {
    "name": {"type": "string", "minLength": 1, "maxLength": 300, "description": "Name of the life area."},
    "description": {"type": "string", "maxLength": 3000},
    "mode": {"type": "string", "enum": ["any", "focus", "admin", "reflect"], "default": "any",
      "description": "Kind of attention the area needs."},
    "min_quota_min_per_week": {"type": "integer", "minimum": 0, "default": 0,
      "description": "Minimum minutes per week."},
    "max_quota_min_per_week": {"type": "integer", "minimum": 0, "default": 0,
      "description": "Maximum minutes per week, not below the minimum."},
    "preferred_windows": {"type": "object",
      "description": "Preferred time windows keyed by weekday, e.g. {\"mon\": [\"09:00-12:00\"]}."},
    "is_active": {"type": "boolean", "default": true},
    "user_id": {"type": "string", "maxLength": 255}
  },
  "required": ["name"],
  "additionalProperties": false
}`

const baselineUpdateSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "integer", "minimum": 1, "description": "Baseline field id."},
    "name": {"type": "string", "minLength": 1, "maxLength": 300},
    "description": {"type": "string", "maxLength": 3000},
    "mode": {"type": "string", "enum": ["any", "focus", "admin", "reflect"]},
    "min_quota_min_per_week": {"type": "integer", "minimum": 0},
    "max_quota_min_per_week": {"type": "integer", "minimum": 0},
    "preferred_windows": {"type": "object"},
    "is_active": {"type": "boolean"}
  },
  "required": ["id"],
  "additionalProperties": false,
  "x-require-any": ["name", "description", "mode", "min_quota_min_per_week",
    "max_quota_min_per_week", "preferred_windows", "is_active"]
}`

const baselineDeleteSchema = `{
  "type": "object",
  "properties": {
    "id": {"type": "integer", "minimum": 1, "description": "Baseline field id."}
  },
  "required": ["id"],
  "additionalProperties": false
}`

func baselineTools(b Backend) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "baseline_fields_list",
			Description: "List the user's baseline fields: recurring life areas with weekly time quotas.",
			Schema:      schema.MustFromJSON(baselineListSchema),
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				inactive, _ := args["include_inactive"].(bool)
				return b.BaselineFields(ctx, intArg(args, domain.KeyLimit), inactive)
			},
		},
		{
			Name:        "baseline_fields_create",
			Description: "Create a baseline field.",
			Schema:      schema.MustFromJSON(baselineCreateSchema),
			Refreshes:   domain.CollectionBaselineFields,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.CreateBaselineFieldRequest
				if err := decode("baseline_fields_create", args, &req); err != nil {
					return nil, err
				}
				if req.MaxQuotaMinPerWeek < req.MinQuotaMinPerWeek {
					return nil, quotaError("baseline_fields_create", req.MinQuotaMinPerWeek, req.MaxQuotaMinPerWeek)
				}
				return b.CreateBaselineField(ctx, req)
			},
		},
		{
			Name:        "baseline_fields_update",
			Description: "Change an existing baseline field by id. Only the given fields change.",
			Schema:      schema.MustFromJSON(baselineUpdateSchema),
			RequiresID:  true,
			Refreshes:   domain.CollectionBaselineFields,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.UpdateBaselineFieldRequest
				if err := decode("baseline_fields_update", args, &req); err != nil {
					return nil, err
				}
				if req.MinQuotaMinPerWeek != nil && req.MaxQuotaMinPerWeek != nil &&
					*req.MaxQuotaMinPerWeek < *req.MinQuotaMinPerWeek {
					return nil, quotaError("baseline_fields_update", *req.MinQuotaMinPerWeek, *req.MaxQuotaMinPerWeek)
				}
				return b.UpdateBaselineField(ctx, id(args), req)
			},
		},
		{
			Name:        "baseline_fields_delete",
			Description: "Delete a baseline field by id.",
			Schema:      schema.MustFromJSON(baselineDeleteSchema),
			RequiresID:  true,
			Refreshes:   domain.CollectionBaselineFields,
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				return b.DeleteBaselineField(ctx, id(args))
			},
		},
	}
}

func quotaError(op string, lo, hi int) error {
	return &domain.Error{
		Kind:   domain.KindValidation,
		Op:     op,
		Fields: []string{"min_quota_min_per_week", "max_quota_min_per_week"},
		Err:    fmt.Errorf("max quota %d is below min quota %d", hi, lo),
	}
}
