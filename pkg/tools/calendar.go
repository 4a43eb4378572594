package tools

import (
	"context"

	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/registry"
	"github.com/aretw0/helix/pkg/schema"
)

const (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	timePattern = `^([01]\d|2[0-3]):[0-5]\d$`
)

func calendarTools(b Backend) []registry.Definition {
	return []registry.Definition{
		{
			Name:        "calendar_free_slots",
			Description: "Find free time slots in the user's calendar for a given day. Use before proposing or booking a time.",
			Schema: schema.Declare(
				schema.Key("date", schema.String()).Match(datePattern).Describe("Day to search, YYYY-MM-DD. Defaults to today."),
				schema.Key("duration_min", schema.Int()).Range(5, 480).Default(30).Describe("Length of the wanted slot in minutes."),
				schema.Key("work_start", schema.String()).Match(timePattern).Default("09:00").Describe("Start of the working day, HH:MM."),
				schema.Key("work_end", schema.String()).Match(timePattern).Default("18:00").Describe("End of the working day, HH:MM."),
				schema.Key("buffer_min", schema.Int()).Range(0, 120).Default(10).Describe("Gap kept around existing events, in minutes."),
				schema.Key("max_slots", schema.Int()).Range(1, 10).Default(3).Describe("Maximum number of slots to return."),
			),
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.FreeSlotsRequest
				if err := decode("calendar_free_slots", args, &req); err != nil {
					return nil, err
				}
				return b.FreeSlots(ctx, req)
			},
		},
		{
			Name:        "calendar_day",
			Description: "List the events of one calendar day.",
			Schema: schema.Declare(
				schema.Key("date", schema.String()).Match(datePattern).Describe("Day to list, YYYY-MM-DD. Defaults to today."),
			),
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				date, _ := args["date"].(string)
				return b.CalendarDay(ctx, date)
			},
		},
		{
			Name:        "calendar_create_event",
			Description: "Create a calendar event. Only call after the user confirmed the date, time and title.",
			Schema: schema.Declare(
				schema.Key("date", schema.String()).Required().Match(datePattern).Describe("Day of the event, YYYY-MM-DD."),
				schema.Key("start_time", schema.String()).Required().Match(timePattern).Describe("Start time, HH:MM in the user's timezone."),
				schema.Key("duration_min", schema.Int()).Required().Range(1, 480).Describe("Duration in minutes."),
				schema.Key("title", schema.String()).Required().Length(1, 500).Describe("Event title."),
			),
			Fn: func(ctx context.Context, args map[string]any) (any, error) {
				var req domain.CreateEventRequest
				if err := decode("calendar_create_event", args, &req); err != nil {
					return nil, err
				}
				return b.CreateEvent(ctx, req)
			},
		},
	}
}
