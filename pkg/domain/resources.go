package domain

import "encoding/json"

// Tension vectors accepted by the backend.
var TensionVectors = []string{
	"unknown", "action", "message", "meeting", "focus_block",
	"decision", "research", "delegate", "drop",
}

// Tension statuses accepted by the backend. Only held and forming count as active.
var TensionStatuses = []string{"held", "forming", "released", "parked", "dropped"}

// Baseline field modes accepted by the backend.
var BaselineModes = []string{"any", "focus", "admin", "reflect"}

// Tension is a backend-owned tension row.
type Tension struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Charge int    `json:"charge"`
	Vector string `json:"vector"`
}

// CreateTensionRequest is the body of POST /tensions.
type CreateTensionRequest struct {
	Title  string  `json:"title" mapstructure:"title"`
	Note   *string `json:"note,omitempty" mapstructure:"note"`
	Charge int     `json:"charge" mapstructure:"charge"`
	Vector string  `json:"vector" mapstructure:"vector"`
	Status string  `json:"status" mapstructure:"status"`
}

// UpdateTensionRequest is the body of PATCH /tensions/{id}. Nil fields are left unchanged.
type UpdateTensionRequest struct {
	Charge *int    `json:"charge,omitempty" mapstructure:"charge"`
	Vector *string `json:"vector,omitempty" mapstructure:"vector"`
	Status *string `json:"status,omitempty" mapstructure:"status"`
}

// BaselineField is a backend-owned baseline field row.
type BaselineField struct {
	ID                 int64          `json:"id"`
	UserID             *string        `json:"user_id"`
	Name               string         `json:"name"`
	Description        *string        `json:"description"`
	Mode               string         `json:"mode"`
	MinQuotaMinPerWeek int            `json:"min_quota_min_per_week"`
	MaxQuotaMinPerWeek int            `json:"max_quota_min_per_week"`
	PreferredWindows   map[string]any `json:"preferred_windows"`
	IsActive           bool           `json:"is_active"`
}

// CreateBaselineFieldRequest is the body of POST /baseline-fields.
type CreateBaselineFieldRequest struct {
	Name               string         `json:"name" mapstructure:"name"`
	Description        *string        `json:"description,omitempty" mapstructure:"description"`
	Mode               string         `json:"mode,omitempty" mapstructure:"mode"`
	MinQuotaMinPerWeek int            `json:"min_quota_min_per_week" mapstructure:"min_quota_min_per_week"`
	MaxQuotaMinPerWeek int            `json:"max_quota_min_per_week" mapstructure:"max_quota_min_per_week"`
	PreferredWindows   map[string]any `json:"preferred_windows,omitempty" mapstructure:"preferred_windows"`
	IsActive           *bool          `json:"is_active,omitempty" mapstructure:"is_active"`
	UserID             *string        `json:"user_id,omitempty" mapstructure:"user_id"`
}

// UpdateBaselineFieldRequest is the body of PATCH /baseline-fields/{id}. Nil fields are left unchanged.
type UpdateBaselineFieldRequest struct {
	Name               *string        `json:"name,omitempty" mapstructure:"name"`
	Description        *string        `json:"description,omitempty" mapstructure:"description"`
	Mode               *string        `json:"mode,omitempty" mapstructure:"mode"`
	MinQuotaMinPerWeek *int           `json:"min_quota_min_per_week,omitempty" mapstructure:"min_quota_min_per_week"`
	MaxQuotaMinPerWeek *int           `json:"max_quota_min_per_week,omitempty" mapstructure:"max_quota_min_per_week"`
	PreferredWindows   map[string]any `json:"preferred_windows,omitempty" mapstructure:"preferred_windows"`
	IsActive           *bool          `json:"is_active,omitempty" mapstructure:"is_active"`
}

// DeleteResult is the body returned by DELETE /baseline-fields/{id}.
type DeleteResult struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id"`
}

// CalendarStatus reports whether the backend holds a usable calendar grant.
type CalendarStatus struct {
	Connected bool   `json:"connected"`
	Reason    string `json:"reason,omitempty"`
}

// CalendarEvent is a normalized calendar event.
type CalendarEvent struct {
	ID       string `json:"id,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Status   string `json:"status,omitempty"`
	HTMLLink string `json:"htmlLink,omitempty"`
}

// Slot is a free interval suggested by the backend.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FreeSlotsRequest is the body of POST /calendar/free-slots.
type FreeSlotsRequest struct {
	Date        string `json:"date,omitempty" mapstructure:"date"`
	DurationMin int    `json:"duration_min" mapstructure:"duration_min"`
	WorkStart   string `json:"work_start" mapstructure:"work_start"`
	WorkEnd     string `json:"work_end" mapstructure:"work_end"`
	BufferMin   int    `json:"buffer_min" mapstructure:"buffer_min"`
	MaxSlots    int    `json:"max_slots" mapstructure:"max_slots"`
}

// FreeSlots is the response of POST /calendar/free-slots.
type FreeSlots struct {
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
	Slots    []Slot `json:"slots"`
}

// CalendarDay is the response of GET /calendar/day.
type CalendarDay struct {
	Date     string          `json:"date"`
	Timezone string          `json:"timezone"`
	Events   []CalendarEvent `json:"events"`
}

// CreateEventRequest is the body of POST /calendar/create.
type CreateEventRequest struct {
	Date        string `json:"date" mapstructure:"date"`
	StartTime   string `json:"start_time" mapstructure:"start_time"`
	DurationMin int    `json:"duration_min" mapstructure:"duration_min"`
	Title       string `json:"title" mapstructure:"title"`
}

// CreatedEvent is the response of POST /calendar/create.
type CreatedEvent struct {
	Timezone string        `json:"timezone"`
	Event    CalendarEvent `json:"event"`
}

// Health is the response of GET /health. Extra keys are kept verbatim.
type Health struct {
	OK    bool                       `json:"ok"`
	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unknown keys in Extra.
func (h *Health) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if ok, found := raw["ok"]; found {
		if err := json.Unmarshal(ok, &h.OK); err != nil {
			return err
		}
		delete(raw, "ok")
	}
	h.Extra = raw
	return nil
}

// MarshalJSON writes ok alongside the preserved extra keys.
func (h Health) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(h.Extra)+1)
	for k, v := range h.Extra {
		out[k] = v
	}
	ok, err := json.Marshal(h.OK)
	if err != nil {
		return nil, err
	}
	out["ok"] = ok
	return json.Marshal(out)
}
