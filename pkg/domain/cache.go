package domain

import (
	"encoding/json"
	"time"
)

// Snapshot is the cached content of one collection, replaced wholesale on every refresh.
type Snapshot struct {
	Collection Collection      `json:"collection"`
	Rows       json.RawMessage `json:"rows"`
	Count      int             `json:"count"`
	FetchedAt  time.Time       `json:"fetched_at"`
}

// Clone returns a copy that shares no memory with s.
func (s Snapshot) Clone() Snapshot {
	s.Rows = append(json.RawMessage(nil), s.Rows...)
	return s
}
