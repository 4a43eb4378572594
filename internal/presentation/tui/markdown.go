package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/helix/pkg/domain"
)

// SnapshotMarkdown renders a cached collection as a markdown document.
func SnapshotMarkdown(snap domain.Snapshot) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(snap.Collection))
	fmt.Fprintf(&b, "_%d row(s), fetched %s_\n\n", snap.Count, snap.FetchedAt.Format(time.RFC3339))

	switch snap.Collection {
	case domain.CollectionTensions:
		var rows []domain.Tension
		if err := json.Unmarshal(snap.Rows, &rows); err != nil {
			return "", fmt.Errorf("decode %s: %w", snap.Collection, err)
		}
		if len(rows) == 0 {
			b.WriteString("Nothing held right now.\n")
			break
		}
		b.WriteString("| ID | Title | Charge | Vector | Status |\n|---|---|---|---|---|\n")
		for _, t := range rows {
			fmt.Fprintf(&b, "| %d | %s | %d | %s | %s |\n", t.ID, cell(t.Title), t.Charge, t.Vector, t.Status)
		}
	case domain.CollectionBaselineFields:
		var rows []domain.BaselineField
		if err := json.Unmarshal(snap.Rows, &rows); err != nil {
			return "", fmt.Errorf("decode %s: %w", snap.Collection, err)
		}
		if len(rows) == 0 {
			b.WriteString("No baseline fields.\n")
			break
		}
		b.WriteString("| ID | Name | Mode | Min/week | Max/week | Active |\n|---|---|---|---|---|---|\n")
		for _, f := range rows {
			fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %t |\n",
				f.ID, cell(f.Name), f.Mode, f.MinQuotaMinPerWeek, f.MaxQuotaMinPerWeek, f.IsActive)
		}
	case domain.CollectionCalendarStatus:
		var st domain.CalendarStatus
		if err := json.Unmarshal(snap.Rows, &st); err != nil {
			return "", fmt.Errorf("decode %s: %w", snap.Collection, err)
		}
		if st.Connected {
			b.WriteString("Calendar is **connected**.\n")
		} else {
			fmt.Fprintf(&b, "Calendar is **not connected**")
			if st.Reason != "" {
				fmt.Fprintf(&b, ": %s", st.Reason)
			}
			b.WriteString(".\n")
		}
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownCollection, snap.Collection)
	}
	return b.String(), nil
}

func title(c domain.Collection) string {
	s := strings.ReplaceAll(string(c), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
