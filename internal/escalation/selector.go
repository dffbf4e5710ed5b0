package escalation

import (
	"sort"

	"github.com/edvin/ern/internal/model"
)

// Notification caps per severity. Zero means no cap.
var severityCaps = map[model.Severity]int{
	model.SeverityLow:      1,
	model.SeverityMedium:   2,
	model.SeverityCritical: 0,
}

// SelectResponders returns the responders to notify for a severity: all of
// them for CRITICAL, the top two for MEDIUM, the top one for LOW.
//
// network is expected to hold only active entries already sorted by
// priority. Inactive entries are dropped and the order is re-established
// with a stable sort so equal priorities keep their input order either way.
// The input slice is never modified.
func SelectResponders(severity model.Severity, network []model.ResponderNetworkEntry) []model.ResponderNetworkEntry {
	active := make([]model.ResponderNetworkEntry, 0, len(network))
	for _, e := range network {
		if e.IsActive {
			active = append(active, e)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})

	limit := severityCaps[severity]
	if limit > 0 && len(active) > limit {
		active = active[:limit]
	}
	return active
}
