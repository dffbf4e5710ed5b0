package escalation

import (
	"sort"
	"time"

	"github.com/edvin/ern/internal/model"
	"github.com/edvin/ern/internal/platform"
)

func newLogEntry(caseID string, action model.LogAction, details, performedBy string, at time.Time) *model.EscalationLogEntry {
	return &model.EscalationLogEntry{
		ID:          platform.NewID(),
		CaseID:      caseID,
		Action:      action,
		Details:     details,
		PerformedBy: performedBy,
		Timestamp:   at,
	}
}

// SortLog orders entries by (timestamp, seq) ascending, the total order used
// for audit replay.
func SortLog(entries []model.EscalationLogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].Seq < entries[j].Seq
	})
}
