package request

import "github.com/edvin/ern/internal/model"

type Location struct {
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
	Address string   `json:"address" validate:"max=500"`
}

// Model returns the location as stored on a case, or nil when absent.
func (l *Location) Model() *model.Location {
	if l == nil {
		return nil
	}
	return &model.Location{Lat: *l.Lat, Lng: *l.Lng, Address: l.Address}
}

// TriggerEmergency opens a case. Severity accepts LOW, MEDIUM, CRITICAL and
// the legacy GREEN, YELLOW, RED.
type TriggerEmergency struct {
	Severity    string    `json:"severity" validate:"required,severity"`
	Location    *Location `json:"location"`
	Description string    `json:"description" validate:"max=2000"`
	TriggerType string    `json:"triggerType" validate:"omitempty,oneof=manual biometric ai_escalation"`
}

type RecordResponse struct {
	Status string `json:"status" validate:"required,oneof=acknowledged en_route arrived"`
}
