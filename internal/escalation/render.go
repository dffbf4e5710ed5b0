package escalation

import (
	"strconv"
	"strings"

	"github.com/edvin/ern/internal/model"
)

var urgencyPhrases = map[model.Severity]string{
	model.SeverityLow:      "Pre-use Alert",
	model.SeverityMedium:   "Check-in Alert",
	model.SeverityCritical: "EMERGENCY ALERT",
}

var actionPhrases = map[model.Severity]string{
	model.SeverityLow:      "has activated a pre-use alert and may need support to avoid substance use",
	model.SeverityMedium:   "needs someone to check on them - they may be in distress",
	model.SeverityCritical: "is experiencing a medical emergency and needs immediate help",
}

const (
	locationNotProvided = "Location: Not provided"
	phoneFallback       = "the person"
	capabilityYes       = "✓ You are Narcan trained"
	capabilityNo        = "⚠️ Consider bringing Narcan if available"
	alertFooter         = "This is an automated alert from the LifeSaver ERN emergency response network."
)

// MessageInput holds everything RenderMessage looks at.
type MessageInput struct {
	Severity               model.Severity
	RequesterName          string
	RequesterPhone         string
	Location               *model.Location
	ResponderHasCapability bool
}

// RenderMessage produces the alert text sent to one responder. The output
// depends only on in, so identical inputs give byte-identical text.
func RenderMessage(in MessageInput) string {
	var b strings.Builder

	b.WriteString("🚨 ")
	b.WriteString(urgencyPhrases[in.Severity])
	b.WriteString(" \n\n")

	b.WriteString(in.RequesterName)
	b.WriteString(" ")
	b.WriteString(actionPhrases[in.Severity])
	b.WriteString(".\n\n")

	b.WriteString(renderLocation(in.Location))
	b.WriteString("\n\n")

	if in.ResponderHasCapability {
		b.WriteString(capabilityYes)
	} else {
		b.WriteString(capabilityNo)
	}
	b.WriteString("\n\n")

	b.WriteString(alertFooter)
	b.WriteString("\n\n")

	phone := strings.TrimSpace(in.RequesterPhone)
	if phone == "" {
		phone = phoneFallback
	}
	b.WriteString("Reply RESPOND if you can help, or call ")
	b.WriteString(phone)
	b.WriteString(" directly.")

	return b.String()
}

func renderLocation(loc *model.Location) string {
	if loc == nil {
		return locationNotProvided
	}
	if addr := strings.TrimSpace(loc.Address); addr != "" {
		return "Location: " + addr
	}
	return "Location: " + formatCoordinates(loc.Lat, loc.Lng)
}

func formatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 5, 64) + ", " + strconv.FormatFloat(lng, 'f', 5, 64)
}
