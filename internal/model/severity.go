package model

import (
	"fmt"
	"strings"
)

// Severity is the escalation tier of an emergency case.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityCritical Severity = "CRITICAL"
)

// severityAliases maps the legacy color names still sent by older clients.
var severityAliases = map[string]Severity{
	"GREEN":  SeverityLow,
	"YELLOW": SeverityMedium,
	"RED":    SeverityCritical,
}

// ParseSeverity accepts canonical names (LOW, MEDIUM, CRITICAL) and the
// color aliases (GREEN, YELLOW, RED), case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch Severity(upper) {
	case SeverityLow, SeverityMedium, SeverityCritical:
		return Severity(upper), nil
	}
	if sev, ok := severityAliases[upper]; ok {
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityCritical:
		return true
	}
	return false
}
