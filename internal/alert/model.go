// Package alert implements threshold-based alert evaluation and alert
// lifecycle storage.
package alert

import "time"

// Severity ranks how urgent an alert is. Alert severities start at MEDIUM;
// a category that barely crosses its threshold is still worth an alert.
type Severity string

const (
	SevMedium   Severity = "MEDIUM"
	SevHigh     Severity = "HIGH"
	SevCritical Severity = "CRITICAL"
)

// Status tracks where an alert is in its lifecycle. The only transition is
// active to dismissed, one-way.
type Status string

const (
	StatusActive    Status = "active"
	StatusDismissed Status = "dismissed"
)

// Alert is a threshold-breach record. IDs are unique and strictly increasing
// in creation order, assigned by the Store. Alerts are never deleted; the
// only mutations are marking read and dismissing.
type Alert struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Status    Status    `json:"status"`
	Read      bool      `json:"read"`
}
