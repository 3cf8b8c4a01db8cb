package alert

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/metrics"
)

// thresholds is the per-category alert threshold table. An alert fires when
// a batch contains strictly more posts of a category than its threshold.
var thresholds = map[classifier.IncidentType]int{
	classifier.IncidentMalware:       10,
	classifier.IncidentPhishing:      5,
	classifier.IncidentRansomware:    8,
	classifier.IncidentDataBreach:    7,
	classifier.IncidentExploit:       6,
	classifier.IncidentZeroDay:       3,
	classifier.IncidentAPT:           4,
	classifier.IncidentVulnerability: 15,
}

// defaultThreshold applies to categories without an entry, including general.
const defaultThreshold = 20

// Engine evaluates batches of classified posts against the threshold table
// and records triggered alerts in the store.
type Engine struct {
	store   *Store
	metrics *metrics.Metrics
}

// NewEngine creates an Engine writing to the given store. metrics may be nil.
func NewEngine(store *Store, m *metrics.Metrics) *Engine {
	return &Engine{store: store, metrics: m}
}

// Evaluate counts the batch by incident type, creates an alert for every
// category whose count exceeds its threshold, and persists the new alerts
// immediately. Counting is scoped to the given batch: there is no historical
// window, so callers control the cadence by what they pass in.
//
// Returns only the newly created alerts.
func (e *Engine) Evaluate(posts []classifier.ClassifiedPost) ([]*Alert, error) {
	counts := make(map[classifier.IncidentType]int)
	var order []classifier.IncidentType
	for _, p := range posts {
		if counts[p.IncidentType] == 0 {
			order = append(order, p.IncidentType)
		}
		counts[p.IncidentType]++
	}

	now := time.Now()
	var created []*Alert

	for _, typ := range order {
		count := counts[typ]
		threshold, ok := thresholds[typ]
		if !ok {
			threshold = defaultThreshold
		}
		if count <= threshold {
			continue
		}

		a := &Alert{
			Timestamp: now,
			Severity:  severityFor(typ, count),
			Type:      string(typ),
			Message: fmt.Sprintf("ALERT: %d %s incidents detected (threshold: %d)",
				count, strings.ToUpper(string(typ)), threshold),
			Count:     count,
			Threshold: threshold,
			Status:    StatusActive,
		}
		created = append(created, a)

		slog.Warn("alert triggered",
			"type", a.Type,
			"severity", a.Severity,
			"count", a.Count,
			"threshold", a.Threshold,
		)
	}

	if len(created) == 0 {
		return nil, nil
	}

	if err := e.store.Append(created); err != nil {
		return nil, fmt.Errorf("persisting alerts: %w", err)
	}
	// Count only alerts that actually made it into the store.
	if e.metrics != nil {
		for _, a := range created {
			e.metrics.AlertsTotal.WithLabelValues(string(a.Severity)).Inc()
		}
	}
	return created, nil
}

// severityFor ranks a triggered alert. High-impact categories escalate at
// lower counts than volume-driven ones.
func severityFor(typ classifier.IncidentType, count int) Severity {
	switch typ {
	case classifier.IncidentRansomware, classifier.IncidentDataBreach,
		classifier.IncidentZeroDay, classifier.IncidentAPT:
		switch {
		case count > 5:
			return SevCritical
		case count > 3:
			return SevHigh
		default:
			return SevMedium
		}
	case classifier.IncidentMalware, classifier.IncidentExploit:
		switch {
		case count > 15:
			return SevCritical
		case count > 10:
			return SevHigh
		default:
			return SevMedium
		}
	default:
		if count > 20 {
			return SevHigh
		}
		return SevMedium
	}
}
