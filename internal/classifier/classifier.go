// Package classifier maps post titles to severity levels and incident
// categories using keyword substring matching.
//
// Matching is deliberately case-insensitive substring containment, not
// tokenized: a title containing "breached" matches the "breach" keyword.
package classifier

import (
	"strings"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/feed"
)

// Severity ranks how urgent a post is.
type Severity string

const (
	SevLow    Severity = "LOW"
	SevMedium Severity = "MEDIUM"
	SevHigh   Severity = "HIGH"
)

// IncidentType categorizes a post by the kind of incident it describes.
type IncidentType string

const (
	IncidentMalware       IncidentType = "malware"
	IncidentPhishing      IncidentType = "phishing"
	IncidentRansomware    IncidentType = "ransomware"
	IncidentDataBreach    IncidentType = "data_breach"
	IncidentExploit       IncidentType = "exploit"
	IncidentZeroDay       IncidentType = "zero-day"
	IncidentAPT           IncidentType = "apt"
	IncidentVulnerability IncidentType = "vulnerability"

	// IncidentGeneral is the fallback when no category keyword matches.
	IncidentGeneral IncidentType = "general"
)

// ClassifiedPost is a feed post annotated with classification results.
// Created once per cycle per matching post and never mutated.
type ClassifiedPost struct {
	feed.Post

	MatchedKeywords []string     `json:"keywords"`
	Severity        Severity     `json:"severity"`
	IncidentType    IncidentType `json:"incident_type"`
}

// Classifier matches post titles against the static keyword tables.
// It is pure: safe for concurrent use, no state, no error conditions.
type Classifier struct{}

// New creates a Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify annotates a post with matched keywords, severity, and incident
// type. The second return value is false if the title matches none of the
// scan vocabulary, in which case the post should be ignored.
func (c *Classifier) Classify(p feed.Post) (ClassifiedPost, bool) {
	matched := c.MatchKeywords(p.Title)
	if len(matched) == 0 {
		return ClassifiedPost{}, false
	}
	return ClassifiedPost{
		Post:            p,
		MatchedKeywords: matched,
		Severity:        c.ClassifySeverity(p.Title),
		IncidentType:    c.ClassifyIncident(p.Title),
	}, true
}

// MatchKeywords returns the scan-vocabulary keywords found in the title,
// in vocabulary order.
func (c *Classifier) MatchKeywords(title string) []string {
	lower := strings.ToLower(title)
	var matched []string
	for _, kw := range scanKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// ClassifySeverity returns HIGH if any high-severity keyword is present,
// then MEDIUM for any medium-severity keyword, defaulting to LOW.
func (c *Classifier) ClassifySeverity(title string) Severity {
	lower := strings.ToLower(title)

	for _, kw := range highSeverityKeywords {
		if strings.Contains(lower, kw) {
			return SevHigh
		}
	}
	for _, kw := range mediumSeverityKeywords {
		if strings.Contains(lower, kw) {
			return SevMedium
		}
	}
	return SevLow
}

// ClassifyIncident returns the first incident category (in rule order) with
// a keyword present in the title, or IncidentGeneral if none match.
func (c *Classifier) ClassifyIncident(title string) IncidentType {
	lower := strings.ToLower(title)

	for _, rule := range incidentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.incidentType
			}
		}
	}
	return IncidentGeneral
}
