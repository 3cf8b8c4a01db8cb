package alert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "alerts.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewEngine(store, nil)
}

func postsOfType(typ classifier.IncidentType, n int) []classifier.ClassifiedPost {
	posts := make([]classifier.ClassifiedPost, n)
	for i := range posts {
		posts[i] = classifier.ClassifiedPost{IncidentType: typ}
	}
	return posts
}

func TestEvaluateThresholdIsStrict(t *testing.T) {
	e := testEngine(t)

	// Exactly at the threshold: no alert.
	created, err := e.Evaluate(postsOfType(classifier.IncidentRansomware, 8))
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("8 ransomware posts (threshold 8) produced %d alerts, want 0", len(created))
	}

	// One past the threshold: exactly one alert.
	created, err = e.Evaluate(postsOfType(classifier.IncidentRansomware, 9))
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("9 ransomware posts produced %d alerts, want 1", len(created))
	}

	a := created[0]
	if a.Type != "ransomware" {
		t.Errorf("Type = %q", a.Type)
	}
	if a.Count != 9 || a.Threshold != 8 {
		t.Errorf("Count/Threshold = %d/%d, want 9/8", a.Count, a.Threshold)
	}
	if a.Severity != SevCritical {
		t.Errorf("Severity = %q, want CRITICAL (count 9 > 5)", a.Severity)
	}
	if a.Status != StatusActive || a.Read {
		t.Errorf("new alert status/read = %q/%v", a.Status, a.Read)
	}
	if !strings.Contains(a.Message, "9 RANSOMWARE") || !strings.Contains(a.Message, "8") {
		t.Errorf("Message = %q", a.Message)
	}
}

func TestEvaluateSeverityTable(t *testing.T) {
	tests := []struct {
		name string
		typ  classifier.IncidentType
		n    int
		want Severity
	}{
		{"zero-day just over threshold", classifier.IncidentZeroDay, 4, SevHigh},
		{"zero-day high band", classifier.IncidentZeroDay, 5, SevHigh},
		{"zero-day critical", classifier.IncidentZeroDay, 6, SevCritical},
		{"apt high band", classifier.IncidentAPT, 5, SevHigh},
		{"malware high band", classifier.IncidentMalware, 11, SevHigh},
		{"malware critical", classifier.IncidentMalware, 16, SevCritical},
		{"phishing medium", classifier.IncidentPhishing, 6, SevMedium},
		{"general high", classifier.IncidentGeneral, 21, SevHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := testEngine(t)
			created, err := e.Evaluate(postsOfType(tt.typ, tt.n))
			if err != nil {
				t.Fatal(err)
			}
			if len(created) != 1 {
				t.Fatalf("got %d alerts, want 1", len(created))
			}
			if created[0].Severity != tt.want {
				t.Errorf("severity for %d %s = %q, want %q", tt.n, tt.typ, created[0].Severity, tt.want)
			}
		})
	}
}

func TestEvaluateDefaultThreshold(t *testing.T) {
	e := testEngine(t)

	created, err := e.Evaluate(postsOfType(classifier.IncidentGeneral, 20))
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 0 {
		t.Fatalf("20 general posts (default threshold 20) produced %d alerts", len(created))
	}

	created, err = e.Evaluate(postsOfType(classifier.IncidentGeneral, 21))
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 || created[0].Threshold != 20 {
		t.Fatalf("21 general posts: created = %+v", created)
	}
}

func TestEvaluateMixedBatch(t *testing.T) {
	e := testEngine(t)

	batch := append(postsOfType(classifier.IncidentZeroDay, 4),
		postsOfType(classifier.IncidentPhishing, 6)...)
	batch = append(batch, postsOfType(classifier.IncidentMalware, 2)...)

	created, err := e.Evaluate(batch)
	if err != nil {
		t.Fatal(err)
	}
	// zero-day (4 > 3) and phishing (6 > 5) fire; malware (2 <= 10) does not.
	if len(created) != 2 {
		t.Fatalf("got %d alerts, want 2", len(created))
	}
	if created[0].Type != "zero-day" || created[1].Type != "phishing" {
		t.Errorf("types = %s, %s", created[0].Type, created[1].Type)
	}
}

func TestEvaluateIDsIncreaseAcrossCalls(t *testing.T) {
	e := testEngine(t)

	first, err := e.Evaluate(postsOfType(classifier.IncidentZeroDay, 4))
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Evaluate(append(
		postsOfType(classifier.IncidentZeroDay, 4),
		postsOfType(classifier.IncidentPhishing, 6)...))
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("alert counts = %d, %d", len(first), len(second))
	}
	if first[0].ID != 1 || second[0].ID != 2 || second[1].ID != 3 {
		t.Errorf("ids = %d, %d, %d; want 1, 2, 3",
			first[0].ID, second[0].ID, second[1].ID)
	}
}

func TestEvaluateCountsOnlyPersistedAlerts(t *testing.T) {
	// A directory at the store path makes persistence fail.
	path := filepath.Join(t.TempDir(), "alerts.json")
	if err := os.Mkdir(path, 0o750); err != nil {
		t.Fatal(err)
	}
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	e := NewEngine(store, m)

	if _, err := e.Evaluate(postsOfType(classifier.IncidentZeroDay, 4)); err == nil {
		t.Fatal("expected error when the store cannot be written")
	}
	if got := testutil.ToFloat64(m.AlertsTotal.WithLabelValues("HIGH")); got != 0 {
		t.Errorf("alerts counter = %v after failed persistence, want 0", got)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(postsOfType(classifier.IncidentZeroDay, 4)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.AlertsTotal.WithLabelValues("HIGH")); got != 1 {
		t.Errorf("alerts counter = %v, want 1", got)
	}
}

func TestEvaluateEmptyBatch(t *testing.T) {
	e := testEngine(t)

	created, err := e.Evaluate(nil)
	if err != nil {
		t.Fatal(err)
	}
	if created != nil {
		t.Errorf("empty batch produced %v", created)
	}
}
