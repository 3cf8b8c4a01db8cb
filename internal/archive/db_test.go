package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/classifier"
	"github.com/AmirthaaSK/ecoverse-cyber-threat-monitoring/internal/feed"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posts.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makePost(id, title string, sev classifier.Severity, typ classifier.IncidentType) classifier.ClassifiedPost {
	return classifier.ClassifiedPost{
		Post: feed.Post{
			ID:    id,
			Title: title,
			URL:   "https://example.com/" + id,
			Score: 5,
		},
		MatchedKeywords: []string{"ransomware"},
		Severity:        sev,
		IncidentType:    typ,
	}
}

func TestInsertAndQuery(t *testing.T) {
	db := testDB(t)

	p := makePost("abc", "LockBit hits hospitals", classifier.SevHigh, classifier.IncidentRansomware)
	if err := db.Insert(p, time.Now()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entries, err := db.Query(QueryFilter{
		Since: time.Now().Add(-1 * time.Hour),
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.ID == "" {
		t.Error("entry should have a generated id")
	}
	if got.Post.ID != "abc" {
		t.Errorf("post id = %q", got.Post.ID)
	}
	if got.Post.Title != "LockBit hits hospitals" {
		t.Errorf("title = %q", got.Post.Title)
	}
	if got.Post.Severity != classifier.SevHigh {
		t.Errorf("severity = %q", got.Post.Severity)
	}
	if got.Post.IncidentType != classifier.IncidentRansomware {
		t.Errorf("incident type = %q", got.Post.IncidentType)
	}
	if len(got.Post.MatchedKeywords) != 1 || got.Post.MatchedKeywords[0] != "ransomware" {
		t.Errorf("keywords = %v", got.Post.MatchedKeywords)
	}
}

func TestQueryFilters(t *testing.T) {
	db := testDB(t)
	now := time.Now()

	posts := []classifier.ClassifiedPost{
		makePost("1", "ransomware a", classifier.SevHigh, classifier.IncidentRansomware),
		makePost("2", "ransomware b", classifier.SevHigh, classifier.IncidentRansomware),
		makePost("3", "phishing kit", classifier.SevMedium, classifier.IncidentPhishing),
	}
	if err := db.InsertBatch(posts, now); err != nil {
		t.Fatal(err)
	}

	entries, err := db.Query(QueryFilter{
		Since:        now.Add(-1 * time.Hour),
		IncidentType: "ransomware",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("type filter: got %d entries, want 2", len(entries))
	}

	entries, err = db.Query(QueryFilter{
		Since:    now.Add(-1 * time.Hour),
		Severity: "MEDIUM",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("severity filter: got %d entries, want 1", len(entries))
	}

	entries, err = db.Query(QueryFilter{
		Since: now.Add(-1 * time.Hour),
		Limit: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("limit: got %d entries, want 2", len(entries))
	}
}

func TestPurge(t *testing.T) {
	db := testDB(t)

	old := makePost("old", "old ransomware post", classifier.SevHigh, classifier.IncidentRansomware)
	fresh := makePost("new", "new ransomware post", classifier.SevHigh, classifier.IncidentRansomware)

	if err := db.Insert(old, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := db.Insert(fresh, time.Now()); err != nil {
		t.Fatal(err)
	}

	purged, err := db.Purge(24 * time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count after purge = %d, want 1", count)
	}
}
