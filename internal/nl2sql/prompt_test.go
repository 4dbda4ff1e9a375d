package nl2sql

import (
	"strings"
	"testing"
	"time"
)

func TestWorkedExamplesAreExact(t *testing.T) {
	want := []string{
		`SELECT COUNT(*) FROM videos WHERE creator_id = '1' AND video_created_at BETWEEN '2025-11-01' AND '2025-11-05 23:59:59';`,
		`SELECT SUM(t1.delta_views_count) FROM video_snapshots t1 JOIN videos t2 ON t1.video_id = t2.id WHERE t2.creator_id = 'cd87be38b50b4fdd8342bb3c383f3c7d' AND t1.created_at BETWEEN '2025-11-28 10:00:00' AND '2025-11-28 15:00:00';`,
		`SELECT COUNT(*) FROM videos WHERE creator_id = 'aca1061a9d324ecf8c3fa2bb32d7be63' AND views_count > 10000;`,
		`SELECT COUNT(DISTINCT video_id) FROM video_snapshots WHERE DATE(created_at) = '2025-11-27' AND delta_views_count > 0;`,
	}
	if len(HouseStyleV1.Examples) != len(want) {
		t.Fatalf("len(Examples) = %d, want %d", len(HouseStyleV1.Examples), len(want))
	}
	prompt := BuildSystemPrompt(HouseStyleV1, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), 2025)
	for i, sql := range want {
		if HouseStyleV1.Examples[i].SQL != sql {
			t.Fatalf("Examples[%d].SQL = %q, want %q", i, HouseStyleV1.Examples[i].SQL, sql)
		}
		if !strings.Contains(prompt, "`"+sql+"`") {
			t.Fatalf("prompt is missing example %d verbatim", i)
		}
	}
}

func TestHouseStyleNeverCastsIdentifiers(t *testing.T) {
	for _, example := range HouseStyleV1.Examples {
		if strings.Contains(example.SQL, "::") || strings.Contains(strings.ToUpper(example.SQL), "CAST(") {
			t.Fatalf("example %q uses a cast: %s", example.Name, example.SQL)
		}
	}
}

func TestBuildSystemPromptIsDeterministic(t *testing.T) {
	today := time.Date(2025, 11, 30, 18, 45, 0, 0, time.UTC)
	first := BuildSystemPrompt(HouseStyleV1, today, 2025)
	second := BuildSystemPrompt(HouseStyleV1, today, 2025)
	if first != second {
		t.Fatal("BuildSystemPrompt() is not deterministic")
	}
	if !strings.HasSuffix(first, "Today is 2025-11-30. If the year is missing in the user query, assume 2025.\n") {
		t.Fatalf("unexpected context line in prompt tail: %q", first[len(first)-120:])
	}
	if !strings.Contains(first, "CREATE TABLE video_snapshots") {
		t.Fatal("prompt is missing the schema")
	}
	if !strings.Contains(first, "A. **Date ranges and creator id (videos table)**") || !strings.Contains(first, "D. **Daily unique growth**") {
		t.Fatal("prompt is missing lettered examples")
	}
	if !strings.Contains(first, "7. **Unique Counts:**") {
		t.Fatal("prompt is missing numbered rules")
	}
}

func TestBuildSystemPromptUsesReferenceYear(t *testing.T) {
	prompt := BuildSystemPrompt(HouseStyleV1, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), 2026)
	if !strings.Contains(prompt, "Today is 2026-01-02. If the year is missing in the user query, assume 2026.") {
		t.Fatal("prompt does not carry the reference year")
	}
}
