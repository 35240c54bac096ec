package models

import "testing"

func statsWith(scanned int, counts map[Severity]int) ScanStats {
	stats := NewScanStats()
	stats.ScannedFiles = scanned
	for s, c := range counts {
		stats.IssuesBySeverity[s] = c
		stats.TotalIssues += c
	}
	return stats
}

func TestCalculateScore(t *testing.T) {
	tests := []struct {
		name    string
		scanned int
		counts  map[Severity]int
		want    int
	}{
		{"nothing scanned", 0, map[Severity]int{SeverityCritical: 10}, 100},
		{"clean", 3, nil, 100},
		{"one critical one file", 1, map[Severity]int{SeverityCritical: 1}, 75},
		{"mixed", 2, map[Severity]int{SeverityHigh: 1, SeverityMedium: 1, SeverityLow: 2}, 92},
		{"info is free", 1, map[Severity]int{SeverityInfo: 50}, 100},
		{"floored at zero", 1, map[Severity]int{SeverityCritical: 10}, 0},
		{"rounds half up", 2, map[Severity]int{SeverityLow: 1}, 100},
		{"fractional penalty", 4, map[Severity]int{SeverityLow: 1, SeverityMedium: 1}, 99},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateScore(statsWith(tt.scanned, tt.counts))
			if got != tt.want {
				t.Fatalf("expected score %d, got %d", tt.want, got)
			}
		})
	}
}

func TestCalculateScoreMonotonic(t *testing.T) {
	for _, s := range Severities {
		prev := 101
		for n := 0; n < 40; n++ {
			score := CalculateScore(statsWith(3, map[Severity]int{s: n}))
			if score < 0 || score > 100 {
				t.Fatalf("score out of range for %s x%d: %d", s, n, score)
			}
			if score > prev {
				t.Fatalf("score increased for %s x%d: %d > %d", s, n, score, prev)
			}
			prev = score
		}
	}
}

func TestScoreLabel(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "excellent"},
		{90, "excellent"},
		{89, "good"},
		{75, "good"},
		{74, "fair"},
		{60, "fair"},
		{59, "poor"},
		{40, "poor"},
		{39, "critical"},
		{0, "critical"},
	}

	for _, tt := range tests {
		if got := ScoreLabel(tt.score); got != tt.want {
			t.Fatalf("ScoreLabel(%d): expected %q, got %q", tt.score, tt.want, got)
		}
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityCritical.Rank() != 5 || SeverityInfo.Rank() != 1 {
		t.Fatalf("unexpected ranks: critical=%d info=%d", SeverityCritical.Rank(), SeverityInfo.Rank())
	}
	for i := 1; i < len(Severities); i++ {
		if Severities[i-1].Rank() <= Severities[i].Rank() {
			t.Fatalf("severities not in descending order at %d", i)
		}
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatal("expected unknown severity to rank 0")
	}
}

func TestNewScanStatsBuckets(t *testing.T) {
	stats := NewScanStats()
	if len(stats.IssuesBySeverity) != 5 {
		t.Fatalf("expected 5 severity buckets, got %d", len(stats.IssuesBySeverity))
	}
	if len(stats.IssuesByCategory) != 6 {
		t.Fatalf("expected 6 category buckets, got %d", len(stats.IssuesByCategory))
	}
	if len(stats.IssuesByLanguage) != 0 {
		t.Fatalf("expected empty language map, got %d", len(stats.IssuesByLanguage))
	}
}

func TestEffectiveMaxFileSize(t *testing.T) {
	if got := (ScanOptions{}).EffectiveMaxFileSize(); got != 512000 {
		t.Fatalf("expected default 512000, got %d", got)
	}
	if got := (ScanOptions{MaxFileSize: 10}).EffectiveMaxFileSize(); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}
