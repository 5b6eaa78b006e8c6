package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTiersDefaults(t *testing.T) {
	tiers, err := LoadTiers("")
	if err != nil {
		t.Fatalf("LoadTiers(\"\") error: %v", err)
	}
	if len(tiers) != 3 {
		t.Fatalf("default tier count = %d, want 3", len(tiers))
	}

	byLevel := make(map[string]TierSeed, len(tiers))
	for _, tier := range tiers {
		byLevel[tier.Level] = tier
	}

	basic, ok := byLevel["basic"]
	if !ok {
		t.Fatal("basic tier missing")
	}
	if basic.MarkWrong != 0 || basic.MaxViolations != 0 {
		t.Errorf("basic tier = %+v, want no negative marking and no violation allowance", basic)
	}

	pro, ok := byLevel["pro"]
	if !ok {
		t.Fatal("pro tier missing")
	}
	if pro.PassPercent != 88 {
		t.Errorf("pro pass percent = %v, want 88", pro.PassPercent)
	}
	if pro.MaxViolations != 5 {
		t.Errorf("pro max violations = %d, want 5", pro.MaxViolations)
	}
}

func TestLoadTiersFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.json")
	content := `[{"level":"custom","title":"Custom Test","duration_minutes":30,"question_count":25,"mark_correct":2,"mark_wrong":1,"max_violations":3,"pass_percent":60,"idle_timeout_seconds":120}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	tiers, err := LoadTiers(path)
	if err != nil {
		t.Fatalf("LoadTiers error: %v", err)
	}
	if len(tiers) != 1 || tiers[0].Level != "custom" || tiers[0].MarkCorrect != 2 {
		t.Errorf("tiers = %+v", tiers)
	}
}

func TestLoadTiersRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadTiers(path); err == nil {
		t.Error("expected error for empty tier list")
	}
}
