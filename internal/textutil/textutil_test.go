package textutil

import (
	"strings"
	"testing"
)

func TestFoldStripsAccents(t *testing.T) {
	if got := Fold("Amélie Poulain"); got != "amelie poulain" {
		t.Fatalf("Fold = %q", got)
	}
}

func TestTokenizeDropsStopwordsAndPunctuation(t *testing.T) {
	got := Tokenize("The Lord of the Rings: The Two Towers")
	want := []string{"lord", "rings", "two", "towers"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	if got := Tokenize("The The"); len(got) != 2 {
		t.Fatalf("expected stopword-only title to keep its tokens, got %v", got)
	}
	if got := Tokenize("  -- "); len(got) != 0 {
		t.Fatalf("expected no tokens, got %v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity(nil, NewFingerprint("heat")); got != 0 {
		t.Fatalf("nil fingerprint scored %v", got)
	}
	if got := TitleSimilarity("Heat", "heat"); got != 1 {
		t.Fatalf("identical titles scored %v", got)
	}
	if got := TitleSimilarity("Amélie", "Amelie"); got != 1 {
		t.Fatalf("accent variants scored %v", got)
	}
	partial := TitleSimilarity("Star Wars Episode IV", "Star Wars: Episode 4")
	if partial <= 0.5 || partial >= 1 {
		t.Fatalf("partial overlap scored %v", partial)
	}
	if got := TitleSimilarity("Heat", "Alien"); got != 0 {
		t.Fatalf("unrelated titles scored %v", got)
	}
	if got := TitleSimilarity("A-B", "B A"); got != 1 {
		t.Fatalf("token order should not matter, scored %v", got)
	}
}

func TestFingerprintTokens(t *testing.T) {
	var nilFP *Fingerprint
	if nilFP.Tokens() != 0 {
		t.Fatal("nil fingerprint should have no tokens")
	}
	if got := NewFingerprint("heat heat 1995").Tokens(); got != 2 {
		t.Fatalf("Tokens = %d, want 2", got)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"Heat.1995.1080p.BluRay":         "Heat.1995.1080p.BluRay",
		"AC/DC: Live  at   River Plate?": "AC-DC- Live at River Plate",
		"  trailing dots... ":            "trailing dots",
		"":                               "",
	}
	for in, want := range cases {
		if got := SanitizeFileName(in); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", in, got, want)
		}
	}
	long := strings.Repeat("x", 300)
	if got := SanitizeFileName(long); len(got) != maxFileNameLength {
		t.Fatalf("expected capped length, got %d", len(got))
	}
}
