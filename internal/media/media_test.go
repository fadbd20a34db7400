package media_test

import (
	"reflect"
	"testing"

	"moviepilot/internal/media"
)

func TestFoldTitleCollapsesCaseAndWhitespace(t *testing.T) {
	got := media.FoldTitle("  The   Expanse\tRevisited ")
	if got != "the expanse revisited" {
		t.Fatalf("FoldTitle = %q", got)
	}
	if media.FoldTitle("STRASSE") != media.FoldTitle("strasse") {
		t.Fatal("expected case-insensitive fold")
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]media.Kind{"movie": media.KindMovie, "Series": media.KindTV, "tv": media.KindTV, "": media.KindUnknown}
	for input, want := range cases {
		got, err := media.ParseKind(input)
		if err != nil {
			t.Fatalf("ParseKind(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := media.ParseKind("podcast"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseReleaseEpisodeRange(t *testing.T) {
	guess := media.ParseRelease("Some.Show.S02E01-E03.720p.HDTV.x264-GRP")
	if guess.Season != 2 {
		t.Fatalf("expected season 2, got %d", guess.Season)
	}
	if !reflect.DeepEqual(guess.Episodes, []int{1, 2, 3}) {
		t.Fatalf("expected episodes 1-3, got %v", guess.Episodes)
	}
	if guess.Kind != media.KindTV {
		t.Fatalf("expected tv kind, got %q", guess.Kind)
	}
}

func TestParseReleaseExtractsIMDbID(t *testing.T) {
	guess := media.ParseRelease("Heat 1995 1080p BluRay tt0113277")
	if guess.IMDbID != "tt0113277" {
		t.Fatalf("expected imdb id, got %q", guess.IMDbID)
	}
}

func TestQualityScoreOrdersReleases(t *testing.T) {
	remux := media.Guess{Resolution: "2160P", Source: "REMUX", Codec: "HEVC", Proper: true, Repack: true}
	hdtv := media.Guess{Resolution: "720P", Source: "HDTV", Codec: "X264"}
	if got := media.QualityScore(remux); got != 100 {
		t.Fatalf("expected max score 100, got %d", got)
	}
	if got := media.QualityScore(hdtv); got != 45 {
		t.Fatalf("expected 45, got %d", got)
	}
	if media.ResolutionRank("1080p") <= media.ResolutionRank("720p") {
		t.Fatal("expected 1080p to outrank 720p")
	}
}

func TestMissingRemoveShrinksGaps(t *testing.T) {
	missing := media.Missing{42: {{Season: 1, Episodes: []int{1, 2, 3}}}}
	if missing.EpisodeCount(42) != 3 {
		t.Fatalf("expected 3 outstanding, got %d", missing.EpisodeCount(42))
	}
	missing.Remove(42, 1, 1, 2)
	if missing.EpisodeCount(42) != 1 {
		t.Fatalf("expected 1 outstanding, got %d", missing.EpisodeCount(42))
	}
	missing.Remove(42, 1, 3)
	if !missing.Empty() {
		t.Fatalf("expected empty missing, got %v", missing)
	}
}

func TestMissingRemoveExpandsWholeSeason(t *testing.T) {
	missing := media.Missing{7: {{Season: 2, TotalEpisodes: 4}}}
	missing.Remove(7, 2, 4)
	gaps := missing[7]
	if len(gaps) != 1 || !reflect.DeepEqual(gaps[0].Episodes, []int{1, 2, 3}) {
		t.Fatalf("expected episodes 1-3 left, got %+v", gaps)
	}
}

func TestMissingRemoveKeepsSeasonOfUnknownSize(t *testing.T) {
	missing := media.Missing{7: {{Season: 1}}}
	missing.Remove(7, 1, 1)
	if missing.Empty() || len(missing[7]) != 1 || missing[7][0].Season != 1 {
		t.Fatalf("expected the unsized season to stay outstanding, got %+v", missing)
	}
	missing.Remove(7, 1)
	if !missing.Empty() {
		t.Fatalf("expected a whole-season removal to clear it, got %+v", missing)
	}
}

func TestMissingCloneIsDeep(t *testing.T) {
	original := media.Missing{1: {{Season: 1, Episodes: []int{5}}}}
	clone := original.Clone()
	clone.Remove(1, 1, 5)
	if original.EpisodeCount(1) != 1 {
		t.Fatal("clone mutation leaked into original")
	}
}

func TestRecordLabel(t *testing.T) {
	rec := media.Record{Title: "Dark", Year: 2017, Kind: media.KindTV, Season: 3}
	if got := rec.Label(); got != "Dark (2017) S03" {
		t.Fatalf("Label = %q", got)
	}
}
