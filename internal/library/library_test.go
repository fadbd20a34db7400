package library_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"moviepilot/internal/library"
	"moviepilot/internal/media"
	"moviepilot/internal/services"
	"moviepilot/internal/testsupport"
	"moviepilot/internal/tmdb"
)

type fakeSeasons struct {
	episodes []tmdb.Episode
	err      error
	calls    int
}

func (f *fakeSeasons) SeasonDetails(_ context.Context, _ int64, season int) (*tmdb.SeasonDetails, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tmdb.SeasonDetails{SeasonNumber: season, Episodes: f.episodes}, nil
}

func newLibrary(t *testing.T, seasons library.SeasonLister) (*library.Checker, string, string) {
	t.Helper()
	root := t.TempDir()
	movies := filepath.Join(root, "movies")
	tv := filepath.Join(root, "tv")
	return library.NewChecker(movies, tv, seasons, nil), movies, tv
}

func TestMovieHeldByFolder(t *testing.T) {
	checker, movies, _ := newLibrary(t, nil)
	testsupport.WriteMediaFiles(t, movies,
		"Heat (1995)/Heat.1995.1080p.mkv",
		"Blade Runner {tmdb-78}/movie.mp4",
		"Alien (1979)/notes.txt",
	)

	tests := []struct {
		name string
		rec  media.Record
		held bool
	}{
		{"title and year", media.Record{TMDBID: 949, Kind: media.KindMovie, Title: "Heat", Year: 1995}, true},
		{"case and spacing", media.Record{TMDBID: 949, Kind: media.KindMovie, Title: "  heat ", Year: 1995}, true},
		{"year mismatch", media.Record{TMDBID: 1, Kind: media.KindMovie, Title: "Heat", Year: 1986}, false},
		{"tmdb tag", media.Record{TMDBID: 78, Kind: media.KindMovie, Title: "Something Else"}, true},
		{"tmdb tag other id", media.Record{TMDBID: 79, Kind: media.KindMovie, Title: "Blade Runner"}, false},
		{"folder without video", media.Record{TMDBID: 348, Kind: media.KindMovie, Title: "Alien", Year: 1979}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			held, missing, err := checker.Check(context.Background(), tt.rec)
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if held != tt.held {
				t.Fatalf("held = %v, want %v", held, tt.held)
			}
			if !held {
				gaps := missing[tt.rec.TMDBID]
				if len(gaps) != 1 || gaps[0].Season != 0 {
					t.Fatalf("expected a single season-0 gap, got %+v", missing)
				}
			}
		})
	}
}

func TestMovieHeldAsLooseFile(t *testing.T) {
	checker, movies, _ := newLibrary(t, nil)
	testsupport.WriteMediaFiles(t, movies, "The Matrix (1999).mkv")

	held, _, err := checker.Check(context.Background(), media.Record{TMDBID: 603, Kind: media.KindMovie, Title: "The Matrix", Year: 1999})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !held {
		t.Fatal("expected loose video file to count as held")
	}
}

func TestMissingRootIsEmptyLibrary(t *testing.T) {
	checker, _, _ := newLibrary(t, nil)
	held, missing, err := checker.Check(context.Background(), media.Record{TMDBID: 603, Kind: media.KindMovie, Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if held || missing.Empty() {
		t.Fatalf("expected a gap, got held=%v missing=%+v", held, missing)
	}
}

func TestSeriesGap(t *testing.T) {
	seasons := &fakeSeasons{episodes: []tmdb.Episode{
		{EpisodeNumber: 1, AirDate: "2017-12-01"},
		{EpisodeNumber: 2, AirDate: "2017-12-01"},
		{EpisodeNumber: 3, AirDate: "2017-12-01"},
		{EpisodeNumber: 4, AirDate: "2999-01-01"},
	}}
	checker, _, tv := newLibrary(t, seasons)
	testsupport.WriteMediaFiles(t, tv,
		"Dark (2017)/Season 01/Dark.S01E01.1080p.mkv",
		"Dark (2017)/Season 01/Dark.S01E02.1080p.mkv",
		"Dark (2017)/Season 02/Dark.S02E03.1080p.mkv",
	)

	rec := media.Record{TMDBID: 70523, Kind: media.KindTV, Title: "Dark", Year: 2017, Season: 1}
	held, missing, err := checker.Check(context.Background(), rec)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if held {
		t.Fatal("expected episode 3 to be missing")
	}
	gaps := missing[70523]
	if len(gaps) != 1 || gaps[0].Season != 1 || len(gaps[0].Episodes) != 1 || gaps[0].Episodes[0] != 3 {
		t.Fatalf("unexpected gap: %+v", gaps)
	}
	if gaps[0].TotalEpisodes != 3 {
		t.Fatalf("future episodes should not count, total = %d", gaps[0].TotalEpisodes)
	}

	testsupport.WriteMediaFiles(t, tv, "Dark (2017)/Season 01/Dark.S01E03.1080p.mkv")
	held, _, err = checker.Check(context.Background(), rec)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !held {
		t.Fatal("expected season to be fully held")
	}
}

func TestSeriesErrors(t *testing.T) {
	rec := media.Record{TMDBID: 70523, Kind: media.KindTV, Title: "Dark", Season: 1}

	checker, _, _ := newLibrary(t, nil)
	if _, _, err := checker.Check(context.Background(), rec); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error without season lister, got %v", err)
	}

	boom := errors.New("tmdb down")
	checker, _, _ = newLibrary(t, &fakeSeasons{err: boom})
	if _, _, err := checker.Check(context.Background(), rec); !errors.Is(err, boom) {
		t.Fatalf("expected lister error, got %v", err)
	}

	if _, _, err := checker.Check(context.Background(), media.Record{Kind: media.KindMovie, Title: "x"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unresolved record, got %v", err)
	}
}
