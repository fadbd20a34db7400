package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"moviepilot/internal/matching"
	"moviepilot/internal/media"
	"moviepilot/internal/notifications"
	"moviepilot/internal/reconcile"
	"moviepilot/internal/services"
	"moviepilot/internal/subscription"
	"moviepilot/internal/testsupport"
)

var (
	dark = media.Record{TMDBID: 70523, Kind: media.KindTV, Title: "Dark", Year: 2017, IMDbID: "tt5753856", PosterPath: "/dark.jpg"}
	heat = media.Record{TMDBID: 949, Kind: media.KindMovie, Title: "Heat", Year: 1995, IMDbID: "tt0113277"}
)

type fakeRecognizer struct {
	mu      sync.Mutex
	byTitle map[string]media.Record
}

func newRecognizer() *fakeRecognizer {
	return &fakeRecognizer{byTitle: map[string]media.Record{
		"dark":   dark,
		"dunkel": dark,
		"heat":   heat,
		"dank":   {TMDBID: 5, Kind: media.KindTV, Title: "Dank Memes"},
	}}
}

func (f *fakeRecognizer) Recognize(_ context.Context, g media.Guess) (*media.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g.TMDBID != 0 {
		for _, rec := range f.byTitle {
			if rec.TMDBID == g.TMDBID {
				out := rec
				out.Season = g.Season
				return &out, nil
			}
		}
	}
	title := strings.ToLower(g.Title)
	for key, rec := range f.byTitle {
		if strings.HasPrefix(title, key) {
			out := rec
			out.Season = g.Season
			return &out, nil
		}
	}
	return nil, services.ErrNotFound
}

// library tracks held episodes of season 1 for TV and held movies.
type library struct {
	mu       sync.Mutex
	episodes map[int64]int
	held     map[int64]map[int]bool
	movies   map[int64]bool
	vague    map[int64]bool
	checks   int
	err      error
}

func newLibrary() *library {
	return &library{
		episodes: map[int64]int{dark.TMDBID: 3},
		held:     map[int64]map[int]bool{},
		movies:   map[int64]bool{},
		vague:    map[int64]bool{},
	}
}

func (l *library) Check(_ context.Context, rec media.Record) (bool, media.Missing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	if l.err != nil {
		return false, nil, l.err
	}
	if rec.Kind == media.KindMovie {
		if l.movies[rec.TMDBID] {
			return true, nil, nil
		}
		return false, media.Missing{rec.TMDBID: {{Season: 0}}}, nil
	}
	if l.vague[rec.TMDBID] {
		return false, nil, nil
	}
	var missing []int
	for ep := 1; ep <= l.episodes[rec.TMDBID]; ep++ {
		if !l.held[rec.TMDBID][ep] {
			missing = append(missing, ep)
		}
	}
	if len(missing) == 0 {
		return true, nil, nil
	}
	return false, media.Missing{rec.TMDBID: {{Season: rec.Season, Episodes: missing}}}, nil
}

func (l *library) add(id int64, episodes ...int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(episodes) == 0 {
		l.movies[id] = true
		return
	}
	if l.held[id] == nil {
		l.held[id] = map[int]bool{}
	}
	for _, ep := range episodes {
		l.held[id][ep] = true
	}
}

type fakeDownloader struct {
	mu      sync.Mutex
	lib     *library
	batches [][]matching.Candidate
	err     error
}

func (d *fakeDownloader) Download(_ context.Context, cands []matching.Candidate, missing media.Missing) (media.Missing, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	d.batches = append(d.batches, cands)
	for _, cand := range cands {
		missing.Remove(cand.Media.TMDBID, cand.Guess.Season, cand.Episodes()...)
		d.lib.add(cand.Media.TMDBID, cand.Episodes()...)
	}
	return missing, nil
}

func (d *fakeDownloader) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.batches)
}

type fakeSource struct {
	mu      sync.Mutex
	name    string
	lists   [][]media.RawCandidate
	calls   int
	err     error
	release chan struct{}
	started chan struct{}
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) List(ctx context.Context) ([]media.RawCandidate, error) {
	if s.started != nil {
		close(s.started)
		s.started = nil
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.lists) {
		return nil, nil
	}
	return s.lists[idx], nil
}

type fakeSearcher struct {
	results []media.RawCandidate
	calls   int
}

func (s *fakeSearcher) Search(context.Context, media.Record, string) ([]media.RawCandidate, error) {
	s.calls++
	return s.results, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *fakeNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
	return nil
}

func (n *fakeNotifier) has(event notifications.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == event {
			return true
		}
	}
	return false
}

type harness struct {
	store      *subscription.Store
	engine     *reconcile.Engine
	lib        *library
	downloader *fakeDownloader
	searcher   *fakeSearcher
	notifier   *fakeNotifier
}

func newHarness(t *testing.T, sources ...reconcile.Source) *harness {
	t.Helper()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	lib := newLibrary()
	h := &harness{
		store:      store,
		lib:        lib,
		downloader: &fakeDownloader{lib: lib},
		searcher:   &fakeSearcher{},
		notifier:   &fakeNotifier{},
	}
	engine, err := reconcile.New(reconcile.Deps{
		Store:      store,
		Recognizer: newRecognizer(),
		Holdings:   lib,
		Sources:    sources,
		Searcher:   h.searcher,
		Downloader: h.downloader,
		Notifier:   h.notifier,
	}, nil, reconcile.WithConcurrency(2))
	if err != nil {
		t.Fatalf("reconcile.New: %v", err)
	}
	h.engine = engine
	return h
}

func (h *harness) subscribe(t *testing.T, sub subscription.Subscription) *subscription.Subscription {
	t.Helper()
	stored, err := h.store.Add(context.Background(), sub)
	if err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return stored
}

func raws(source string, titles ...string) []media.RawCandidate {
	out := make([]media.RawCandidate, len(titles))
	for i, title := range titles {
		out[i] = media.RawCandidate{Title: title, Source: source, GUID: source + "-" + title}
	}
	return out
}

func TestCycleConvergesAcrossPartialDownloads(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{
		raws("alpha", "Dark.S01E01-E02.1080p.WEB-DL.x264-GRP"),
		raws("alpha", "Dark.S01E03.1080p.WEB-DL.x264-GRP"),
	}}
	h := newHarness(t, src)
	ctx := context.Background()
	sub := h.subscribe(t, subscription.Subscription{
		Name: "Dark", Kind: media.KindTV, Season: 1, TMDBID: dark.TMDBID, State: subscription.StateMatching,
	})

	summary, err := h.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if summary.Downloads != 1 || summary.Completed != 0 {
		t.Fatalf("unexpected first summary %+v", summary)
	}
	got, err := h.store.Get(ctx, sub.ID)
	if err != nil || got == nil {
		t.Fatalf("expected subscription to remain after partial download, got %v (%v)", got, err)
	}
	if got.MissingEpisodes != 1 {
		t.Fatalf("expected 1 missing episode, got %d", got.MissingEpisodes)
	}
	if got.State != subscription.StateMatching {
		t.Fatalf("expected state R, got %s", got.State)
	}

	summary, err = h.engine.RunCycle(ctx)
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("expected completion in second cycle, got %+v", summary)
	}
	if got, _ := h.store.Get(ctx, sub.ID); got != nil {
		t.Fatalf("expected subscription deleted, got %+v", got)
	}
	if h.downloader.calls() != 2 {
		t.Fatalf("expected two download requests, got %d", h.downloader.calls())
	}
	if !h.notifier.has(notifications.EventSubscriptionCompleted) {
		t.Fatal("expected completion notification")
	}
	if status := h.engine.Status(); status.Cycles != 2 || status.LastCycleID == "" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAlreadyHeldShortCircuits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.lib.add(heat.TMDBID)
	h.searcher.results = raws("alpha", "Heat.1995.1080p.BluRay.x264")
	sub := h.subscribe(t, subscription.Subscription{Name: "Heat", Year: 1995, Kind: media.KindMovie})

	summary, err := h.engine.Search(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if summary.Completed != 1 {
		t.Fatalf("expected completion, got %+v", summary)
	}
	if h.searcher.calls != 0 || h.downloader.calls() != 0 {
		t.Fatalf("expected no search or download, got search=%d download=%d", h.searcher.calls, h.downloader.calls())
	}
	if got, _ := h.store.Get(ctx, sub.ID); got != nil {
		t.Fatal("expected held subscription to be deleted")
	}
	if !h.notifier.has(notifications.EventAlreadyHeld) {
		t.Fatal("expected already-held notification")
	}
}

func TestSeasonGateBlocksOtherSeasons(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{
		raws("alpha", "Dark.S01E01-E03.1080p.WEB-DL.x264-GRP"),
	}}
	h := newHarness(t, src)
	h.lib.episodes[dark.TMDBID] = 8
	sub := h.subscribe(t, subscription.Subscription{
		Name: "Dark", Kind: media.KindTV, Season: 2, TMDBID: dark.TMDBID, State: subscription.StateMatching,
	})

	summary, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Matched != 0 || h.downloader.calls() != 0 {
		t.Fatalf("expected season 1 releases to be ignored, got %+v", summary)
	}
	if got, _ := h.store.Get(context.Background(), sub.ID); got == nil {
		t.Fatal("expected subscription to remain")
	}
}

func TestIdentityMatchingIgnoresTitleSimilarity(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{
		raws("alpha",
			"Dark.S01E01-E02.1080p.WEB-DL",
			"Dunkel.S01E03-E04.720p.HDTV",
			"Dank.Memes.S01E01-E03.1080p.WEB-DL",
		),
	}}
	h := newHarness(t, src)
	h.lib.episodes[dark.TMDBID] = 10
	h.subscribe(t, subscription.Subscription{
		Name: "Dark", Kind: media.KindTV, Season: 1, TMDBID: dark.TMDBID, State: subscription.StateMatching,
	})

	summary, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Matched != 2 {
		t.Fatalf("expected both releases of the same identity to match, got %d", summary.Matched)
	}
	batch := h.downloader.batches[0]
	for _, cand := range batch {
		if cand.Media.TMDBID != dark.TMDBID {
			t.Fatalf("unexpected candidate in download batch: %+v", cand.Raw)
		}
	}
}

func TestMatchUsesUnionOfSources(t *testing.T) {
	alpha := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{raws("alpha", "Dark.S01E01-E02.1080p.WEB-DL")}}
	beta := &fakeSource{name: "beta", lists: [][]media.RawCandidate{raws("beta", "Dark.S01E03-E03.1080p.WEB-DL")}}
	h := newHarness(t, alpha, beta)
	sub := h.subscribe(t, subscription.Subscription{
		Name: "Dark", Kind: media.KindTV, Season: 1, TMDBID: dark.TMDBID, State: subscription.StateMatching,
	})

	summary, err := h.engine.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if summary.Matched != 2 || summary.Completed != 1 {
		t.Fatalf("expected releases from both sources to complete the season, got %+v", summary)
	}
	if got, _ := h.store.Get(context.Background(), sub.ID); got != nil {
		t.Fatal("expected subscription deleted")
	}
}

func TestRefreshReplacesInventory(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{
		raws("alpha", "Dark.S01E01-E02.1080p.WEB-DL", "Unknown.Thing.2020.720p"),
		nil,
	}}
	h := newHarness(t, src)
	ctx := context.Background()

	if err := h.engine.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := h.engine.Inventory().Snapshot("alpha"); len(got) != 1 {
		t.Fatalf("expected one recognized release, got %d", len(got))
	}

	if err := h.engine.Refresh(ctx); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if got := h.engine.Inventory().Snapshot("alpha"); len(got) != 0 {
		t.Fatalf("expected empty refresh to empty the inventory, got %d", len(got))
	}
	stats := h.engine.Inventory().Stats()
	if len(stats) != 1 || stats[0].Name != "alpha" || stats[0].Releases != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRefreshKeepsInventoryWhenSourceFails(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{raws("alpha", "Dark.S01E01-E02.1080p.WEB-DL")}}
	h := newHarness(t, src)
	ctx := context.Background()
	if err := h.engine.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	src.mu.Lock()
	src.err = errors.New("indexer offline")
	src.mu.Unlock()
	if err := h.engine.Refresh(ctx); err != nil {
		t.Fatalf("Refresh with failing source: %v", err)
	}
	if got := h.engine.Inventory().Snapshot("alpha"); len(got) != 1 {
		t.Fatalf("expected previous inventory kept, got %d", len(got))
	}
}

func TestSearchMovesNewToMatchingAndTracksMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.searcher.results = raws("alpha",
		"Dark.S01E01-E02.1080p.WEB-DL",
		"Dark.S02E01-E02.1080p.WEB-DL",
	)
	sub := h.subscribe(t, subscription.Subscription{Name: "Dark", Kind: media.KindTV, Season: 1, TMDBID: dark.TMDBID})

	summary, err := h.engine.SearchState(ctx, subscription.StateNew)
	if err != nil {
		t.Fatalf("SearchState: %v", err)
	}
	if summary.Processed != 1 || summary.Matched != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	got, _ := h.store.Get(ctx, sub.ID)
	if got == nil {
		t.Fatal("expected subscription to remain")
	}
	if got.State != subscription.StateMatching || got.MissingEpisodes != 1 {
		t.Fatalf("expected state R with 1 missing, got %s/%d", got.State, got.MissingEpisodes)
	}
	if got.IMDbID != dark.IMDbID || got.Poster != dark.PosterPath {
		t.Fatalf("expected identity pinned on the subscription, got %+v", got)
	}
}

func TestSeasonOfUnknownSizeSurvivesSingleEpisode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.lib.vague[dark.TMDBID] = true
	h.searcher.results = raws("alpha", "Dark.S01E01.1080p.WEB-DL.x264-GRP")
	sub := h.subscribe(t, subscription.Subscription{
		Name: "Dark", Kind: media.KindTV, Season: 1, TMDBID: dark.TMDBID, State: subscription.StateMatching,
	})

	summary, err := h.engine.Search(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if summary.Downloads != 1 || summary.Completed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	got, err := h.store.Get(ctx, sub.ID)
	if err != nil || got == nil {
		t.Fatalf("expected subscription kept after a single episode, got %v (%v)", got, err)
	}
	if got.MissingEpisodes != 1 {
		t.Fatalf("expected 1 missing episode recorded, got %d", got.MissingEpisodes)
	}
	if h.notifier.has(notifications.EventSubscriptionCompleted) {
		t.Fatal("expected no completion notification")
	}
}

func TestSearchUnknownSubscription(t *testing.T) {
	h := newHarness(t)
	if _, err := h.engine.Search(context.Background(), 404); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFailuresLeaveSubscriptionUnchanged(t *testing.T) {
	src := &fakeSource{name: "alpha", lists: [][]media.RawCandidate{raws("alpha", "Heat.1995.1080p.BluRay")}}
	h := newHarness(t, src)
	h.downloader.err = errors.New("nzbget down")
	sub := h.subscribe(t, subscription.Subscription{Name: "Heat", Kind: media.KindMovie, State: subscription.StateMatching})

	if _, err := h.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	got, _ := h.store.Get(context.Background(), sub.ID)
	if got == nil || got.State != subscription.StateMatching {
		t.Fatalf("expected subscription kept in R after download failure, got %+v", got)
	}
}

func TestCyclesDoNotOverlap(t *testing.T) {
	src := &fakeSource{name: "slow", release: make(chan struct{}), started: make(chan struct{})}
	started := src.started
	h := newHarness(t, src)

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.RunCycle(context.Background())
		done <- err
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never started")
	}
	if _, err := h.engine.RunCycle(context.Background()); !errors.Is(err, reconcile.ErrCycleInProgress) {
		t.Fatalf("expected ErrCycleInProgress, got %v", err)
	}
	if !h.engine.Status().Running {
		t.Fatal("expected status to report a running cycle")
	}
	close(src.release)
	if err := <-done; err != nil {
		t.Fatalf("first cycle: %v", err)
	}
}

func TestAddRecognizesAndRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	sub, err := h.engine.Add(ctx, reconcile.AddRequest{Title: "dark", Season: 2, Username: "alice"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sub.State != subscription.StateNew || sub.TMDBID != dark.TMDBID || sub.Season != 2 || sub.Kind != media.KindTV {
		t.Fatalf("unexpected subscription %+v", sub)
	}
	if sub.Name != "Dark" || sub.Username != "alice" {
		t.Fatalf("expected canonical name and user, got %+v", sub)
	}
	if !h.notifier.has(notifications.EventSubscribed) {
		t.Fatal("expected subscribed notification")
	}

	if _, err := h.engine.Add(ctx, reconcile.AddRequest{Title: "Dark", Season: 2}); !errors.Is(err, subscription.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := h.engine.Add(ctx, reconcile.AddRequest{Title: "Nothing Like It"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := h.engine.Add(ctx, reconcile.AddRequest{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := reconcile.New(reconcile.Deps{}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestAcquireDownloadsBeforeSubscribing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.searcher.results = raws("alpha", "Heat.1995.1080p.BluRay.x264")
	res, err := h.engine.Acquire(ctx, reconcile.AddRequest{Title: "Heat", Year: 1995})
	if err != nil {
		t.Fatalf("Acquire movie: %v", err)
	}
	if res.Outcome != reconcile.AcquireDownloaded || res.Downloads != 1 || res.Subscription != nil {
		t.Fatalf("unexpected movie result %+v", res)
	}
	if !h.notifier.has(notifications.EventDownloadRequested) {
		t.Fatal("expected download notification")
	}

	res, err = h.engine.Acquire(ctx, reconcile.AddRequest{Title: "Heat", Year: 1995})
	if err != nil {
		t.Fatalf("Acquire held movie: %v", err)
	}
	if res.Outcome != reconcile.AcquireHeld {
		t.Fatalf("expected held outcome once downloaded, got %+v", res)
	}

	h.searcher.results = raws("alpha", "Dark.S01E01-E02.1080p.WEB-DL")
	res, err = h.engine.Acquire(ctx, reconcile.AddRequest{Title: "Dark", Season: 1, Username: "trakt"})
	if err != nil {
		t.Fatalf("Acquire series: %v", err)
	}
	if res.Outcome != reconcile.AcquireSubscribed || res.Subscription == nil {
		t.Fatalf("expected remaining episode to be subscribed, got %+v", res)
	}
	if res.Subscription.MissingEpisodes != 1 || res.Subscription.State != subscription.StateNew {
		t.Fatalf("unexpected subscription %+v", res.Subscription)
	}

	res, err = h.engine.Acquire(ctx, reconcile.AddRequest{Title: "Dark", Season: 1})
	if err != nil {
		t.Fatalf("Acquire duplicate: %v", err)
	}
	if res.Outcome != reconcile.AcquireDuplicate {
		t.Fatalf("expected duplicate outcome, got %+v", res)
	}
	if counts, _ := h.store.Count(ctx); counts[subscription.StateNew] != 1 {
		t.Fatalf("expected one stored subscription, got %v", counts)
	}
}
