package journal

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{RequestID: "r1", Route: "/song/detail", Scheme: "weapi", Status: 200, CreatedAt: base},
		{RequestID: "r2", Route: "/lyric", Scheme: "linuxapi", Status: 200, CreatedAt: base.Add(time.Minute)},
		{RequestID: "r3", Route: "/song/detail", Scheme: "weapi", Status: 502, Error: "upstream", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].RequestID != "r3" || all[2].RequestID != "r1" {
		t.Fatalf("unexpected order: %+v", all)
	}

	songs, err := store.List(ctx, Filter{Route: "/song/detail", Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(songs) != 1 || songs[0].RequestID != "r3" {
		t.Fatalf("route filter: %+v", songs)
	}

	recent, err := store.List(ctx, Filter{Since: base.Add(30 * time.Second)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("since filter returned %d entries", len(recent))
	}
}

func TestRecordMasksCookie(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	if err := store.Record(ctx, &Entry{Route: "/playlist/detail", Cookie: "MUSIC_U=secret;os=pc;"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if strings.Contains(got[0].Cookie, "secret") || !strings.Contains(got[0].Cookie, "os=pc") {
		t.Fatalf("cookie stored as %q", got[0].Cookie)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
}

func TestPrune(t *testing.T) {
	store := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = store.Record(ctx, &Entry{Route: "/old", CreatedAt: now.Add(-48 * time.Hour)})
	_ = store.Record(ctx, &Entry{Route: "/new", CreatedAt: now})

	n, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d entries, want 1", n)
	}
	left, _ := store.List(ctx, Filter{})
	if len(left) != 1 || left[0].Route != "/new" {
		t.Fatalf("remaining %+v", left)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error")
	}
	if err := (*Store)(nil).Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
