package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FirstContactOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	if got := bd.Check(WindowStats{WindowEndTick: 600}); hasBookmark(got, BookmarkFirstContact) {
		t.Error("no hits should not be contact")
	}
	if got := bd.Check(WindowStats{WindowEndTick: 1200, Hits: 4}); !hasBookmark(got, BookmarkFirstContact) {
		t.Error("expected first_contact bookmark")
	}
	if got := bd.Check(WindowStats{WindowEndTick: 1800, Hits: 9}); hasBookmark(got, BookmarkFirstContact) {
		t.Error("first_contact should fire once")
	}
}

func TestBookmarkDetector_KillingSpree(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Hits: 10, Kills: 2, KillRate: 0.2})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Hits: 10, Kills: 8, KillRate: 0.8})
	if !hasBookmark(bookmarks, BookmarkKillingSpree) {
		t.Error("expected killing_spree bookmark")
	}
}

func TestBookmarkDetector_HeavyLossesAndRout(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bd.Check(WindowStats{WindowEndTick: 600, TeamAlive: map[int32]int{1: 40, 2: 20}})

	bookmarks := bd.Check(WindowStats{WindowEndTick: 1200, TeamAlive: map[int32]int{1: 38, 2: 10}})
	if len(bookmarks) != 1 || bookmarks[0].Type != BookmarkHeavyLosses || bookmarks[0].Team != 2 {
		t.Fatalf("expected heavy_losses for team 2, got %+v", bookmarks)
	}

	bookmarks = bd.Check(WindowStats{WindowEndTick: 1800, TeamAlive: map[int32]int{1: 37}})
	if len(bookmarks) != 1 || bookmarks[0].Type != BookmarkTeamRouted || bookmarks[0].Team != 2 {
		t.Fatalf("expected team_routed for team 2, got %+v", bookmarks)
	}

	if got := bd.Check(WindowStats{WindowEndTick: 2400, TeamAlive: map[int32]int{1: 37}}); hasBookmark(got, BookmarkTeamRouted) {
		t.Error("a routed team should be reported once")
	}
}

func TestBookmarkDetector_Stalemate(t *testing.T) {
	bd := NewBookmarkDetector(10)
	teams := map[int32]int{1: 10, 2: 10}

	bd.Check(WindowStats{WindowEndTick: 600, Hits: 3, Kills: 1, TeamAlive: teams})
	var fired int
	for i := 2; i < 12; i++ {
		if hasBookmark(bd.Check(WindowStats{WindowEndTick: int64(i * 600), Hits: 1, TeamAlive: teams}), BookmarkStalemate) {
			fired++
		}
	}
	if fired != 1 {
		t.Errorf("stalemate fired %d times, want 1", fired)
	}
}
