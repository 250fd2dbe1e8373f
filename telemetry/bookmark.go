package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFirstContact BookmarkType = "first_contact"
	BookmarkKillingSpree BookmarkType = "killing_spree"
	BookmarkHeavyLosses  BookmarkType = "heavy_losses"
	BookmarkTeamRouted   BookmarkType = "team_routed"
	BookmarkStalemate    BookmarkType = "stalemate"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Team        int32        `csv:"team"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"team", b.Team,
		"description", b.Description,
	)
}

// BookmarkDetector detects turning points in a battle from window stats.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	contact       bool
	teamPeak      map[int32]int // peak alive count per team since the last heavy_losses
	quietWindows  int           // consecutive windows after contact without kills
	stalemateSeen bool
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
		teamPeak:    make(map[int32]int),
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkFirstContact(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkKillingSpree(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	bookmarks = append(bookmarks, bd.checkTeams(stats)...)
	if b := bd.checkStalemate(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkFirstContact(stats WindowStats) *Bookmark {
	if bd.contact || stats.Hits == 0 {
		return nil
	}
	bd.contact = true
	return &Bookmark{
		Type:        BookmarkFirstContact,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("First blows exchanged: %d hits", stats.Hits),
	}
}

func (bd *BookmarkDetector) checkKillingSpree(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var totalKills, totalHits int
	for _, h := range history {
		totalKills += h.Kills
		totalHits += h.Hits
	}
	if totalHits == 0 || stats.Hits == 0 {
		return nil
	}

	avgKillRate := float64(totalKills) / float64(totalHits)
	if avgKillRate == 0 {
		return nil
	}
	if stats.KillRate > avgKillRate*2.0 && stats.Kills >= 3 {
		return &Bookmark{
			Type:        BookmarkKillingSpree,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Kill rate %.2f is %.1fx average (%.2f)", stats.KillRate, stats.KillRate/avgKillRate, avgKillRate),
		}
	}
	return nil
}

// checkTeams reports teams that lost over 30% from their peak and teams that
// were wiped out.
func (bd *BookmarkDetector) checkTeams(stats WindowStats) []Bookmark {
	var out []Bookmark
	for _, id := range sortedTeams(bd.teamPeak) {
		peak := bd.teamPeak[id]
		alive := stats.TeamAlive[id]
		if peak > 0 && alive == 0 {
			out = append(out, Bookmark{
				Type:        BookmarkTeamRouted,
				Tick:        stats.WindowEndTick,
				Team:        id,
				Description: fmt.Sprintf("Team %d eliminated (peak %d)", id, peak),
			})
			delete(bd.teamPeak, id)
			continue
		}
		drop := 1.0 - float64(alive)/float64(peak)
		if drop > 0.30 && alive < peak-2 {
			out = append(out, Bookmark{
				Type:        BookmarkHeavyLosses,
				Tick:        stats.WindowEndTick,
				Team:        id,
				Description: fmt.Sprintf("Team %d lost %.0f%% from peak %d to %d", id, drop*100, peak, alive),
			})
			bd.teamPeak[id] = alive
		}
	}
	for id, alive := range stats.TeamAlive {
		if alive > bd.teamPeak[id] {
			bd.teamPeak[id] = alive
		}
	}
	return out
}

// checkStalemate fires once when two or more teams survive five windows in a
// row after contact without a kill.
func (bd *BookmarkDetector) checkStalemate(stats WindowStats) *Bookmark {
	if !bd.contact || bd.stalemateSeen {
		return nil
	}
	if stats.Kills > 0 || len(stats.TeamAlive) < 2 {
		bd.quietWindows = 0
		return nil
	}
	bd.quietWindows++
	if bd.quietWindows < 5 {
		return nil
	}
	bd.stalemateSeen = true
	return &Bookmark{
		Type:        BookmarkStalemate,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No kills for %d windows with %d units alive", bd.quietWindows, stats.Alive),
	}
}
