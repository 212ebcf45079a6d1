package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSplash      BookmarkType = "splash"
	BookmarkCompression BookmarkType = "compression"
	BookmarkLeak        BookmarkType = "leak"
	BookmarkSettled     BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int32        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a run.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	leaking             bool // particles were outside the field last window
	settledWindowsCount int  // consecutive windows with steady kinetic energy
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for settled detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Splash: peak speed > 2x rolling average
		if b := bd.checkSplash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Compression: mean density > 1.5x rolling average
		if b := bd.checkCompression(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Settled: steady low kinetic energy over 5 windows
		if b := bd.checkSettled(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Leak: particles left the sampled field after a clean window
	if b := bd.checkLeak(stats); b != nil {
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

func (bd *BookmarkDetector) checkSplash(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.PeakSpeed
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.PeakSpeed > avg*2.0 && stats.PeakSpeed > 1 {
		return &Bookmark{
			Type:        BookmarkSplash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Peak speed %.2f is %.1fx average (%.2f)", stats.PeakSpeed, stats.PeakSpeed/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkCompression(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.MeanDensity
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.MeanDensity > avg*1.5 {
		return &Bookmark{
			Type:        BookmarkCompression,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean density %.2f is %.1fx average (%.2f)", stats.MeanDensity, stats.MeanDensity/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkLeak(stats WindowStats) *Bookmark {
	wasLeaking := bd.leaking
	escaped := stats.Escaped()
	bd.leaking = escaped > 0
	if !bd.leaking || wasLeaking {
		return nil
	}
	desc := fmt.Sprintf("%d particle steps escaped the boundary (%d off the field, %d deep in a solid)",
		escaped, stats.OutsideDomain, stats.Penetrating)
	return &Bookmark{
		Type:        BookmarkLeak,
		Tick:        stats.WindowEndTick,
		Description: desc,
	}
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Particles == 0 {
		bd.settledWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	recent := history[len(history)-4:]
	var sum float64
	for _, h := range recent {
		sum += h.KineticEnergy
	}
	mean := sum / 4

	var variance float64
	for _, h := range recent {
		d := h.KineticEnergy - mean
		variance += d * d
	}
	variance /= 4

	// Low variance: coefficient of variation < 20%
	cv2 := 0.0
	if mean > 0 {
		cv2 = variance / (mean * mean)
	}
	perParticle := stats.KineticEnergy / float64(stats.Particles)

	if cv2 < 0.04 && perParticle < 0.05 {
		bd.settledWindowsCount++
	} else {
		bd.settledWindowsCount = 0
	}

	if bd.settledWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSettled,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Fluid settled at %.4f kinetic energy per particle over 5+ windows", perParticle),
		}
	}
	return nil
}
