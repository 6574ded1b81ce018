package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/finddupes/internal/stats"
)

const (
	spinnerFrames   = `-\|/`
	spinnerInterval = 100 * time.Millisecond
	// clearLine returns the cursor to column 0 and erases the line.
	clearLine = "\r\033[K"
)

// spinnerPresenter draws a single self-overwriting status line on the
// terminal: a spinner while scanning, then per-stage hashing progress.
type spinnerPresenter struct {
	w     io.Writer
	errW  io.Writer
	stats stats.Reader

	frame      int
	stage      string // "" until the scan starts
	stageTotal int64
	stageBase  int64 // hash counter value when the stage started
	found      int64
	drawn      bool
	lastDraw   time.Time
}

func (p *spinnerPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clear()
				return nil
			}
			p.handleEvent(ev)
			if time.Since(p.lastDraw) >= spinnerInterval {
				p.draw()
			}
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *spinnerPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case ScanStarted:
		p.stage = "scanning files"
	case FileFound:
		p.found++
	case ScanComplete:
		p.found = ev.Total
	case StageStarted:
		p.stage = ev.Stage
		p.stageTotal = ev.Total
		p.stageBase = p.hashed(ev.Stage)
	case DeleteFile:
		p.clear()
		printDeleted(p.w, ev)
	}
}

// hashed returns the collector's hash count for the named stage.
func (p *spinnerPresenter) hashed(stage string) int64 {
	snap := p.stats.Snapshot()
	switch stage {
	case "partial":
		return snap.PartialHashes
	case "full":
		return snap.FullHashes
	}
	return 0
}

func (p *spinnerPresenter) draw() {
	if p.stage == "" {
		return
	}
	spin := spinnerFrames[p.frame%len(spinnerFrames)]
	p.frame++

	if p.stage == "scanning files" {
		fmt.Fprintf(p.errW, "%s%s %c %s", clearLine, p.stage, spin, FormatCount(p.found))
	} else {
		done := p.hashed(p.stage) - p.stageBase
		fmt.Fprintf(p.errW, "%s%s hash %c [%s/%s] %s", clearLine, p.stage, spin,
			FormatCount(done), FormatCount(p.stageTotal), Percent(done, p.stageTotal))
	}
	p.drawn = true
	p.lastDraw = time.Now()
}

func (p *spinnerPresenter) clear() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.errW, clearLine)
	p.drawn = false
}

func (p *spinnerPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
