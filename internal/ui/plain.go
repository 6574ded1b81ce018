package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/finddupes/internal/stats"
)

// plainPresenter is used when stderr is not a terminal. Deletions go to
// stdout; with verbose set, stage transitions and periodic progress go to
// stderr as whole lines.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   stats.Reader
	verbose bool
	stage   string
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-ticker.C:
			if p.verbose {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case DeleteFile:
		printDeleted(p.w, ev)
		return
	case ScanStarted:
		p.stage = "scan"
	case StageStarted:
		p.stage = ev.Stage
	}
	if !p.verbose {
		return
	}

	switch ev.Type {
	case ScanComplete:
		fmt.Fprintf(p.errW, "scan: %s files, %s\n", FormatCount(ev.Total), FormatBytes(ev.TotalSize))
	case StageStarted:
		fmt.Fprintf(p.errW, "%s: hashing %s files\n", ev.Stage, FormatCount(ev.Total))
	case StageComplete:
		fmt.Fprintf(p.errW, "%s: %s candidates remain\n", ev.Stage, FormatCount(ev.Total))
	case FileDropped, VerifyFailed:
		errMsg := "error"
		if ev.Error != nil {
			errMsg = ev.Error.Error()
		}
		fmt.Fprintf(p.errW, "dropped: %s  %s\n", ev.Path, errMsg)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.errW, "progress: %s  %s files  %s hashed\n",
		p.stage, FormatCount(snap.FilesScanned), FormatBytes(snap.BytesHashed))
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
