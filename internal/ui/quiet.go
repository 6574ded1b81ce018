package ui

import (
	"io"

	"github.com/bamsammich/finddupes/internal/stats"
)

// quietPresenter shows no progress; only deletions, which are results,
// are written.
type quietPresenter struct {
	w     io.Writer
	stats stats.Reader
}

func (p *quietPresenter) Run(events <-chan Event) error {
	for ev := range events {
		if ev.Type == DeleteFile {
			printDeleted(p.w, ev)
		}
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}
