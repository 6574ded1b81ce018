package ui

import (
	"io"

	"github.com/bamsammich/finddupes/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	Writer    io.Writer // results that belong on stdout, e.g. deleted paths
	ErrWriter io.Writer // progress and diagnostics
	Stats     stats.Reader
	IsTTY     bool
	Quiet     bool
	Verbose   bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(
	cfg Config,
) Presenter {
	if cfg.Quiet {
		return &quietPresenter{w: cfg.Writer, stats: cfg.Stats}
	}
	if !cfg.IsTTY {
		return &plainPresenter{
			w:       cfg.Writer,
			errW:    cfg.ErrWriter,
			stats:   cfg.Stats,
			verbose: cfg.Verbose,
		}
	}
	return &spinnerPresenter{
		w:     cfg.Writer,
		errW:  cfg.ErrWriter, // spinner renders to stderr (the TTY)
		stats: cfg.Stats,
	}
}
