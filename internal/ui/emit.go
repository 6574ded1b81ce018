package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/bamsammich/finddupes/internal/engine"
)

// Default separators between paths and between sets.
const (
	DefaultSeparator    = "\n"
	DefaultSetSeparator = "\n\n"
)

// EmitConfig controls the result layout.
type EmitConfig struct {
	Separator    string
	SetSeparator string
	OmitFirst    bool // skip the first path of each set
	SameLine     bool // one set per line, paths joined by a space
	ShowSize     bool // prefix each set with its member size
	Summarize    bool // print totals instead of sets
}

// Emitter writes search results to stdout in the requested layout.
type Emitter struct {
	w   *bufio.Writer
	cfg EmitConfig
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer, cfg EmitConfig) *Emitter {
	return &Emitter{w: bufio.NewWriter(w), cfg: cfg}
}

// Write emits every group, or the summary line when summarizing, and
// flushes.
func (e *Emitter) Write(groups []engine.Group) error {
	if e.cfg.Summarize {
		e.summary(groups)
		return e.w.Flush()
	}
	for _, g := range groups {
		e.group(g)
	}
	return e.w.Flush()
}

func (e *Emitter) group(g engine.Group) {
	if g.Unique {
		for _, p := range g.Paths {
			e.w.WriteString(p)
			e.w.WriteString(e.cfg.Separator)
		}
		return
	}

	if e.cfg.ShowSize {
		unit := "bytes"
		if g.Size == 1 {
			unit = "byte"
		}
		fmt.Fprintf(e.w, "%d %s each:\n", g.Size, unit)
	}

	paths := g.Paths
	if e.cfg.OmitFirst && len(paths) > 0 {
		paths = paths[1:]
	}
	if e.cfg.SameLine {
		e.w.WriteString(strings.Join(paths, " "))
		e.w.WriteString("\n")
		return
	}
	e.w.WriteString(strings.Join(paths, e.cfg.Separator))
	e.w.WriteString(e.cfg.SetSeparator)
}

func (e *Emitter) summary(groups []engine.Group) {
	var sets, dupes, wasted int64
	for _, g := range groups {
		if g.Unique || g.Len() < 2 {
			continue
		}
		sets++
		extra := int64(g.Len() - 1)
		dupes += extra
		wasted += extra * g.Size
	}
	if sets == 0 {
		e.w.WriteString("No duplicates found.\n")
		return
	}
	fmt.Fprintf(e.w, "%d duplicate files (in %d sets), occupying %s.\n",
		dupes, sets, humanize.Bytes(uint64(wasted)))
}
