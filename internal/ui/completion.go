package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/finddupes/internal/stats"
)

// completionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 48,917  hashed 2.1 GiB  sets 12  duplicates 31  time 3m 17s  errors 0
func completionSummary(snap stats.Snapshot) string {
	icon := "✓"
	errs := snap.FilesFailed + snap.FilesDropped
	if errs > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  files %s  hashed %s  sets %s  duplicates %s  time %s",
		icon,
		FormatCount(snap.FilesScanned),
		FormatBytes(snap.BytesHashed),
		FormatCount(snap.Groups),
		FormatCount(snap.Duplicates),
		FormatDuration(snap.Elapsed),
	)
	if snap.Collisions > 0 {
		base += fmt.Sprintf("  collisions %d", snap.Collisions)
	}
	return base + fmt.Sprintf("  errors %d", errs)
}

// printDeleted writes one line for a removed (or, in a dry run, doomed)
// duplicate.
func printDeleted(w io.Writer, ev Event) {
	fmt.Fprintf(w, "   [-] %s\n", ev.Path)
}
