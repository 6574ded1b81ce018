package ui

import "github.com/bamsammich/finddupes/internal/event"

// Event is re-exported so presenters read like the engine that feeds them.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted   = event.ScanStarted
	FileFound     = event.FileFound
	ScanComplete  = event.ScanComplete
	StageStarted  = event.StageStarted
	StageComplete = event.StageComplete
	FileDropped   = event.FileDropped
	GroupFound    = event.GroupFound
	VerifyFailed  = event.VerifyFailed
	DeleteFile    = event.DeleteFile
)
