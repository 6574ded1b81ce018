package event

import (
	"context"
	"time"
)

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	FileFound
	ScanComplete
	StageStarted
	StageComplete
	FileDropped
	GroupFound
	VerifyFailed
	DeleteFile
)

var typeNames = [...]string{
	ScanStarted:   "ScanStarted",
	FileFound:     "FileFound",
	ScanComplete:  "ScanComplete",
	StageStarted:  "StageStarted",
	StageComplete: "StageComplete",
	FileDropped:   "FileDropped",
	GroupFound:    "GroupFound",
	VerifyFailed:  "VerifyFailed",
	DeleteFile:    "DeleteFile",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Timestamp time.Time
	Error     error
	Path      string
	Stage     string // refinement level name (StageStarted, StageComplete, FileDropped)
	Size      int64  // file size, or group member size (GroupFound)
	Total     int64  // files found (ScanComplete), candidates (Stage*), members (GroupFound)
	TotalSize int64  // bytes found (ScanComplete)
	Type      Type
}

// Emit sends e on ch without blocking. A nil channel discards the event.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}

// Send delivers e on ch, blocking until it is received or ctx is done.
// Use it for events that carry results rather than progress.
func Send(ctx context.Context, ch chan<- Event, e Event) error {
	if ch == nil {
		return nil
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
