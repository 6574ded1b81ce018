package stats

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Writer is the write side of a Collector, used by the engine.
type Writer interface {
	AddFilesScanned(n int64)
	AddBytesScanned(n int64)
	AddFilesSkipped(n int64)
	AddFilesFailed(n int64)
	AddFilesDropped(n int64)
	AddPartialHashes(n int64)
	AddFullHashes(n int64)
	AddBytesHashed(n int64)
	AddCollisions(n int64)
}

// Reader is the read side of a Collector, used by presenters.
type Reader interface {
	Snapshot() Snapshot
}

// Collector tracks run statistics using lock-free atomic counters.
type Collector struct {
	startTime     time.Time
	filesScanned  atomic.Int64
	bytesScanned  atomic.Int64
	filesSkipped  atomic.Int64
	filesFailed   atomic.Int64
	filesDropped  atomic.Int64
	partialHashes atomic.Int64
	fullHashes    atomic.Int64
	bytesHashed   atomic.Int64
	collisions    atomic.Int64
	groups        atomic.Int64
	duplicates    atomic.Int64
	wastedBytes   atomic.Int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned  int64
	BytesScanned  int64
	FilesSkipped  int64
	FilesFailed   int64
	FilesDropped  int64
	PartialHashes int64
	FullHashes    int64
	BytesHashed   int64
	Collisions    int64
	Groups        int64
	Duplicates    int64
	WastedBytes   int64
	Elapsed       time.Duration
}

func (c *Collector) AddFilesScanned(n int64)  { c.filesScanned.Add(n) }
func (c *Collector) AddBytesScanned(n int64)  { c.bytesScanned.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)  { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesFailed(n int64)   { c.filesFailed.Add(n) }
func (c *Collector) AddFilesDropped(n int64)  { c.filesDropped.Add(n) }
func (c *Collector) AddPartialHashes(n int64) { c.partialHashes.Add(n) }
func (c *Collector) AddFullHashes(n int64)    { c.fullHashes.Add(n) }
func (c *Collector) AddBytesHashed(n int64)   { c.bytesHashed.Add(n) }
func (c *Collector) AddCollisions(n int64)    { c.collisions.Add(n) }

// AddGroup records one emitted duplicate group of members files of size bytes each.
func (c *Collector) AddGroup(members int, size int64) {
	if members < 2 {
		return
	}
	extra := int64(members - 1)
	c.groups.Add(1)
	c.duplicates.Add(extra)
	c.wastedBytes.Add(extra * size)
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesScanned:  c.filesScanned.Load(),
		BytesScanned:  c.bytesScanned.Load(),
		FilesSkipped:  c.filesSkipped.Load(),
		FilesFailed:   c.filesFailed.Load(),
		FilesDropped:  c.filesDropped.Load(),
		PartialHashes: c.partialHashes.Load(),
		FullHashes:    c.fullHashes.Load(),
		BytesHashed:   c.bytesHashed.Load(),
		Collisions:    c.collisions.Load(),
		Groups:        c.groups.Load(),
		Duplicates:    c.duplicates.Load(),
		WastedBytes:   c.wastedBytes.Load(),
		Elapsed:       c.Elapsed(),
	}
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"scanned=%d skipped=%d failed=%d dropped=%d partial=%d full=%d hashed=%d collisions=%d groups=%d dupes=%d",
		s.FilesScanned, s.FilesSkipped, s.FilesFailed, s.FilesDropped,
		s.PartialHashes, s.FullHashes, s.BytesHashed, s.Collisions,
		s.Groups, s.Duplicates,
	)
}

// FormatBytes returns a human-readable byte count using IEC units.
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
