package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// BenchmarkResult holds a read throughput measurement.
type BenchmarkResult struct {
	Path             string
	ReadBytesPerSec  float64
	SuggestedWorkers int
}

const benchSize = 64 * 1024 * 1024 // 64 MB

var errNoBenchFile = errors.New("no readable files")

// RunBenchmark reads up to benchSize bytes from one file the scan would
// visit and suggests a hashing worker count for that storage. Files of at
// least benchSize are preferred; otherwise the first non-empty file is used.
func RunBenchmark(ctx context.Context, cfg ScannerConfig) (BenchmarkResult, error) {
	var result BenchmarkResult
	target, err := findBenchFile(ctx, cfg)
	if err != nil {
		return result, fmt.Errorf("read benchmark: %w", err)
	}
	speed, err := benchRead(ctx, target)
	if err != nil {
		return result, fmt.Errorf("read benchmark: %w", err)
	}
	result.Path = target
	result.ReadBytesPerSec = speed
	result.SuggestedWorkers = suggestWorkers(speed)
	return result, nil
}

// findBenchFile runs the scanner over cfg's roots, so recursion, filters
// and the symlink policy match the real scan.
func findBenchFile(ctx context.Context, cfg ScannerConfig) (string, error) {
	cfg.Stats, cfg.Events = nil, nil
	cfg.ExcludeEmpty = true

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	records, errs := NewScanner(cfg).Scan(scanCtx)
	go func() {
		//nolint:revive // empty-block: unreadable entries are not candidates
		for range errs {
		}
	}()

	var target string
	for rec := range records {
		if rec.Size >= benchSize {
			target = rec.Path
			cancel()
			break
		}
		if target == "" {
			target = rec.Path
		}
	}
	//nolint:revive // empty-block: draining until close
	for range records {
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if target == "" {
		return "", errNoBenchFile
	}
	return target, nil
}

func benchRead(ctx context.Context, target string) (float64, error) {
	f, err := openForRead(target)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 1<<20)
	var total int64
	start := time.Now()
	for total < benchSize {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		n, readErr := f.Read(buf)
		total += int64(n)
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return 0, readErr
		}
	}
	elapsed := time.Since(start)
	if elapsed == 0 {
		elapsed = time.Microsecond
	}
	return float64(total) / elapsed.Seconds(), nil
}

// suggestWorkers returns a hashing worker count for the measured read rate.
func suggestWorkers(readBPS float64) int {
	cpus := runtime.NumCPU()

	switch {
	case readBPS >= 2e9: // >= 2 GB/s → NVMe
		return min(cpus*2, 32)
	case readBPS >= 200e6: // >= 200 MB/s → SSD
		return min(cpus, 16)
	default: // HDD: parallel reads only add seeks
		return min(2, cpus)
	}
}

// FormatBenchmark formats a BenchmarkResult for display.
func FormatBenchmark(r BenchmarkResult) string {
	return fmt.Sprintf("benchmark: read %s/s from %s  suggested workers %d",
		humanize.Bytes(uint64(r.ReadBytesPerSec)), r.Path, r.SuggestedWorkers)
}
