//go:build darwin

package engine

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// devInoFromInfo returns the device and inode of a stat result.
func devInoFromInfo(info os.FileInfo) (DevIno, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return DevIno{}, false
	}
	return DevIno{
		Dev: uint64(stat.Dev), //nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
		Ino: stat.Ino,
	}, true
}

// openForRead opens path for hashing. Darwin has no O_NOATIME.
func openForRead(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
