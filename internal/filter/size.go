package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human-readable size string into bytes.
// A bare K, M, G, T or P suffix (case-insensitive) is a power of 1024,
// matching rsync; explicit units such as "10KB" (SI) or "10KiB" (IEC) are
// taken literally.
func ParseSize(s string) (int64, error) {
	orig := s
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if n := len(s); n > 1 && strings.ContainsRune("kKmMgGtTpP", rune(s[n-1])) {
		s += "i"
	}

	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size: %q", orig)
	}
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("size out of range: %q", orig)
	}
	return int64(v), nil
}
