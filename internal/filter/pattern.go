package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// compiledPattern is a validated rsync-style glob.
type compiledPattern struct {
	original string
	glob     string // doublestar pattern matched against the relative path
	dirOnly  bool   // pattern ends with /
}

// compilePattern converts an rsync-style pattern into a doublestar glob.
// A leading / or any inner / anchors the pattern at the scanned root;
// otherwise it may match at any depth.
func compilePattern(pattern string) (*compiledPattern, error) {
	cp := &compiledPattern{original: pattern}

	if strings.HasSuffix(pattern, "/") {
		cp.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern %q", cp.original)
	}

	if anchored {
		cp.glob = pattern
	} else {
		cp.glob = "**/" + pattern
	}
	if !doublestar.ValidatePattern(cp.glob) {
		return nil, fmt.Errorf("invalid pattern %q", cp.original)
	}
	return cp, nil
}

// match tests whether a slash-separated relative path matches.
func (cp *compiledPattern) match(relPath string, isDir bool) bool {
	if cp.dirOnly && !isDir {
		return false
	}
	ok, err := doublestar.Match(cp.glob, relPath)
	return err == nil && ok
}

func (cp *compiledPattern) String() string { return cp.original }
